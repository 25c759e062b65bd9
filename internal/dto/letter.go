package dto

// LetterDetailsPayload is the type-specific detail block accepted for
// pengganti_ijazah and keterangan letters.
type LetterDetailsPayload struct {
	NIM               *string `json:"nim"`
	Nama              *string `json:"nama"`
	JenjangPendidikan *string `json:"jenjang_pendidikan"`
	Fakultas          *string `json:"fakultas"`
	ProgramStudi      *string `json:"program_studi"`
	TanggalLulus      *string `json:"tanggal_lulus"`
	NoSeri            *string `json:"no_seri"`
	NIRL              *string `json:"nirl"`
	Telepon           *string `json:"telepon"`
}

// CreateLetterRequest carries the core letter fields. On multipart uploads
// the details block arrives JSON-encoded in the "details" form field.
type CreateLetterRequest struct {
	Name        string                `form:"name" json:"name" validate:"required"`
	Date        string                `form:"date" json:"date" validate:"required"`
	Sender      string                `form:"sender" json:"sender" validate:"required"`
	Recipient   string                `form:"recipient" json:"recipient" validate:"required"`
	Subject     string                `form:"subject" json:"subject" validate:"required"`
	LetterType  string                `form:"letter_type" json:"letter_type" validate:"required"`
	Status      *string               `form:"status" json:"status"`
	DetailsJSON string                `form:"details" json:"-"`
	Details     *LetterDetailsPayload `form:"-" json:"details"`
}

// UpdateLetterRequest allows partial updates; omitted fields keep their
// stored values.
type UpdateLetterRequest struct {
	Name        *string               `form:"name" json:"name"`
	Date        *string               `form:"date" json:"date"`
	Sender      *string               `form:"sender" json:"sender"`
	Recipient   *string               `form:"recipient" json:"recipient"`
	Subject     *string               `form:"subject" json:"subject"`
	LetterType  *string               `form:"letter_type" json:"letter_type"`
	DetailsJSON string                `form:"details" json:"-"`
	Details     *LetterDetailsPayload `form:"-" json:"details"`
	RemoveFile  bool                  `form:"remove_file" json:"remove_file"`
}

// UpdateLetterStatusRequest appends a status-history entry and overwrites the
// letter's cached current status.
type UpdateLetterStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note"`
}

// UpdateHistoryItemRequest revises one recorded history entry.
type UpdateHistoryItemRequest struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note"`
}

// RekapQuery selects the date range and grouping for letter summaries.
type RekapQuery struct {
	StartDate string `form:"start_date" validate:"required"`
	EndDate   string `form:"end_date" validate:"required"`
	GroupBy   string `form:"group_by"`
}
