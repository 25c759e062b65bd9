package models

import "time"

// LetterType distinguishes the detail payload a letter carries.
type LetterType string

const (
	LetterTypeBiasa           LetterType = "biasa"
	LetterTypePenggantiIjazah LetterType = "pengganti_ijazah"
	LetterTypeKeterangan      LetterType = "keterangan"
)

// Valid reports whether the type is one of the known letter types.
func (t LetterType) Valid() bool {
	switch t {
	case LetterTypeBiasa, LetterTypePenggantiIjazah, LetterTypeKeterangan:
		return true
	}
	return false
}

// RequiresDetails reports whether a letter of this type carries a details row.
func (t LetterType) RequiresDetails() bool {
	return t != LetterTypeBiasa
}

// Canonical workflow statuses offered by the UI. The column itself stays
// free-form text; any status string may follow any other.
const (
	StatusDiteruskanFakultas = "Diteruskan ke Fakultas"
	StatusDiteruskanRektor   = "Diteruskan ke Rektor"
	StatusDiteruskanWakil    = "Diteruskan ke Wakil"
	StatusSelesai            = "Selesai"
)

// Letter represents one tracked BIAK correspondence record.
type Letter struct {
	ID            int64      `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	LetterDate    time.Time  `db:"letter_date" json:"letter_date"`
	Sender        string     `db:"sender" json:"sender"`
	Recipient     string     `db:"recipient" json:"recipient"`
	Subject       string     `db:"subject" json:"subject"`
	LetterType    LetterType `db:"letter_type" json:"letter_type"`
	CurrentStatus *string    `db:"current_status" json:"current_status,omitempty"`
	FilePath      *string    `db:"file_path" json:"file_path,omitempty"`
	CreatedBy     *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// LetterDetails holds the type-specific payload for non-plain letters.
// All fields are optional at the storage layer; which subset is required is a
// client concern per letter type.
type LetterDetails struct {
	ID                int64   `db:"id" json:"id"`
	LetterID          int64   `db:"letter_id" json:"letter_id"`
	NIM               *string `db:"nim" json:"nim,omitempty"`
	Nama              *string `db:"nama" json:"nama,omitempty"`
	JenjangPendidikan *string `db:"jenjang_pendidikan" json:"jenjang_pendidikan,omitempty"`
	Fakultas          *string `db:"fakultas" json:"fakultas,omitempty"`
	ProgramStudi      *string `db:"program_studi" json:"program_studi,omitempty"`
	TanggalLulus      *string `db:"tanggal_lulus" json:"tanggal_lulus,omitempty"`
	NoSeri            *string `db:"no_seri" json:"no_seri,omitempty"`
	NIRL              *string `db:"nirl" json:"nirl,omitempty"`
	Telepon           *string `db:"telepon" json:"telepon,omitempty"`
}

// LetterWithDetails bundles a letter and its optional details row.
type LetterWithDetails struct {
	Letter
	Details *LetterDetails `json:"details,omitempty"`
}

// LetterStatusHistory is one entry in a letter's status trail, ordered by
// creation time ascending. current_status on the letter is a cached latest
// projection; the history is the source of truth.
type LetterStatusHistory struct {
	ID        int64     `db:"id" json:"id"`
	LetterID  int64     `db:"letter_id" json:"letter_id"`
	Status    string    `db:"status" json:"status"`
	Note      *string   `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LetterFilter captures filtering criteria for listing letters.
type LetterFilter struct {
	Search     string
	LetterType LetterType
	Status     string
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
}

// RekapGroupBy selects the aggregation period for letter summaries.
type RekapGroupBy string

const (
	RekapByDay   RekapGroupBy = "day"
	RekapByWeek  RekapGroupBy = "week"
	RekapByMonth RekapGroupBy = "month"
)

// Valid reports whether the grouping is supported.
func (g RekapGroupBy) Valid() bool {
	switch g {
	case RekapByDay, RekapByWeek, RekapByMonth:
		return true
	}
	return false
}

// RekapRow is one aggregate bucket of the letter summary.
type RekapRow struct {
	Period string `db:"period" json:"period"`
	Total  int    `db:"total" json:"total"`
}
