package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetterHandlerDownloadRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewLetterHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/letters/download", nil)
	c.Request = req

	h.Download(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "token is required")
}

func TestLetterHandlerGetInvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewLetterHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/letters/abc", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	h.Get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLetterHandlerUpdateStatusBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewLetterHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/letters/1/status", strings.NewReader(`{"status":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	h.UpdateStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
