// Package response defines the JSON contract every endpoint speaks:
// a single envelope carrying either data or a typed error, plus optional
// pagination.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arsip-biak-api/internal/models"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
)

// Envelope is the wire shape of every response body.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

func write(c *gin.Context, status int, env Envelope) {
	// API responses carry auth-scoped data; never let intermediaries cache them.
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, env)
}

// JSON sends a success envelope, with pagination when the endpoint pages.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination) {
	write(c, status, Envelope{Data: data, Pagination: pagination})
}

// Created sends the data with HTTP 201.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error maps any error onto the envelope via the typed-error catalog.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	write(c, appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a bare 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
