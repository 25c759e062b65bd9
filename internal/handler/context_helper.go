package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arsip-biak-api/internal/middleware"
	"github.com/noah-isme/arsip-biak-api/internal/models"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid id")
	}
	return id, nil
}

func queryInt64(c *gin.Context, name string) *int64 {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &value
}
