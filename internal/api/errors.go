package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/service"
)

var errorKinds = []struct {
	kind   error
	status int
	code   string
}{
	{service.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{service.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrConflict, http.StatusConflict, "CONFLICT"},
}

// respondError writes err as an ErrorResponse. Service errors keep their
// message; anything else is a 500 with the cause in the error field.
func respondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		for _, k := range errorKinds {
			if errors.Is(svcErr.Kind, k.kind) {
				c.JSON(k.status, models.ErrorResponse{
					Status:  "error",
					Code:    k.code,
					Message: svcErr.Message,
				})
				return
			}
		}
	}

	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Status:  "error",
		Code:    "INTERNAL_ERROR",
		Message: "Server error",
		Error:   err.Error(),
	})
}

// bindError reports a request body that failed binding or validation
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "INVALID_REQUEST",
		Message: "Invalid request body",
		Error:   err.Error(),
	})
}
