// internal/api/handlers/common.go
package handlers

import (
	"errors"
	"net/http"

	"mfg-backoffice-api-server/internal/dispatch"
	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"
	"mfg-backoffice-api-server/internal/pricing"
	"mfg-backoffice-api-server/internal/workflow"

	"github.com/gin-gonic/gin"
)

// actorFromContext dựng Actor từ các giá trị mà middleware Authenticate
// đã đặt vào context.
func actorFromContext(c *gin.Context) models.Actor {
	return models.Actor{
		UserID: c.GetString("user_id"),
		Name:   c.GetString("user_name"),
		Role:   c.GetString("user_role"),
	}
}

// respondError ánh xạ lỗi nghiệp vụ sang mã HTTP tương ứng.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrRequestNotFound), errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrMissingReason),
		errors.Is(err, workflow.ErrInvalidQuantity),
		errors.Is(err, dispatch.ErrEmptyDispatch),
		errors.Is(err, dispatch.ErrNegativeQuantity),
		errors.Is(err, pricing.ErrInvalidPrice):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrInvalidStateTransition),
		errors.Is(err, workflow.ErrNotReadyForDispatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, dispatch.ErrPartialDispatchFailure):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
