package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"transfer-manager-api/internal/domain/outbox"
	"transfer-manager-api/internal/infrastructure/jwt"
	"transfer-manager-api/internal/interface/api/rest/middleware"
	"transfer-manager-api/internal/interface/api/rest/validator"
)

// OutboxReopener is the reconciliation hook: a FAILED entry goes back
// to PENDING with a fresh retry budget.
type OutboxReopener interface {
	ReopenFailed(ctx context.Context, id uuid.UUID) error
}

type OutboxController struct {
	reopener OutboxReopener
	logger   *zap.Logger
}

func NewOutboxController(
	r *gin.Engine,
	reopener OutboxReopener,
	logger *zap.Logger,
	jwtService *jwt.Service,
) *OutboxController {
	oc := &OutboxController{
		reopener: reopener,
		logger:   logger,
	}

	r.POST(RouteOutboxReopen, middleware.AuthMiddleware(jwtService), oc.ReopenHandler)

	return oc
}

func (oc *OutboxController) ReopenHandler(c *gin.Context) {
	ok, entryID := validator.IsUUID(c.Param("entry_id"))
	if !ok {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "entry_id must be a valid UUID"},
		)
		return
	}

	if err := oc.reopener.ReopenFailed(c.Request.Context(), entryID); err != nil {
		switch {
		case errors.Is(err, outbox.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "outbox entry not found"})
		case errors.Is(err, outbox.ErrNotFailed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(
				http.StatusInternalServerError,
				gin.H{"error": "failed to reopen outbox entry"},
			)
			oc.logger.Error("ReopenFailed() error", zap.Error(err))
		}
		return
	}

	c.Status(http.StatusNoContent)
}
