package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/SignalMiner/internal/catalog"
	"github.com/jmerrifield20/SignalMiner/internal/service"
	"go.uber.org/zap"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrTaskUnknown), errors.Is(err, service.ErrTierUnknown):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTaskAlreadyClaimed),
		errors.Is(err, service.ErrTierNotUpgrade),
		errors.Is(err, service.ErrAlreadyStaked),
		errors.Is(err, service.ErrNotStaked),
		errors.Is(err, service.ErrStakeLocked):
		return http.StatusConflict
	case errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrSwapAmount),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrStakeOption),
		errors.Is(err, service.ErrBoostURL),
		errors.Is(err, service.ErrBoostToken):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTreasury):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
