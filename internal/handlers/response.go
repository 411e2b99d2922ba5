package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/pathwise/pathwise-backend/internal/pkg/errors"
	"github.com/pathwise/pathwise-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondFromError maps an error to a status: an explicit apierr wins,
// then the shared sentinels, then the given fallback.
func RespondFromError(c *gin.Context, fallbackStatus int, fallbackCode string, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		status := ae.Status
		if status == 0 {
			status = fallbackStatus
		}
		code := ae.Code
		if code == "" {
			code = fallbackCode
		}
		RespondError(c, status, code, err)
		return
	}

	switch {
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, pkgerrors.ErrNotFound), errors.Is(err, pkgerrors.ErrInconsistentData):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, pkgerrors.ErrLocked):
		RespondError(c, http.StatusForbidden, "locked", err)
	case errors.Is(err, pkgerrors.ErrGateIncomplete):
		RespondError(c, http.StatusConflict, "gate_incomplete", err)
	case errors.Is(err, pkgerrors.ErrFetchFailure), errors.Is(err, pkgerrors.ErrWriteFailure):
		RespondError(c, http.StatusBadGateway, fallbackCode, err)
	default:
		RespondError(c, fallbackStatus, fallbackCode, err)
	}
}
