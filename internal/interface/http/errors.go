package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/adhunt/internal/domain/errs"
	"github.com/oksasatya/adhunt/pkg/response"
	"github.com/oksasatya/adhunt/pkg/validation"
)

// writeError maps the error taxonomy to a status code. Validation is checked
// first so errors that also carry field details answer 400.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		response.Error[any](c, http.StatusBadRequest, "validation failed", errs.Details(err))
	case errors.Is(err, errs.ErrUnauthorized):
		msg := "authentication required"
		if errors.Is(err, errs.ErrInvalidCredential) {
			msg = "invalid credentials"
		}
		response.Error[any](c, http.StatusUnauthorized, msg, nil)
	case errors.Is(err, errs.ErrForbidden):
		response.Error[any](c, http.StatusForbidden, "you do not have permission to perform this action", nil)
	case errors.Is(err, errs.ErrNotFound):
		response.Error[any](c, http.StatusNotFound, "not found", nil)
	case errors.Is(err, errs.ErrConflict):
		response.Error[any](c, http.StatusConflict, conflictMessage(err), nil)
	default:
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"request_id": c.GetString("request_id"),
				"path":       c.FullPath(),
			}).Error("request failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, errs.ErrAlreadyFavorited):
		return "advertisement already in favorites"
	case errors.Is(err, errs.ErrDuplicateEmail):
		return "email already registered"
	case errors.Is(err, errs.ErrDuplicatePhone):
		return "phone number already registered"
	default:
		return "conflict"
	}
}

// bindError answers a request body that failed to bind or validate.
func bindError(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
}
