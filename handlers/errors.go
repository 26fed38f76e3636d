package handlers

import (
	"errors"
	"log"
	"net/http"

	"cyber_case_app_go/config"
	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
)

// serviceError translates a service error into the HTTP error returned to
// the client. Scope mismatches render as 404 unless SCOPE_DENIAL_MODE asks
// for 403; the body never says whether the record exists.
func serviceError(cfg *config.Config, err error, notFound string) error {
	var ve *services.ValidationError
	var ie *services.IntegrityError

	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrOutOfScope):
		if cfg != nil && cfg.ScopeDenialMode == config.ScopeDenialForbidden {
			return echo.NewHTTPError(http.StatusForbidden, "Access denied")
		}
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrObjectNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, services.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, services.ErrFileTypeNotAllowed), errors.Is(err, services.ErrEmptyFile):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInsufficientRank), errors.Is(err, services.ErrRoleNotPermitted):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrDuplicateFIR),
		errors.Is(err, services.ErrDuplicateUsername),
		errors.Is(err, services.ErrNoFinancialEntity),
		errors.Is(err, services.ErrInactiveUser):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredential), errors.Is(err, services.ErrInvalidToken):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.As(err, &ie):
		return echo.NewHTTPError(http.StatusConflict, services.ErrIntegrityFailure.Error())
	case errors.Is(err, services.ErrDecryptionFailed), errors.Is(err, services.ErrStoredFileMissing):
		log.Printf("[ERROR] %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	log.Printf("[ERROR] %v", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}
