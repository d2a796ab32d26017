package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parul297/MeraEvents/internal/application"
	"github.com/parul297/MeraEvents/internal/domain/attendee"
	"github.com/parul297/MeraEvents/internal/domain/event"
	"github.com/parul297/MeraEvents/internal/domain/transaction"
)

// httpError はドメインエラーをHTTPステータスに対応付ける
// NotFound→404、業務ルール違反・検証エラー→400、競合→409、
// タイムアウト→504、ストア障害→503
func httpError(err error) error {
	switch {
	case errors.Is(err, event.ErrEventNotFound),
		errors.Is(err, attendee.ErrAttendeeNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, attendee.ErrEmailAlreadyRegistered),
		errors.Is(err, attendee.ErrEventFull):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, transaction.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, application.ErrOperationTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, transaction.ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case isValidationError(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		event.ErrTitleRequired, event.ErrTitleTooLong,
		event.ErrDescriptionRequired, event.ErrDescriptionTooLong,
		event.ErrInvalidCapacity, event.ErrDateNotFuture,
		attendee.ErrNameRequired, attendee.ErrNameTooLong,
		attendee.ErrInvalidEmail, attendee.ErrEventIDRequired,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
