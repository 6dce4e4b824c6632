package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/salon-api/internal/middleware"
	"github.com/jwalitptl/salon-api/internal/model"
	apperrors "github.com/jwalitptl/salon-api/pkg/errors"
	"github.com/jwalitptl/salon-api/pkg/httputil"
)

// domainErrors maps booking and catalog outcomes to their HTTP form.
var domainErrors = []struct {
	target error
	status int
	code   apperrors.ErrorCode
}{
	{model.ErrSlotTaken, http.StatusConflict, apperrors.CodeSlotTaken},
	{model.ErrInvalidTransition, http.StatusConflict, apperrors.CodeInvalidTransition},
	{model.ErrAlreadyTerminal, http.StatusConflict, apperrors.CodeAlreadyTerminal},
	{model.ErrServiceInactive, http.StatusUnprocessableEntity, apperrors.CodeServiceInactive},
	{model.ErrOutsideOperatingWindow, http.StatusUnprocessableEntity, apperrors.CodeOutsideOperatingWindow},
	{model.ErrTooLateToCancel, http.StatusUnprocessableEntity, apperrors.CodeTooLateToCancel},
	{model.ErrNotOwner, http.StatusForbidden, apperrors.CodeNotOwner},
	{model.ErrForbidden, http.StatusForbidden, apperrors.CodeForbidden},
	{model.ErrNotFound, http.StatusNotFound, apperrors.CodeNotFound},
	{model.ErrInvalidCredentials, http.StatusUnauthorized, apperrors.CodeUnauthorized},
	{model.ErrInvalidInput, http.StatusBadRequest, apperrors.CodeInvalidInput},
}

// ToAppError classifies err. Anything unrecognised is an internal error
// whose text is not shown to the client.
func ToAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.BadRequest("invalid request", err).WithDetails(middleware.FieldErrors(verrs))
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return apperrors.BadRequest(ve.Error(), err).
			WithDetails([]middleware.FieldError{{Field: ve.Field, Message: ve.Message}})
	}

	for _, d := range domainErrors {
		if errors.Is(err, d.target) {
			return apperrors.New(d.status, d.code, err.Error(), err)
		}
	}

	var (
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		maxBytesErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxBytesErr):
		return apperrors.New(http.StatusRequestEntityTooLarge, apperrors.CodeInvalidInput, "request body too large", err)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return apperrors.BadRequest("malformed request body", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.New(http.StatusGatewayTimeout, apperrors.CodeTimeout, "request timeout", err)
	case errors.Is(err, context.Canceled):
		return apperrors.Unavailable("request cancelled", err)
	}
	return apperrors.Internal(err)
}

// RespondError writes err as an error envelope. Server-side failures are
// attached to the context so ErrorHandler logs them.
func RespondError(c *gin.Context, err error) {
	appErr := ToAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	httputil.RespondWithError(c, appErr)
}

func RespondOK(c *gin.Context, data interface{}) {
	httputil.RespondWithSuccess(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	httputil.RespondWithSuccess(c, http.StatusCreated, data)
}
