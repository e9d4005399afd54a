package command

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/wildcatlabs/wildcat/core"
)

// The handlers return rich envelopes directly so callers never need the
// gateway error mapper for failures originating here.

func commandDependencyError(message string) error {
	return badEnvelope(goerrors.New(message, goerrors.CategoryInternal),
		http.StatusInternalServerError, core.GatewayErrorInternal)
}

func commandValidationError(field string, message string) error {
	envelope := goerrors.NewValidation("command: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).WithSeverity(goerrors.SeverityError)
	return badEnvelope(envelope, http.StatusBadRequest, core.GatewayErrorBadInput)
}

func commandInvalidInputError(message string) error {
	return badEnvelope(goerrors.New(message, goerrors.CategoryBadInput),
		http.StatusBadRequest, core.GatewayErrorBadInput)
}

func commandWrapValidation(err error, message string) error {
	if err == nil {
		return nil
	}
	return badEnvelope(goerrors.Wrap(err, goerrors.CategoryValidation, message),
		http.StatusBadRequest, core.GatewayErrorBadInput)
}

func badEnvelope(envelope *goerrors.Error, httpCode int, textCode string) error {
	return envelope.WithCode(httpCode).WithTextCode(textCode)
}
