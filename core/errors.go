package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	GatewayErrorBadInput          = "GATEWAY_BAD_INPUT"
	GatewayErrorAccountNotFound   = "GATEWAY_ACCOUNT_NOT_FOUND"
	GatewayErrorAccountExists     = "GATEWAY_ACCOUNT_EXISTS"
	GatewayErrorNotConnected      = "GATEWAY_NOT_CONNECTED"
	GatewayErrorStoreUnavailable  = "GATEWAY_STORE_UNAVAILABLE"
	GatewayErrorEngineFailure     = "GATEWAY_ENGINE_FAILURE"
	GatewayErrorDeliveryFailed    = "GATEWAY_DELIVERY_FAILED"
	GatewayErrorInternal          = "GATEWAY_INTERNAL_ERROR"
)

func gatewayErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureGatewayErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "account not found"):
		return newGatewayError(err.Error(), goerrors.CategoryNotFound, GatewayErrorAccountNotFound)
	case strings.Contains(msg, "account already exists"):
		return newGatewayError(err.Error(), goerrors.CategoryConflict, GatewayErrorAccountExists)
	case strings.Contains(msg, "not connected"):
		return newGatewayError(err.Error(), goerrors.CategoryOperation, GatewayErrorNotConnected)
	case strings.Contains(msg, "webhook"), strings.Contains(msg, "delivery"):
		return newGatewayError(err.Error(), goerrors.CategoryExternal, GatewayErrorDeliveryFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newGatewayError(err.Error(), goerrors.CategoryBadInput, GatewayErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureGatewayErrorEnvelope(mapped)
}

func newGatewayError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureGatewayErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureGatewayErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = gatewayHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultGatewayTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultGatewayTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return GatewayErrorBadInput
	case goerrors.CategoryNotFound:
		return GatewayErrorAccountNotFound
	case goerrors.CategoryConflict:
		return GatewayErrorAccountExists
	case goerrors.CategoryExternal:
		return GatewayErrorEngineFailure
	default:
		return GatewayErrorInternal
	}
}

func gatewayHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal, goerrors.CategoryOperation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
