package query

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/wildcatlabs/wildcat/core"
)

// queryDependencyError reports a mis-wired handler. Input problems are
// covered by the message Validate() hooks, so this is the only envelope
// the query package constructs itself.
func queryDependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.GatewayErrorInternal)
}
