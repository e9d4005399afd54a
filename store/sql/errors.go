package sqlstore

import (
	goerrors "github.com/goliatone/go-errors"
)

// notFound builds the NotFound-categorized error the core's stores key
// absence checks off.
func notFound(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryNotFound)
}

func conflict(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryConflict)
}
