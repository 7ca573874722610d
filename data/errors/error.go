// Package errors builds contextual fsdb errors that keep the underlying
// sentinel reachable through errors.Is.
package errors

import (
	"fmt"
)

func newError(err error, format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if err == nil {
		return fmt.Errorf("fsdb: %s", text)
	}

	return fmt.Errorf("fsdb: %s: %w", text, err)
}

func InvalidID(err error, id string) error {
	return newError(err, "invalid identifier '%s'", id)
}

func EntryNotExist(err error, key string) error {
	return newError(err, "entry '%s' does not exist", key)
}

func EntryExist(err error, key string) error {
	return newError(err, "entry '%s' already exists", key)
}

func ObjectNotExist(err error, key string) error {
	return newError(err, "object '%s' does not exist", key)
}

func BackendUnsupported(err error, name string) error {
	return newError(err, "backend capability unsupported for '%s'", name)
}

func BackendFailed(err error, name string) error {
	return newError(err, "backend '%s' failed", name)
}

func DatabaseBusy(err error, owner string) error {
	if owner == "" {
		return newError(err, "database is locked")
	}
	return newError(err, "database is locked by '%s'", owner)
}
