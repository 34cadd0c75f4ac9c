// Package store is the error boundary between the API and the repositories.
//
// Conventions shared by every operation:
//   - a missing row is reported as a nil result, not an error;
//   - failures are *apperr.Error values with a fixed message per operation,
//     the underlying cause is logged here and kept only in Unwrap;
//   - constraint violations (foreign key, unique) are apperr.Conflict,
//     bad input is apperr.Validation, anything else apperr.Storage.
package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Skryldev/graphql-todo/apperr"
	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/logging"
	"github.com/Skryldev/graphql-todo/repo"
)

// MsgNoFields is returned, as a Validation error, by partial updates that
// carry no field.
const MsgNoFields = "No fields to update"

// MsgOwnerNotFound is the Conflict message of a todo update whose owner row
// has vanished.
const MsgOwnerNotFound = "Todo owner not found"

// fail classifies err, logs it with its cause and returns the client-safe
// *apperr.Error.
func fail(ctx context.Context, op, msg string, err error) error {
	kind := apperr.Storage
	switch {
	case errors.Is(err, repo.ErrNoFields):
		kind, msg = apperr.Validation, MsgNoFields
	case errors.Is(err, repo.ErrOwnerMissing):
		kind, msg = apperr.Conflict, MsgOwnerNotFound
	case db.IsConstraintViolation(err):
		kind = apperr.Conflict
	}

	var ev *zerolog.Event
	if kind == apperr.Storage {
		ev = logging.Ctx(ctx).Error()
	} else {
		ev = logging.Ctx(ctx).Warn()
	}
	ev.Err(err).Str("component", "store").Str("op", op).Str("kind", kind.String()).Msg(msg)

	return apperr.E(kind, op, msg, err)
}

// invalid wraps a validation failure. The validator's message is safe to
// show: it names API fields and rules only.
func invalid(ctx context.Context, op string, err error) error {
	logging.Ctx(ctx).Debug().Err(err).Str("component", "store").Str("op", op).Msg("invalid input")
	return apperr.E(apperr.Validation, op, err.Error(), err)
}
