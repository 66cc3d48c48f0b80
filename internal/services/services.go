// Package services holds the back-office use cases. Every write publishes the
// touched collection on the live bus.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-chantier/internal/live"
	"github.com/diewo77/gestion-chantier/validation"
)

var (
	ErrNotFound           = errors.New("not_found")
	ErrReadOnly           = errors.New("read_only")
	ErrInvalid            = errors.New("invalid")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrNotAllowed         = errors.New("not_allowed")
)

// ValidationError carries per-field violation codes. It matches ErrInvalid.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string { return e.Violations.Error() }

func (e *ValidationError) Unwrap() error { return ErrInvalid }

func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

// Violations extracts field errors from err, if any.
func Violations(err error) (validation.Violations, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Violations, true
	}
	return nil, false
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type notifier struct {
	bus live.Bus
}

func (n notifier) publish(ctx context.Context, topics ...string) {
	if n.bus == nil {
		return
	}
	for _, t := range topics {
		if err := n.bus.Publish(context.WithoutCancel(ctx), t); err != nil {
			slog.Warn("publish change", "topic", t, "error", err)
		}
	}
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
