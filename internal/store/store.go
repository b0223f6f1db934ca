package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row or object.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("already exists")
)

// Option configures a relational store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for created_at columns.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
