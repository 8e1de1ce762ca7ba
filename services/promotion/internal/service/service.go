package service

import (
	"errors"
	"strings"
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type options struct {
	now             func() time.Time
	defaultCurrency string
}

type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithDefaultCurrency is used when a product row carries no currency.
func WithDefaultCurrency(currency string) Option {
	return func(o *options) {
		o.defaultCurrency = strings.ToUpper(strings.TrimSpace(currency))
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, defaultCurrency: "XOF"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// notFoundAs turns a repository sentinel into a NotFoundError carrying the
// looked-up key. Other errors pass through.
func notFoundAs(err, sentinel error, entity string, key any) error {
	if errors.Is(err, sentinel) {
		return generalDomain.NewNotFound(entity, key)
	}
	return err
}
