package storage

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/c360/statestore/host"
	"github.com/c360/statestore/metric"
)

// Option configures a storage service.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	host      *host.Lifecycle
	registrar metric.Registrar

	// Test seams; production always uses the real clock and random IDs.
	now           func() time.Time
	newInstanceID func() string
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:        slog.New(slog.DiscardHandler),
		now:           time.Now,
		newInstanceID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHostLifecycle wires the service to the host's lifecycle signals: the
// after-window-open signal triggers background initialization, and the
// service joins the will-shutdown barrier with its Close.
func WithHostLifecycle(l *host.Lifecycle) Option {
	return func(o *options) { o.host = l }
}

// WithMetrics registers service and store instrumentation on the given
// registrar.
func WithMetrics(reg metric.Registrar) Option {
	return func(o *options) { o.registrar = reg }
}
