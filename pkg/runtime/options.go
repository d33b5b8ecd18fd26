package runtime

import (
	"log/slog"

	"github.com/vango-dev/sprout/pkg/archive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of the default tracer.
const TracerName = "github.com/vango-dev/sprout/pkg/runtime"

type options struct {
	config   *Config
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	recorder archive.Recorder
	session  string
}

// Option configures a Runtime.
type Option func(*options)

// WithConfig replaces the default Config.
func WithConfig(c *Config) Option {
	return func(o *options) { o.config = c.Clone() }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics enables prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer for render spans. Default: the global
// provider's tracer named TracerName.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithRecorder records every patch sent.
func WithRecorder(r archive.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithSessionID names the runtime in logs and archived records.
func WithSessionID(session string) Option {
	return func(o *options) { o.session = session }
}

func buildOptions(opts []Option) options {
	o := options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(TracerName)
	}
	return o
}
