package backends

import (
	"github.com/tidewatch/tidewatch"
	"github.com/tidewatch/tidewatch/log"
)

type Options struct {
	Logger    *log.Logger
	Telemetry *tidewatch.Telemetry
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		Logger: log.Discard(),
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(opts *Options) error {
		opts.Logger = logger
		return nil
	}
}

func WithTelemetry(telemetry *tidewatch.Telemetry) Option {
	return func(opts *Options) error {
		opts.Telemetry = telemetry
		return nil
	}
}
