package tidewatch

import "github.com/tidewatch/tidewatch/log"

type TrackerOptions struct {
	Logger    *log.Logger
	Telemetry *Telemetry

	// DeletionsEnabled controls whether Poll runs the deletion/update pass.
	// Enabled by default; without it removed objects are never noticed.
	DeletionsEnabled bool
}

type TrackerOption func(*TrackerOptions) error

func newDefaultTrackerOptions() *TrackerOptions {
	return &TrackerOptions{
		Logger:           log.Discard(),
		DeletionsEnabled: true,
	}
}

func WithLogger(logger *log.Logger) TrackerOption {
	return func(opts *TrackerOptions) error {
		opts.Logger = logger
		return nil
	}
}

func WithTelemetry(telemetry *Telemetry) TrackerOption {
	return func(opts *TrackerOptions) error {
		opts.Telemetry = telemetry
		return nil
	}
}

func WithoutDeletions() TrackerOption {
	return func(opts *TrackerOptions) error {
		opts.DeletionsEnabled = false
		return nil
	}
}
