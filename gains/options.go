package gains

import (
	"log/slog"

	"github.com/robinvdvleuten/taxlots/history"
	"github.com/robinvdvleuten/taxlots/lots"
)

// Observer is notified as a replay progresses. The metrics package provides
// a Prometheus implementation.
type Observer interface {
	RecordProcessed(kind history.Kind)
	RecordSkipped(reason string)
	Disposed(asset string, disposal *lots.Disposal)
}

type noopObserver struct{}

func (noopObserver) RecordProcessed(history.Kind)    {}
func (noopObserver) RecordSkipped(string)            {}
func (noopObserver) Disposed(string, *lots.Disposal) {}

type options struct {
	taxYear     int
	skipInvalid bool
	classifier  history.Classifier
	logger      *slog.Logger
	observer    Observer
}

// Option configures a replay.
type Option func(*options)

// WithTaxYear limits the replay to records dated in year. Records outside
// the year are skipped and counted.
func WithTaxYear(year int) Option {
	return func(o *options) {
		o.taxYear = year
	}
}

// WithSkipInvalid skips records with malformed fields instead of halting.
// Skipped records are listed in the report.
func WithSkipInvalid() Option {
	return func(o *options) {
		o.skipInvalid = true
	}
}

// WithClassifier replaces the default counterparty classifier.
func WithClassifier(c history.Classifier) Option {
	return func(o *options) {
		o.classifier = c
	}
}

// WithLogger sets the logger used for per-record debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers an observer for replay events.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		classifier: history.DefaultClassifier(),
		logger:     slog.New(slog.DiscardHandler),
		observer:   noopObserver{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
