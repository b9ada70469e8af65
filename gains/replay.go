// Package gains replays a transaction history against a lot ledger and
// reports the realized capital gains.
//
// Records are classified by counterparty: assets arriving from an exchange
// or entity are acquisitions, assets leaving to one are disposals, and
// everything else is a transfer between our own accounts that does not touch
// the ledger. Quantities and prices are taken verbatim from the record.
//
//	ledger, _ := lots.FromSnapshot(starting)
//	report, err := gains.Replay(ctx, ledger, records, gains.WithTaxYear(2018))
//	if errors.Is(err, lots.ErrInsufficientLots) {
//	    // a disposal sold more than was held
//	}
//
// Money values in the report are rounded to cents; nothing else is.
package gains

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robinvdvleuten/taxlots/history"
	"github.com/robinvdvleuten/taxlots/lots"
	"github.com/robinvdvleuten/taxlots/telemetry"
)

// Replay applies records to ledger in order and returns the report. The
// ledger is mutated in place; on error it reflects every record applied
// before the failing one.
func Replay(ctx context.Context, ledger *lots.Ledger, records []history.Record, opts ...Option) (*Report, error) {
	o := newOptions(opts)

	timer, _ := telemetry.StartTimer(ctx, fmt.Sprintf("replay %d records", len(records)))
	defer timer.End()

	r := &replayer{
		opts:   o,
		ledger: ledger,
		report: &Report{
			TaxYear:  o.taxYear,
			Rows:     []Row{},
			Starting: ledger.Snapshot(),
		},
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.apply(rec); err != nil {
			return nil, err
		}
	}

	r.report.Totals = Totals{
		ShortTerm: r.shortTerm.round(),
		LongTerm:  r.longTerm.round(),
		All:       r.shortTerm.add(r.longTerm.Proceeds, r.longTerm.Cost).round(),
	}
	r.report.Leftover = ledger.Snapshot()

	o.logger.Debug("replay finished",
		slog.Int("records", r.report.Stats.Records),
		slog.Int("disposals", r.report.Stats.Disposals),
		slog.String("leftover", ledger.String()))

	return r.report, nil
}

type replayer struct {
	opts   *options
	ledger *lots.Ledger
	report *Report

	last      time.Time
	shortTerm Amounts
	longTerm  Amounts
}

func (r *replayer) apply(rec history.Record) error {
	r.report.Stats.Records++
	log := r.opts.logger.With(slog.String("record", rec.Position()))

	when, err := rec.Time()
	if err != nil {
		return r.invalid(rec, lots.NewInvalidInputError(rec.Asset, "timestamp", rec.Timestamp, err.Error()))
	}
	if when.Before(r.last) {
		return &RecordError{
			Record: rec,
			Err:    fmt.Errorf("%w: %s is before %s", history.ErrOutOfOrder, rec.Timestamp, r.last.Format(time.RFC3339)),
		}
	}
	r.last = when

	if r.opts.taxYear != 0 && when.Year() != r.opts.taxYear {
		r.report.Stats.OutsideYear++
		r.opts.observer.RecordSkipped("outside_year")
		log.Debug("record outside tax year", slog.Int("year", when.Year()))
		return nil
	}

	kind := r.opts.classifier.Classify(rec)
	if kind == history.Transfer {
		r.report.Stats.Transfers++
		r.opts.observer.RecordProcessed(kind)
		log.Debug("ignoring transfer", slog.String("from", rec.From), slog.String("to", rec.To))
		return nil
	}

	quantity, err := lots.ParseDecimal(rec.Asset, "quantity", rec.Quantity)
	if err != nil {
		return r.invalid(rec, err)
	}
	if quantity.IsZero() {
		r.report.Stats.ZeroQuantity++
		r.opts.observer.RecordSkipped("zero_quantity")
		log.Debug("skipping zero quantity record")
		return nil
	}
	price, err := lots.ParseDecimal(rec.Asset, "price", rec.Price)
	if err != nil {
		return r.invalid(rec, err)
	}

	switch kind {
	case history.Acquisition:
		if err := r.ledger.AcquireAt(rec.Asset, quantity, price, when); err != nil {
			return r.invalid(rec, err)
		}
		r.report.Stats.Acquisitions++
		log.Debug("acquired", slog.String("asset", rec.Asset), slog.String("quantity", quantity.String()))

	case history.Disposal:
		disposal, err := r.ledger.Dispose(rec.Asset, quantity, price)
		if errors.Is(err, lots.ErrInsufficientLots) {
			return &RecordError{Record: rec, Err: err}
		}
		if err != nil {
			return r.invalid(rec, err)
		}
		r.report.Stats.Disposals++
		r.opts.observer.Disposed(rec.Asset, disposal)

		rows, exact := splitDisposal(disposal, when, rec.Line)
		for i, row := range rows {
			if row.Term == LongTerm {
				r.longTerm = r.longTerm.add(exact[i].Proceeds, exact[i].Cost)
			} else {
				r.shortTerm = r.shortTerm.add(exact[i].Proceeds, exact[i].Cost)
			}
		}
		r.report.Rows = append(r.report.Rows, rows...)
		log.Debug("disposed",
			slog.String("asset", rec.Asset),
			slog.String("quantity", quantity.String()),
			slog.String("gain", disposal.GainOrLoss.String()))
	}

	r.opts.observer.RecordProcessed(kind)
	return nil
}

// invalid halts the replay with err, or records the skip when the replay
// tolerates malformed records.
func (r *replayer) invalid(rec history.Record, err error) error {
	if !r.opts.skipInvalid {
		return &RecordError{Record: rec, Err: err}
	}
	r.report.Stats.Invalid++
	r.report.Skipped = append(r.report.Skipped, SkippedRecord{
		Filename: rec.Filename,
		Line:     rec.Line,
		Reason:   err.Error(),
	})
	r.opts.observer.RecordSkipped("invalid")
	r.opts.logger.Warn("skipping invalid record", slog.String("record", rec.Position()), slog.Any("error", err))
	return nil
}
