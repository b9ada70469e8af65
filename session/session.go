// Package session runs one replay end to end: the starting snapshot comes
// from a store, the records from a loader, and the result carries the report
// together with the forms derived from it.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/taxlots/forms"
	"github.com/robinvdvleuten/taxlots/gains"
	"github.com/robinvdvleuten/taxlots/loader"
	"github.com/robinvdvleuten/taxlots/lots"
	"github.com/robinvdvleuten/taxlots/store"
	"github.com/robinvdvleuten/taxlots/telemetry"
)

// DefaultLockTTL bounds how long a saving run holds its key.
const DefaultLockTTL = 30 * time.Second

// Session holds everything a replay needs besides the records.
type Session struct {
	Store   store.Store
	Locker  store.Locker
	Key     string
	LockTTL time.Duration

	Options []gains.Option

	Personal    forms.Personal
	RowsPerPage int
	LossLimit   decimal.Decimal
}

// Result is the outcome of a run.
type Result struct {
	Files     []string
	Report    *gains.Report
	F8949     []*forms.F8949
	ScheduleD *forms.ScheduleD
}

// Run replays in against the stored starting snapshot. A missing snapshot
// starts from an empty ledger. Nothing is written back.
func (s *Session) Run(ctx context.Context, in *loader.Result) (*Result, error) {
	timer, ctx := telemetry.StartTimer(ctx, "session "+s.Key)
	defer timer.End()

	starting, err := s.loadStarting(ctx)
	if err != nil {
		return nil, err
	}

	ledger, err := lots.FromSnapshot(starting)
	if err != nil {
		return nil, fmt.Errorf("starting snapshot %q: %w", s.Key, err)
	}

	report, err := gains.Replay(ctx, ledger, in.Records, s.Options...)
	if err != nil {
		return nil, err
	}

	lossLimit := s.LossLimit
	if lossLimit.IsZero() {
		lossLimit = forms.LossLimit(s.Personal.FilingStatus)
	}

	pages := forms.BuildF8949(s.Personal, report.Rows, s.RowsPerPage)
	return &Result{
		Files:     in.Files,
		Report:    report,
		F8949:     pages,
		ScheduleD: forms.BuildScheduleD(s.Personal, pages, lossLimit),
	}, nil
}

// RunAndSave is Run followed by saving the leftover lots under the same key.
// The key stays locked from loading the starting snapshot until the save
// completes.
func (s *Session) RunAndSave(ctx context.Context, in *loader.Result) (*Result, error) {
	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	locker := s.Locker
	if locker == nil {
		locker = store.NopLocker{}
	}

	unlock, err := locker.Acquire(ctx, s.Key, ttl)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := s.Run(ctx, in)
	if err != nil {
		return nil, err
	}

	timer, ctx := telemetry.StartTimer(ctx, "save snapshot "+s.Key)
	defer timer.End()

	if err := s.Store.Save(ctx, s.Key, res.Report.Leftover); err != nil {
		return nil, fmt.Errorf("save leftover lots: %w", err)
	}
	return res, nil
}

func (s *Session) loadStarting(ctx context.Context) (lots.Snapshot, error) {
	timer, ctx := telemetry.StartTimer(ctx, "load snapshot "+s.Key)
	defer timer.End()

	snap, err := store.LoadOrEmpty(ctx, s.Store, s.Key)
	if err != nil {
		return nil, fmt.Errorf("load starting lots: %w", err)
	}
	return snap, nil
}
