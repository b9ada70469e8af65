package cli

import (
	"errors"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/taxlots/history"
	"github.com/robinvdvleuten/taxlots/lots"
	"github.com/robinvdvleuten/taxlots/session"
	"github.com/robinvdvleuten/taxlots/store"
)

// replay loads the history and runs a session. Failures that concern the
// input are rendered to stderr and returned as a CommandError.
func replay(kctx *kong.Context, e *env, file *FileOrStdin, flags *ReplayFlags, save bool) (*session.Result, error) {
	if err := file.EnsureContents(); err != nil {
		return nil, err
	}

	ldr, err := newLoader(e.cfg, flags.Unsorted)
	if err != nil {
		return nil, err
	}

	in, err := file.Load(e.ctx, ldr, flags.Include...)
	if err != nil {
		return nil, renderFailure(kctx, file, err, "failed to read history")
	}

	st, closeStore, err := openStore(e.ctx, e.cfg)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	sess := flags.newSession(e, st, nil)

	run := sess.Run
	if save {
		locker, closeLocker, err := openLocker(e.ctx, e.cfg)
		if err != nil {
			return nil, err
		}
		defer closeLocker()

		sess.Locker = locker
		run = sess.RunAndSave
	}

	res, err := run(e.ctx, in)
	if errors.Is(err, store.ErrLockHeld) {
		printError(kctx.Stderr, fmt.Sprintf("snapshot %q is being updated by another run", sess.Key))
		return nil, NewCommandError(1)
	}
	if err != nil {
		return nil, renderFailure(kctx, file, err, "replay failed")
	}

	for _, skipped := range res.Report.Skipped {
		printWarning(kctx.Stderr, fmt.Sprintf("skipped %s:%d: %s", skipped.Filename, skipped.Line, skipped.Reason))
	}

	return res, nil
}

// renderFailure prints input errors with source context. Other errors are
// returned unchanged.
func renderFailure(kctx *kong.Context, file *FileOrStdin, err error, summary string) error {
	var colErr *history.MissingColumnError
	inputErr := errors.As(err, &colErr) ||
		errors.Is(err, lots.ErrInvalidInput) ||
		errors.Is(err, lots.ErrInsufficientLots) ||
		errors.Is(err, history.ErrOutOfOrder)
	if !inputErr {
		return err
	}

	source, _ := file.GetSourceContent()
	renderer := NewErrorRenderer(file.Filename, source)
	_, _ = fmt.Fprintln(kctx.Stderr, renderer.Render(err))
	_, _ = fmt.Fprintln(kctx.Stderr)
	printError(kctx.Stderr, summary)

	return NewCommandError(1)
}
