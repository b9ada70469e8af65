package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/taxlots/store/file"
	"github.com/robinvdvleuten/taxlots/web"
)

type ServeCmd struct {
	File        string `help:"Transaction history CSV to serve." arg:"" type:"existingfile"`
	ReplayFlags `embed:""`

	Host    string `help:"Host to bind (overrides server.host)."`
	Port    int    `help:"Port to listen on (overrides server.port)." short:"p"`
	NoWatch bool   `help:"Do not reload when the history or snapshot changes."`
}

func (cmd *ServeCmd) Run(ctx *kong.Context, globals *Globals) error {
	e, err := globals.setup(ctx, "serve")
	if err != nil {
		return err
	}
	defer e.close()

	historyFile, err := filepath.Abs(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	ldr, err := newLoader(e.cfg, cmd.Unsorted)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(e.ctx, e.cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	version := Version
	if version == "" {
		version = "dev"
	}
	commitSHA := CommitSHA
	if commitSHA == "" {
		commitSHA = "local"
	}

	sess := cmd.newSession(e, st, nil)
	files := append([]string{historyFile}, cmd.Include...)

	server := web.NewWithVersion(e.cfg.Server.Port, sess, version, commitSHA, files...)
	server.Host = e.cfg.Server.Host
	server.Loader = ldr
	server.Logger = e.logger
	server.WatchEnabled = e.cfg.Server.Watch && !cmd.NoWatch
	if cmd.Host != "" {
		server.Host = cmd.Host
	}
	if cmd.Port != 0 {
		server.Port = cmd.Port
	}
	if fs, ok := st.(*file.Store); ok {
		server.WatchFiles = append(server.WatchFiles, fs.Path(sess.Key))
	}

	printInfof(ctx.Stdout, "Starting server on http://%s", server.Addr())
	printInfof(ctx.Stdout, "Serving history: %s", pathStyle.Render(historyFile))
	if server.WatchEnabled {
		printInfof(ctx.Stdout, "Watching for changes")
	}

	runCtx, stop := signal.NotifyContext(e.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
