package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/clockhand-db/buffercore/src/bufferpool"
	"github.com/clockhand-db/buffercore/src/flusher"
	"github.com/clockhand-db/buffercore/src/httpstats"
	"github.com/clockhand-db/buffercore/src/pkg/common"
	"github.com/clockhand-db/buffercore/src/pkg/config"
	"github.com/clockhand-db/buffercore/src/pkg/logging"
	"github.com/clockhand-db/buffercore/src/replacer"
	"github.com/clockhand-db/buffercore/src/storage/disk"
)

const closeTimeout = 15 * time.Second

// entrypoint holds everything a serve run needs to start and gracefully
// stop, following the module's Init/Run/Close lifecycle convention.
type entrypoint struct {
	envFile string

	log   logging.Logger
	flush *flusher.Pool
	http  *httpstats.Server
}

func (e *entrypoint) Init(_ context.Context) error {
	cfg, err := config.Load(e.envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.New(cfg.Environment)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	e.log = log

	diskMgr, err := disk.New(afero.NewOsFs(), cfg.DataDir, common.DefaultPageSize)
	if err != nil {
		return fmt.Errorf("setting up disk manager: %w", err)
	}

	rep := replacer.NewClockReplacer(int(cfg.PoolSize))
	pool := bufferpool.New(cfg.PoolSize, common.DefaultPageSize, rep, diskMgr, common.NoOpLogManager{})
	pool.SetLogger(log)

	flushPool, err := flusher.New(cfg.FlushWorkers)
	if err != nil {
		return fmt.Errorf("setting up flush worker pool: %w", err)
	}
	e.flush = flushPool
	pool.SetFlusher(flushPool)

	handler := &httpstats.Handler{Pool: pool, Logger: log}
	e.http = httpstats.NewServer(cfg.HTTPAddr, handler, log)

	return nil
}

func (e *entrypoint) Run(_ context.Context) error {
	return e.http.Run()
}

func (e *entrypoint) Close() (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if e.http != nil {
		err = e.http.Close(ctx)
	}
	if e.flush != nil {
		e.flush.Close()
	}
	if e.log != nil {
		if err != nil {
			e.log.Errorf("failed to close stats server: %v", err)
		}
		if logErr := e.log.Sync(); logErr != nil && err == nil {
			err = logErr
		}
	}
	return err
}

func newServeCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a buffer pool instance with an HTTP stats endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := &entrypoint{envFile: envFile}
			if err := e.Init(cmd.Context()); err != nil {
				return err
			}
			defer func() {
				if err := e.Close(); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- e.Run(cmd.Context()) }()

			select {
			case err := <-errCh:
				return err
			case <-sigCtx.Done():
				e.log.Infof("shutdown signal received")
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to an optional .env file")
	return cmd
}
