package main

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/sprout/internal/config"
	"github.com/vango-dev/sprout/internal/errors"
	"github.com/vango-dev/sprout/pkg/archive"
	"github.com/vango-dev/sprout/pkg/runtime"
)

type serveFlags struct {
	config string
	addr   string
	bucket string
	prefix string
}

func serveCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo counter application",
		Long: `Serve runs one counter application per WebSocket connection on /ws.

It also exposes:
  /          an HTML snapshot of the initial render
  /metrics   prometheus metrics
  /healthz   liveness and patch history counters`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&f.config, "config", "c", "", "Configuration file (default: sprout.json or sprout.yaml in the working directory)")
	cmd.Flags().StringVar(&f.addr, "addr", "", "Listen address")
	cmd.Flags().StringVar(&f.bucket, "archive-bucket", "", "Archive every patch to this S3 bucket")
	cmd.Flags().StringVar(&f.prefix, "archive-prefix", "", "Object key prefix for archived patches")

	return cmd
}

func loadServeConfig(f serveFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.config != "" {
		cfg, err = config.LoadFile(f.config)
	} else {
		cfg, err = config.LoadOrDefault(".")
	}
	if err != nil {
		return nil, err
	}

	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.bucket != "" {
		cfg.Archive.Bucket = f.bucket
		if cfg.Archive.Region == "" {
			cfg.Archive.Region = "us-east-1"
		}
	}
	if f.prefix != "" {
		cfg.Archive.Prefix = f.prefix
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	logger := cfg.Logger(logOut).With("component", "serve")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	history := archive.NewHistory(cfg.Archive.HistorySize)
	recorders := []archive.Recorder{history}

	var s3 *archive.S3Archiver
	if cfg.Archive.Bucket != "" {
		s3 = archive.NewS3Archiver(archive.NewS3Client(cfg.S3Options()),
			cfg.Archive.Bucket, cfg.Archive.Prefix, cfg.Archive.Queue, logger)
		recorders = append(recorders, s3)
		logger.Info("archiving patches", "bucket", cfg.Archive.Bucket, "prefix", cfg.Archive.Prefix)
	}

	srv := newServer(ctx, serverDeps{
		config:   cfg,
		logger:   logger,
		metrics:  runtime.NewMetrics(runtime.WithRegistry(reg)),
		gatherer: reg,
		recorder: archive.Tee(recorders...),
		history:  history,
	})

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		if stderrors.Is(err, syscall.EADDRINUSE) {
			return errors.New("E121").Wrap(err).
				WithSuggestion("Pass a different --addr or stop the other process")
		}
		return errors.New("E120").Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- httpServer.Serve(ln) }()
	logger.Info("listening", "addr", "http://"+ln.Addr().String())

	select {
	case err := <-errc:
		return errors.New("E120").Wrap(err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	srv.wait()

	if s3 != nil {
		if err := s3.Close(shutdownCtx); err != nil {
			return errors.New("E161").Wrap(err)
		}
		stored, failed, dropped := s3.Stats()
		logger.Info("archive flushed", "stored", stored, "failed", failed, "dropped", dropped)
	}
	logger.Debug("history", "patches", history.Count(), "bytes", history.Bytes())
	return nil
}
