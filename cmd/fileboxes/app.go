package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/newthinker/fileboxes/internal/config"
	"github.com/newthinker/fileboxes/internal/logger"
	"github.com/newthinker/fileboxes/internal/metrics"
	"github.com/newthinker/fileboxes/internal/snapshot"
	"github.com/newthinker/fileboxes/internal/storage/blob"
	"github.com/newthinker/fileboxes/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile string
	debug   bool
	archive string

	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Registry
}

// envFiles are loaded in order; later files override earlier ones.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles() error {
	for i, name := range envFiles {
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		load := godotenv.Load
		if i > 0 {
			load = godotenv.Overload
		}
		if err := load(name); err != nil {
			return fmt.Errorf("loading %s: %w", name, err)
		}
	}
	return nil
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := loadEnvFiles(); err != nil {
		return err
	}

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.archive != "" {
		cfg.Archive.Path = a.archive
	}
	if a.debug {
		cfg.Log.Development = true
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	a.cfg = cfg

	a.log, err = logger.New(cfg.Log.Development, cfg.Log.Level)
	if err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	a.log.Debug("config loaded",
		zap.String("archive", cfg.Archive.Path),
		zap.Bool("snapshots", cfg.Snapshot.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)
	return nil
}

func (a *app) teardown() error {
	if a.log == nil {
		return nil
	}
	defer a.log.Sync()

	if a.metrics != nil && a.cfg.Metrics.Enabled {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		a.log.Debug("metrics written", zap.String("path", a.cfg.Metrics.Textfile))
	}
	return nil
}

// openStore builds a store for the configured archive, wired to the
// logger, metrics and (when enabled) the snapshot hook.
func (a *app) openStore(ctx context.Context, fresh bool) (*store.Store, error) {
	opts := []store.Option{
		store.WithFresh(fresh || a.cfg.Archive.Fresh),
		store.WithLogger(a.log),
	}
	if a.metrics != nil {
		opts = append(opts, store.WithRecorder(a.metrics))
	}
	if a.cfg.Snapshot.Enabled && a.cfg.Snapshot.BeforeRewrite {
		m, err := a.snapshots()
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithBeforeRewrite(m.Hook(ctx)))
	}
	return store.New(a.cfg.Archive.Path, opts...), nil
}

func (a *app) snapshots() (*snapshot.Manager, error) {
	sc := a.cfg.Snapshot
	compression, err := snapshot.ParseCompression(sc.Compression)
	if err != nil {
		return nil, err
	}
	storage, err := a.blobStorage()
	if err != nil {
		return nil, err
	}

	opts := []snapshot.Option{
		snapshot.WithCompression(compression),
		snapshot.WithRetain(sc.Retain),
		snapshot.WithLogger(a.log),
	}
	if a.metrics != nil {
		opts = append(opts, snapshot.WithRecorder(a.metrics))
	}
	return snapshot.New(storage, opts...), nil
}

func (a *app) blobStorage() (blob.Storage, error) {
	sc := a.cfg.Snapshot.Storage
	switch sc.Type {
	case "s3":
		return blob.NewS3(blob.S3Config{
			Bucket:    sc.S3.Bucket,
			Endpoint:  sc.S3.Endpoint,
			Region:    sc.S3.Region,
			AccessKey: sc.S3.AccessKey,
			SecretKey: sc.S3.SecretKey,
			Prefix:    sc.S3.Prefix,
		})
	case "localfs", "":
		return blob.NewLocalFS(sc.Path)
	default:
		return nil, fmt.Errorf("unknown snapshot storage type %q", sc.Type)
	}
}
