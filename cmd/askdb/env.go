package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"askdb/internal/config"
	"askdb/internal/llm"
	"askdb/internal/logger"
	"askdb/internal/session"
)

// env is everything a command needs once flags are parsed.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *session.Service
	closers []io.Closer
}

// newEnv loads the configuration, sets up logging and builds the session.
// The interactive UI owns the terminal, so it always logs to a file.
func newEnv(common commonFlags, stderr io.Writer, interactive bool) (*env, error) {
	cfg, err := config.Load(common.config)
	if err != nil {
		return nil, err
	}
	if common.logLevel != "" {
		cfg.Log.Level = common.logLevel
	}

	opts := logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File, Writer: stderr}
	if interactive && opts.File == "" {
		opts.File = config.DefaultLogFile()
	}
	if !interactive && common.logLevel == "" && cfg.Log.Level == config.Default().Log.Level {
		// keep one-shot output clean unless asked otherwise
		opts.Level = "warn"
	}
	log, logCloser, err := logger.New(opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	key, source, err := config.APIKey(cfg)
	if err != nil {
		log.Warn("reading API key", "error", err)
	}
	if source != "" {
		log.Debug("API key found", "source", source)
	}
	model := cfg.Model(key)
	log.Debug("language model", "model", model.DisplayName())

	svc := session.NewService(session.Options{
		IngestDir: cfg.Ingest.Dir,
		DemoDB:    cfg.DemoDB,
		NewAgent:  session.LangchainAgents(model, cfg.Agent.MaxIterations, log),
		Inference: cfg.Inference(),
		Tokens:    llm.NewTokenCounter(),
		Logger:    log,
	})

	return &env{cfg: cfg, logger: log, session: svc, closers: []io.Closer{svc, logCloser}}, nil
}

// Close releases the store and the log file.
func (e *env) Close() error {
	var first error
	for _, c := range e.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// isDSN reports whether s names a database rather than a file to ingest.
func isDSN(s string) bool {
	return strings.Contains(s, "://")
}

// load opens the store selected by the common flags. Files are ingested into a
// private copy; DSNs are opened in place.
func (e *env) load(ctx context.Context, common commonFlags) (*session.Handle, error) {
	switch {
	case common.demo:
		return e.session.OpenDemo(ctx)
	case common.db == "":
		return nil, errors.New("--db or --demo is required")
	case isDSN(common.db):
		return e.session.Open(ctx, common.db)
	default:
		return e.session.UploadFile(ctx, common.db)
	}
}
