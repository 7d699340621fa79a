// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"iter"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simbo1905/mcp-switchboard/internal/apperr"
	"github.com/simbo1905/mcp-switchboard/internal/cloud"
	"github.com/simbo1905/mcp-switchboard/internal/config"
	"github.com/simbo1905/mcp-switchboard/internal/logging"
	"github.com/simbo1905/mcp-switchboard/internal/secretstore"
	"github.com/simbo1905/mcp-switchboard/internal/storage"
	"github.com/simbo1905/mcp-switchboard/internal/stream"
)

// Secrets is the credential store consumed by the service.
type Secrets interface {
	stream.CredentialSource
	SaveCredential(value string) error
	HasSecret() bool
	SetPreferredModel(model string) error
}

// Provider is the completion backend.
type Provider interface {
	stream.Opener
	ListModels(ctx context.Context, credential string) ([]cloud.ModelInfo, error)
}

// Recorder receives one summary per finished session.
type Recorder interface {
	Observe(sum stream.Summary)
}

// Options wires a Service. Secrets and Provider are required.
type Options struct {
	Secrets     Secrets
	Provider    Provider
	Recorder    Recorder
	IdleTimeout time.Duration
	Logger      logrus.FieldLogger
}

// Service exposes the boundary operations used by the command line and
// the chat view.
type Service struct {
	secrets  Secrets
	provider Provider
	recorder Recorder
	idle     atomic.Int64
	log      logrus.FieldLogger
}

// New creates a Service from opts.
func New(opts Options) *Service {
	s := &Service{
		secrets:  opts.Secrets,
		provider: opts.Provider,
		recorder: opts.Recorder,
		log:      logging.Component(opts.Logger, "app"),
	}
	s.idle.Store(int64(opts.IdleTimeout))
	return s
}

// GetAPIConfig returns the effective credential, if any.
func (s *Service) GetAPIConfig() (string, bool, error) {
	s.log.Debug("API configuration requested")
	cred, ok, err := s.secrets.Credential()
	if err != nil {
		s.log.WithError(err).Error("Failed to get API key")
		return "", false, err
	}
	return cred, ok, nil
}

// SaveAPIConfig persists a credential.
func (s *Service) SaveAPIConfig(credential string) error {
	s.log.Info("Saving API configuration")
	if err := s.secrets.SaveCredential(credential); err != nil {
		s.log.WithError(err).Error("Failed to save API key")
		return err
	}
	return nil
}

// HasAPIConfig reports whether a credential is configured, without
// decrypting anything.
func (s *Service) HasAPIConfig() bool {
	ok := s.secrets.HasSecret()
	s.log.WithField("configured", ok).Debug("Checked API configuration")
	return ok
}

// GetCurrentModel returns the preferred model or the default.
func (s *Service) GetCurrentModel() string {
	return s.secrets.PreferredModel()
}

// SetPreferredModel persists the preferred model.
func (s *Service) SetPreferredModel(model string) error {
	model = strings.TrimSpace(model)
	s.log.WithField("model", model).Info("Setting preferred model")
	if err := s.secrets.SetPreferredModel(model); err != nil {
		s.log.WithError(err).Error("Failed to save preferred model")
		return err
	}
	return nil
}

// AvailableModels lists the models offered by the provider.
func (s *Service) AvailableModels(ctx context.Context) ([]cloud.ModelInfo, error) {
	cred, ok, err := s.secrets.Credential()
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Error("No API key configured")
		return nil, apperr.ErrNoCredential
	}

	models, err := s.provider.ListModels(ctx, cred)
	if err != nil {
		return nil, err
	}
	s.log.WithField("count", len(models)).Info("Fetched available models")
	return models, nil
}

// StreamChat relays message to the provider. The sequence always ends with
// exactly one terminal event unless the caller stops early.
func (s *Service) StreamChat(ctx context.Context, message string, opts ...stream.Option) iter.Seq[stream.Event] {
	base := []stream.Option{
		stream.WithIdleTimeout(s.IdleTimeout()),
		stream.WithLogger(s.log),
	}
	if s.recorder != nil {
		base = append(base, stream.WithObserver(s.recorder.Observe))
	}
	return stream.Relay(ctx, s.secrets, s.provider, message, append(base, opts...)...)
}

// IdleTimeout returns the stream watchdog interval applied to new sessions.
func (s *Service) IdleTimeout() time.Duration {
	return time.Duration(s.idle.Load())
}

// SetIdleTimeout changes the watchdog for sessions started afterwards.
func (s *Service) SetIdleTimeout(d time.Duration) {
	s.idle.Store(int64(d))
}

// LogInfo relays a message from the user interface into the log.
func (s *Service) LogInfo(message string) {
	s.log.Infof("[Frontend] %s", message)
}

// =============================================================================
// ASSEMBLY
// =============================================================================

// Runtime is a fully wired Service together with the resources it owns.
type Runtime struct {
	*Service

	Config  *config.Config
	Dir     string
	Store   *secretstore.Store
	Client  *cloud.Client
	History *storage.History
	Logger  *logging.Logger
}

// Open loads settings from dir and wires the store, client, history and
// logger. History failures are logged and leave history disabled.
func Open(dir string) (*Runtime, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.LogFile(dir),
	})
	if err != nil {
		return nil, err
	}

	store, err := secretstore.New(secretstore.Options{Dir: dir, Logger: logger})
	if err != nil {
		logger.Close()
		return nil, err
	}

	client := cloud.NewClient(cloud.Options{
		BaseURL:           cfg.API.BaseURL,
		CatalogURL:        cfg.API.CatalogURL,
		Timeout:           cfg.RequestTimeout(),
		RequestsPerMinute: cfg.API.RequestsPerMinute,
		Logger:            logger,
	})

	rt := &Runtime{
		Config: cfg,
		Dir:    dir,
		Store:  store,
		Client: client,
		Logger: logger,
	}

	opts := Options{
		Secrets:     store,
		Provider:    client,
		IdleTimeout: cfg.IdleTimeout(),
		Logger:      logger,
	}
	if cfg.History.Enabled {
		h, err := storage.OpenHistory(cfg.HistoryPath(dir), logger)
		if err != nil {
			logger.WithError(err).Warn("Session history unavailable")
		} else {
			rt.History = h
			opts.Recorder = h
		}
	}
	rt.Service = New(opts)
	return rt, nil
}

// Reload applies settings that can change while running: log level and
// format, and the stream idle timeout.
func (r *Runtime) Reload(cfg *config.Config) {
	r.Logger.Apply(cfg.Log.Level, cfg.Log.Format)
	r.SetIdleTimeout(cfg.IdleTimeout())
	r.Logger.WithFields(logrus.Fields{
		"log_level":    cfg.Log.Level,
		"idle_timeout": cfg.IdleTimeout(),
	}).Info("Settings reloaded")
}

// Close releases the history database and the log file.
func (r *Runtime) Close() error {
	var first error
	if r.History != nil {
		first = r.History.Close()
	}
	if err := r.Logger.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
