// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package secretstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/simbo1905/mcp-switchboard/internal/apperr"
	"github.com/simbo1905/mcp-switchboard/internal/logging"
	"github.com/simbo1905/mcp-switchboard/internal/util"
)

// Process-wide constants. None of these are user-settable at runtime.
const (
	// AppDirName is the directory under the user configuration directory.
	AppDirName = "mcp-switchboard"
	// FileName is the encrypted secret file inside the app directory.
	FileName = "config.json"
	// EnvAPIKey overrides the stored credential when set and non-empty.
	EnvAPIKey = "TOGETHERAI_API_KEY"
	// DefaultModel is returned when no preferred model has been saved.
	DefaultModel = "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo"
)

// Source reports where a credential would come from.
type Source string

const (
	SourceNone        Source = "none"
	SourceEnvironment Source = "environment"
	SourceFile        Source = "file"
)

// record is the plaintext inside the encrypted blob.
type record struct {
	Credential     string  `json:"together_ai_api_key"`
	PreferredModel *string `json:"preferred_model"`
}

// Options configures a Store. Only Dir is required.
type Options struct {
	// Dir is the application directory holding the secret file.
	Dir string
	// EnvVar overrides EnvAPIKey; tests use it to avoid the real variable.
	EnvVar string
	// DefaultModel overrides the package DefaultModel.
	DefaultModel string
	// Identity overrides CurrentIdentity for key derivation.
	Identity *Identity
	Logger   logrus.FieldLogger
}

// Store owns the encrypted secret file. It is safe for concurrent use.
type Store struct {
	dir          string
	path         string
	lockPath     string
	envVar       string
	defaultModel string
	key          [KeySize]byte
	log          logrus.FieldLogger

	// mu serializes read-modify-write cycles within the process; lockFile
	// serializes them across processes.
	mu sync.Mutex
}

// DefaultDir resolves <user config dir>/mcp-switchboard.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", apperr.New(apperr.ConfigDirectoryUnavailable, "resolve config directory", err)
	}
	return filepath.Join(base, AppDirName), nil
}

// Open builds a Store on the default directory.
func Open(log logrus.FieldLogger) (*Store, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return New(Options{Dir: dir, Logger: log})
}

// New builds a Store from opts and derives its key. The directory is not
// created until the first save.
func New(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, apperr.New(apperr.ConfigDirectoryUnavailable, "open store", errors.New("no configuration directory"))
	}

	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, apperr.New(apperr.ConfigDirectoryUnavailable, "open store", err)
	}

	id := CurrentIdentity()
	if opts.Identity != nil {
		id = *opts.Identity
	}

	s := &Store{
		dir:          dir,
		path:         filepath.Join(dir, FileName),
		lockPath:     filepath.Join(dir, FileName+".lock"),
		envVar:       opts.EnvVar,
		defaultModel: opts.DefaultModel,
		key:          DeriveKey(id),
		log:          logging.Component(opts.Logger, "secretstore"),
	}
	if s.envVar == "" {
		s.envVar = EnvAPIKey
	}
	if s.defaultModel == "" {
		s.defaultModel = DefaultModel
	}
	return s, nil
}

// Path returns the encrypted file path.
func (s *Store) Path() string {
	return s.path
}

// EnvVar returns the name of the override variable.
func (s *Store) EnvVar() string {
	return s.envVar
}

// DefaultModel returns the fallback model identifier.
func (s *Store) DefaultModel() string {
	return s.defaultModel
}

func (s *Store) envCredential() (string, bool) {
	v := os.Getenv(s.envVar)
	if v == "" {
		return "", false
	}
	return v, true
}

// Credential returns the credential, preferring the environment override.
// A missing file and a file without a credential are both reported as
// ("", false, nil). A file that exists but cannot be decrypted or parsed is
// an error.
func (s *Store) Credential() (string, bool, error) {
	if v, ok := s.envCredential(); ok {
		s.log.Debug("Using API key from environment variable")
		return v, true, nil
	}

	rec, found, err := s.load()
	if err != nil {
		s.log.WithError(err).Error("Failed to load API key")
		return "", false, err
	}
	if !found || rec.Credential == "" {
		s.log.Debug("No API key found in environment or config file")
		return "", false, nil
	}

	s.log.WithField("path", s.path).Debug("Using API key from encrypted config file")
	return rec.Credential, true, nil
}

// SaveCredential replaces the credential field, keeping the model field.
// The value is stored exactly as given; a blank value is rejected.
func (s *Store) SaveCredential(value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.New(apperr.PreconditionFailed, "save credential", errors.New("API key must not be empty"))
	}

	err := s.update("save credential", func(rec *record) {
		rec.Credential = value
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"path": s.path, "key": util.Mask(value)}).Info("API key successfully saved and encrypted")
	return nil
}

// HasSecret reports whether a credential is available without decrypting:
// the override is set, or the file exists.
func (s *Store) HasSecret() bool {
	if _, ok := s.envCredential(); ok {
		return true
	}
	return s.fileExists()
}

// Source reports where Credential would read from, using the same existence
// check as HasSecret.
func (s *Store) Source() Source {
	if _, ok := s.envCredential(); ok {
		return SourceEnvironment
	}
	if s.fileExists() {
		return SourceFile
	}
	return SourceNone
}

// fileExists reports whether the secret file is present as a regular file.
func (s *Store) fileExists() bool {
	fi, err := os.Stat(s.path)
	return err == nil && fi.Mode().IsRegular()
}

// PreferredModel returns the saved model or the default. It never fails;
// load errors are logged and answered with the default.
func (s *Store) PreferredModel() string {
	rec, found, err := s.load()
	if err != nil {
		s.log.WithError(err).Warn("Falling back to default model")
		return s.defaultModel
	}
	if found && rec.PreferredModel != nil && strings.TrimSpace(*rec.PreferredModel) != "" {
		return *rec.PreferredModel
	}
	return s.defaultModel
}

// SetPreferredModel replaces the model field, keeping the credential.
func (s *Store) SetPreferredModel(model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return apperr.New(apperr.PreconditionFailed, "save preferred model", errors.New("model must not be empty"))
	}

	err := s.update("save preferred model", func(rec *record) {
		rec.PreferredModel = &model
	})
	if err != nil {
		return err
	}

	s.log.WithField("model", model).Info("Preferred model saved successfully")
	return nil
}

// Delete removes the secret file. Removing a missing file is not an error.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	unlock, err := lockFile(s.lockPath)
	if err != nil {
		return apperr.New(apperr.StorageIO, "delete config", err)
	}
	defer unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.New(apperr.StorageIO, "delete config", err)
	}
	s.log.WithField("path", s.path).Info("Config file removed")
	return nil
}

// update performs one serialized load-mutate-write cycle.
func (s *Store) update(op string, mutate func(*record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return apperr.New(apperr.ConfigDirectoryUnavailable, op, err)
	}

	unlock, err := lockFile(s.lockPath)
	if err != nil {
		return apperr.New(apperr.StorageIO, op, err)
	}
	defer unlock()

	// A corrupt file is reported, not overwritten: it may still hold the
	// other field.
	rec, _, err := s.load()
	if err != nil {
		return err
	}
	mutate(&rec)

	return s.write(op, rec)
}

func (s *Store) load() (record, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return record{}, false, nil
	}
	if err != nil {
		return record{}, false, apperr.New(apperr.StorageIO, "read config", err)
	}

	plaintext, err := Unseal(&s.key, data)
	if err != nil {
		return record{}, false, apperr.New(apperr.CryptoFailure, "load config", err)
	}

	var rec record
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return record{}, false, apperr.New(apperr.Serialization, "parse config", fmt.Errorf("invalid config record: %w", err))
	}
	return rec, true, nil
}

func (s *Store) write(op string, rec record) error {
	plaintext, err := json.Marshal(rec)
	if err != nil {
		return apperr.New(apperr.Serialization, op, err)
	}

	blob, err := Seal(&s.key, plaintext)
	if err != nil {
		return apperr.New(apperr.CryptoFailure, op, err)
	}

	if err := util.AtomicWriteFile(s.path, blob, 0600, 0700); err != nil {
		return apperr.New(apperr.StorageIO, op, err)
	}
	return nil
}
