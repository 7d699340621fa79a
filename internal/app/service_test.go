// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simbo1905/mcp-switchboard/internal/apperr"
	"github.com/simbo1905/mcp-switchboard/internal/cloud"
	"github.com/simbo1905/mcp-switchboard/internal/secretstore"
	"github.com/simbo1905/mcp-switchboard/internal/storage"
	"github.com/simbo1905/mcp-switchboard/internal/stream"
)

const testEnvVar = "SWITCHBOARD_APP_TEST_API_KEY"

// =============================================================================
// FAKES
// =============================================================================

type fakeUpstream struct {
	chunks []string
	i      int
}

func (u *fakeUpstream) Recv() (stream.Chunk, error) {
	if u.i >= len(u.chunks) {
		return stream.Chunk{}, io.EOF
	}
	c := u.chunks[u.i]
	u.i++
	return stream.Chunk{Text: c}, nil
}

func (u *fakeUpstream) Close() error { return nil }

type fakeProvider struct {
	mu       sync.Mutex
	requests []stream.Request
	creds    []string
	chunks   []string
	models   []cloud.ModelInfo
	err      error
}

func (p *fakeProvider) Open(_ context.Context, req stream.Request) (stream.Upstream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &fakeUpstream{chunks: p.chunks}, nil
}

func (p *fakeProvider) ListModels(_ context.Context, credential string) ([]cloud.ModelInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds = append(p.creds, credential)
	if p.err != nil {
		return nil, p.err
	}
	return p.models, nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	summaries []stream.Summary
}

func (r *fakeRecorder) Observe(sum stream.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, sum)
}

func newTestStore(t *testing.T) *secretstore.Store {
	t.Helper()
	t.Setenv(testEnvVar, "")
	s, err := secretstore.New(secretstore.Options{
		Dir:      filepath.Join(t.TempDir(), secretstore.AppDirName),
		EnvVar:   testEnvVar,
		Identity: &secretstore.Identity{User: "alice", Host: "workstation"},
	})
	require.NoError(t, err)
	return s
}

func collect(seq func(func(stream.Event) bool)) []stream.Event {
	var events []stream.Event
	for ev := range seq {
		events = append(events, ev)
	}
	return events
}

// =============================================================================
// CONFIGURATION OPERATIONS
// =============================================================================

func TestService_APIConfig(t *testing.T) {
	svc := New(Options{Secrets: newTestStore(t), Provider: &fakeProvider{}})

	require.False(t, svc.HasAPIConfig())
	_, ok, err := svc.GetAPIConfig()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, svc.SaveAPIConfig(" sk-test-123 "))
	require.True(t, svc.HasAPIConfig())

	cred, ok, err := svc.GetAPIConfig()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, " sk-test-123 ", cred, "stored exactly as given")

	err = svc.SaveAPIConfig("   ")
	require.True(t, apperr.Is(err, apperr.PreconditionFailed))
}

func TestService_EnvironmentCredential(t *testing.T) {
	store := newTestStore(t)
	t.Setenv(testEnvVar, "sk-from-env")
	svc := New(Options{Secrets: store, Provider: &fakeProvider{}})

	require.True(t, svc.HasAPIConfig())
	cred, ok, err := svc.GetAPIConfig()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "sk-from-env", cred)
}

func TestService_GetAPIConfigCorrupt(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("bm90IGEgYmxvYg=="), 0600))

	svc := New(Options{Secrets: store, Provider: &fakeProvider{}})
	require.True(t, svc.HasAPIConfig(), "existence only")

	_, _, err := svc.GetAPIConfig()
	require.True(t, apperr.Is(err, apperr.CryptoFailure))
}

func TestService_Model(t *testing.T) {
	svc := New(Options{Secrets: newTestStore(t), Provider: &fakeProvider{}})

	require.Equal(t, secretstore.DefaultModel, svc.GetCurrentModel())
	require.NoError(t, svc.SetPreferredModel(" org/model-x "))
	require.Equal(t, "org/model-x", svc.GetCurrentModel())
	require.Error(t, svc.SetPreferredModel(""))
}

// =============================================================================
// MODELS
// =============================================================================

func TestService_AvailableModels(t *testing.T) {
	store := newTestStore(t)
	provider := &fakeProvider{models: []cloud.ModelInfo{{ID: "a", DisplayName: "A", Organization: "Org"}}}
	svc := New(Options{Secrets: store, Provider: provider})

	_, err := svc.AvailableModels(context.Background())
	require.ErrorIs(t, err, apperr.ErrNoCredential)
	require.Empty(t, provider.creds, "catalog must not be called without a credential")

	require.NoError(t, store.SaveCredential("sk-test"))
	models, err := svc.AvailableModels(context.Background())
	require.NoError(t, err)
	require.Equal(t, provider.models, models)
	require.Equal(t, []string{"sk-test"}, provider.creds)
}

func TestService_AvailableModelsError(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveCredential("sk-test"))
	upstream := apperr.New(apperr.UpstreamTransport, "list models", errors.New("API error (HTTP 500): boom"))
	svc := New(Options{Secrets: store, Provider: &fakeProvider{err: upstream}})

	_, err := svc.AvailableModels(context.Background())
	require.Same(t, upstream, err)
}

// =============================================================================
// STREAMING
// =============================================================================

func TestService_StreamChat(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveCredential("sk-test"))
	require.NoError(t, store.SetPreferredModel("org/model-x"))

	provider := &fakeProvider{chunks: []string{"Hel", "", "lo"}}
	recorder := &fakeRecorder{}
	svc := New(Options{Secrets: store, Provider: provider, Recorder: recorder, IdleTimeout: time.Second})

	events := collect(svc.StreamChat(context.Background(), "hi"))
	require.Equal(t, []stream.Event{
		stream.Content{Text: "Hel"},
		stream.Content{Text: "lo"},
		stream.Complete{},
	}, events)

	require.Len(t, provider.requests, 1)
	assert.Equal(t, stream.Request{Credential: "sk-test", Model: "org/model-x", Message: "hi"}, provider.requests[0])

	require.Len(t, recorder.summaries, 1)
	assert.Equal(t, stream.OutcomeComplete, recorder.summaries[0].Outcome)
	assert.Equal(t, 5, recorder.summaries[0].Chars)
}

func TestService_StreamChatModelOverride(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveCredential("sk-test"))

	provider := &fakeProvider{}
	svc := New(Options{Secrets: store, Provider: provider})

	events := collect(svc.StreamChat(context.Background(), "hi", stream.WithModel("org/other")))
	require.Equal(t, []stream.Event{stream.Complete{}}, events)
	require.Equal(t, "org/other", provider.requests[0].Model)
}

func TestService_StreamChatWithoutCredential(t *testing.T) {
	provider := &fakeProvider{}
	recorder := &fakeRecorder{}
	svc := New(Options{Secrets: newTestStore(t), Provider: provider, Recorder: recorder})

	events := collect(svc.StreamChat(context.Background(), "hi"))
	require.Len(t, events, 1)
	ev, ok := events[0].(stream.Error)
	require.True(t, ok, "got %T", events[0])
	assert.Equal(t, apperr.PreconditionFailed, ev.Kind)
	assert.Equal(t, "No API key configured", ev.Message)
	assert.Empty(t, provider.requests)

	require.Len(t, recorder.summaries, 1)
	assert.Equal(t, stream.OutcomeError, recorder.summaries[0].Outcome)
}

func TestService_IdleTimeout(t *testing.T) {
	svc := New(Options{Secrets: newTestStore(t), Provider: &fakeProvider{}, IdleTimeout: 2 * time.Minute})
	require.Equal(t, 2*time.Minute, svc.IdleTimeout())
	svc.SetIdleTimeout(0)
	require.Zero(t, svc.IdleTimeout())
}

func TestService_LogInfo(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	svc := New(Options{Secrets: newTestStore(t), Provider: &fakeProvider{}, Logger: logger})

	svc.LogInfo("window opened")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "[Frontend] window opened", entry.Message)
	assert.Equal(t, "app", entry.Data["component"])
}

// =============================================================================
// RUNTIME
// =============================================================================

func writeSSE(w http.ResponseWriter, chunks ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, c := range chunks {
		fmt.Fprintf(w, "data: {\"id\":\"x\",\"object\":\"chat.completion.chunk\",\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", c)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func TestOpen_EndToEnd(t *testing.T) {
	t.Setenv(secretstore.EnvAPIKey, "sk-end-to-end")

	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeSSE(w, "Hello", ", world")
	}))
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("SWITCHBOARD_BASE_URL", srv.URL+"/v1")
	t.Setenv("SWITCHBOARD_CATALOG_URL", "")
	t.Setenv("SWITCHBOARD_IDLE_TIMEOUT", "")
	t.Setenv("SWITCHBOARD_LOG_LEVEL", "")
	t.Setenv("SWITCHBOARD_LOG_FORMAT", "")
	t.Setenv("SWITCHBOARD_LOG_FILE", "")
	t.Setenv("SWITCHBOARD_HISTORY", "")

	rt, err := Open(dir)
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.History)
	require.Equal(t, srv.URL+"/v1", rt.Client.BaseURL())

	var text string
	var last stream.Event
	for ev := range rt.StreamChat(context.Background(), "hi") {
		if c, ok := ev.(stream.Content); ok {
			text += c.Text
		}
		last = ev
	}
	require.Equal(t, "Hello, world", text)
	require.Equal(t, stream.Complete{}, last)
	require.Equal(t, "Bearer sk-end-to-end", auth)

	entries, err := rt.History.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "complete", entries[0].Outcome)
	require.Equal(t, secretstore.DefaultModel, entries[0].Model)

	_, err = os.Stat(filepath.Join(dir, "switchboard.log"))
	require.NoError(t, err, "log file created in the app directory")
}

func TestOpen_HistoryDisabled(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SWITCHBOARD_HISTORY", "false")
	t.Setenv("SWITCHBOARD_LOG_FILE", "")

	rt, err := Open(dir)
	require.NoError(t, err)
	defer rt.Close()

	require.Nil(t, rt.History)
	_, err = os.Stat(filepath.Join(dir, "history.db"))
	require.True(t, os.IsNotExist(err))
}

func TestRuntime_Reload(t *testing.T) {
	t.Setenv("SWITCHBOARD_HISTORY", "false")
	t.Setenv("SWITCHBOARD_IDLE_TIMEOUT", "")
	t.Setenv("SWITCHBOARD_LOG_LEVEL", "")
	rt, err := Open(t.TempDir())
	require.NoError(t, err)
	defer rt.Close()

	cfg := rt.Config.Clone()
	cfg.Log.Level = "debug"
	cfg.API.StreamIdleTimeoutSecs = 7
	rt.Reload(cfg)

	require.Equal(t, 7*time.Second, rt.IdleTimeout())
	require.Equal(t, "debug", rt.Logger.GetLevel().String())
}

var _ Recorder = (*storage.History)(nil)
