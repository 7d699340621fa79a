// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package secretstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simbo1905/mcp-switchboard/internal/apperr"
)

const testEnvVar = "SWITCHBOARD_TEST_API_KEY"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv(testEnvVar, "")

	s, err := New(Options{
		Dir:      filepath.Join(t.TempDir(), AppDirName),
		EnvVar:   testEnvVar,
		Identity: &Identity{User: "alice", Host: "workstation"},
	})
	require.NoError(t, err)
	return s
}

func readRecord(t *testing.T, s *Store) record {
	t.Helper()
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	plaintext, err := Unseal(&s.key, data)
	require.NoError(t, err)
	var rec record
	require.NoError(t, json.Unmarshal(plaintext, &rec))
	return rec
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New(Options{})
	require.True(t, apperr.Is(err, apperr.ConfigDirectoryUnavailable))
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(Options{Dir: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, EnvAPIKey, s.EnvVar())
	require.Equal(t, DefaultModel, s.DefaultModel())
	require.Equal(t, FileName, filepath.Base(s.Path()))
}

func TestStore_FreshInstall(t *testing.T) {
	s := newTestStore(t)

	require.False(t, s.HasSecret())
	require.Equal(t, SourceNone, s.Source())

	v, ok, err := s.Credential()
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, v)

	require.Equal(t, DefaultModel, s.PreferredModel())

	_, err = os.Stat(filepath.Dir(s.Path()))
	require.True(t, os.IsNotExist(err), "reads must not create the directory")
}

func TestStore_SaveCredentialRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveCredential("abc123"))

	require.True(t, s.HasSecret())
	require.Equal(t, SourceFile, s.Source())

	v, ok, err := s.Credential()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc123", v)

	rec := readRecord(t, s)
	require.Equal(t, "abc123", rec.Credential)
	require.Nil(t, rec.PreferredModel)
}

func TestStore_FileIsNotPlaintext(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCredential("sk-very-secret-value"))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.NotContains(t, string(data), "sk-very-secret-value")
	require.NotContains(t, string(data), "together_ai_api_key")
}

func TestStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}
	s := newTestStore(t)
	require.NoError(t, s.SaveCredential("abc123"))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestStore_SaveCredentialRejectsBlank(t *testing.T) {
	s := newTestStore(t)

	for _, blank := range []string{"", "   ", "\t\n"} {
		err := s.SaveCredential(blank)
		require.True(t, apperr.Is(err, apperr.PreconditionFailed), "%q", blank)
	}
	require.False(t, s.HasSecret())
}

func TestStore_SaveCredentialKeepsValueExactly(t *testing.T) {
	for _, value := range []string{" abc123 ", "abc123\n", "\tkey with spaces\t", "ключ-🔑"} {
		s := newTestStore(t)
		require.NoError(t, s.SaveCredential(value))

		v, ok, err := s.Credential()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, value, v)
	}
}

func TestStore_EnvironmentPrecedence(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCredential("from-file"))

	t.Setenv(testEnvVar, "from-env")

	v, ok, err := s.Credential()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "from-env", v)
	require.Equal(t, SourceEnvironment, s.Source())

	// The file is untouched.
	require.Equal(t, "from-file", readRecord(t, s).Credential)
}

func TestStore_EnvironmentWithoutFile(t *testing.T) {
	s := newTestStore(t)
	t.Setenv(testEnvVar, "xyz")

	require.True(t, s.HasSecret())

	v, ok, err := s.Credential()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "xyz", v)

	_, err = os.Stat(s.Path())
	require.True(t, os.IsNotExist(err), "reading must not create the file")
}

func TestStore_EmptyEnvironmentIsIgnored(t *testing.T) {
	s := newTestStore(t)
	t.Setenv(testEnvVar, "")

	require.False(t, s.HasSecret())
	require.Equal(t, SourceNone, s.Source())
}

func TestStore_PreferredModel(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetPreferredModel("org/model-x"))
	require.Equal(t, "org/model-x", s.PreferredModel())

	// Only a model saved: the file exists but carries no credential.
	require.True(t, s.HasSecret())
	v, ok, err := s.Credential()
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, v)
}

func TestStore_SetPreferredModelRejectsEmpty(t *testing.T) {
	s := newTestStore(t)
	err := s.SetPreferredModel("")
	require.True(t, apperr.Is(err, apperr.PreconditionFailed))
}

func TestStore_FieldsArePreserved(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveCredential("abc123"))
	require.NoError(t, s.SetPreferredModel("org/model-x"))
	require.NoError(t, s.SaveCredential("def456"))

	rec := readRecord(t, s)
	require.Equal(t, "def456", rec.Credential)
	require.NotNil(t, rec.PreferredModel)
	require.Equal(t, "org/model-x", *rec.PreferredModel)
}

func TestStore_ConcurrentSavesKeepBothFields(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.SaveCredential(fmt.Sprintf("key-%d", i)))
		}(i)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.SetPreferredModel(fmt.Sprintf("org/model-%d", i)))
		}(i)
	}
	wg.Wait()

	rec := readRecord(t, s)
	require.NotEmpty(t, rec.Credential)
	require.NotNil(t, rec.PreferredModel)
	require.NotEmpty(t, *rec.PreferredModel)
}

func TestStore_TwoStoresSameDirectory(t *testing.T) {
	s := newTestStore(t)
	other, err := New(Options{
		Dir:      filepath.Dir(s.Path()),
		EnvVar:   testEnvVar,
		Identity: &Identity{User: "alice", Host: "workstation"},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.SaveCredential("abc123"))
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, other.SetPreferredModel("org/model-x"))
	}()
	wg.Wait()

	rec := readRecord(t, s)
	require.Equal(t, "abc123", rec.Credential)
	require.NotNil(t, rec.PreferredModel)
	require.Equal(t, "org/model-x", *rec.PreferredModel)
}

func TestStore_TamperedFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCredential("abc123"))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	data[len(data)/2] ^= 0x01
	require.NoError(t, os.WriteFile(s.Path(), data, 0600))

	_, _, err = s.Credential()
	require.True(t, apperr.Is(err, apperr.CryptoFailure))
	require.NotContains(t, err.Error(), "abc123")

	// Reading the model never fails.
	require.Equal(t, DefaultModel, s.PreferredModel())

	// Saving over an unreadable file is refused.
	err = s.SetPreferredModel("org/model-x")
	require.True(t, apperr.Is(err, apperr.CryptoFailure))
}

func TestStore_WrongIdentity(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCredential("abc123"))

	other, err := New(Options{
		Dir:      filepath.Dir(s.Path()),
		EnvVar:   testEnvVar,
		Identity: &Identity{User: "bob", Host: "workstation"},
	})
	require.NoError(t, err)

	_, _, err = other.Credential()
	require.True(t, apperr.Is(err, apperr.CryptoFailure))
}

func TestStore_GarbageFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("not an encrypted blob"), 0600))

	_, _, err := s.Credential()
	require.True(t, apperr.Is(err, apperr.CryptoFailure))
}

func TestStore_InvalidRecord(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0700))

	blob, err := Seal(&s.key, []byte("not json"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), blob, 0600))

	_, _, err = s.Credential()
	require.True(t, apperr.Is(err, apperr.Serialization))
}

func TestStore_EmptyFileIsCorrupt(t *testing.T) {
	for _, content := range []string{"", "  \n"} {
		s := newTestStore(t)
		require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0700))
		require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0600))

		require.True(t, s.HasSecret())

		v, ok, err := s.Credential()
		require.True(t, apperr.Is(err, apperr.CryptoFailure), "%q: %v", content, err)
		require.False(t, ok)
		require.Empty(t, v)

		require.Equal(t, DefaultModel, s.PreferredModel())

		err = s.SaveCredential("abc123")
		require.True(t, apperr.Is(err, apperr.CryptoFailure), "a corrupt file is not overwritten")

		require.NoError(t, s.Delete())
		require.NoError(t, s.SaveCredential("abc123"))
		require.Equal(t, "abc123", readRecord(t, s).Credential)
	}
}

func TestStore_DirectoryInPlaceOfFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.Path(), 0700))

	require.False(t, s.HasSecret())
	require.Equal(t, SourceNone, s.Source())

	_, ok, err := s.Credential()
	require.True(t, apperr.Is(err, apperr.StorageIO), "%v", err)
	require.False(t, ok)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Delete(), "deleting a missing file is fine")

	require.NoError(t, s.SaveCredential("abc123"))
	require.NoError(t, s.Delete())
	require.False(t, s.HasSecret())
	require.NoError(t, s.Delete())
}

func TestStore_DeleteRecoversFromCorruption(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("garbage"), 0600))

	require.NoError(t, s.Delete())
	require.NoError(t, s.SaveCredential("abc123"))

	v, ok, err := s.Credential()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc123", v)
}

func TestStore_ReadableByFreshInstance(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCredential("abc123"))
	require.NoError(t, s.SetPreferredModel("org/model-x"))

	again, err := New(Options{
		Dir:      filepath.Dir(s.Path()),
		EnvVar:   testEnvVar,
		Identity: &Identity{User: "alice", Host: "workstation"},
	})
	require.NoError(t, err)

	v, ok, err := again.Credential()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc123", v)
	require.Equal(t, "org/model-x", again.PreferredModel())
}
