// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile_CreatesDirAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	require.NoError(t, AtomicWriteFile(path, []byte("first"), 0600, 0700))
	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0600, 0700))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAtomicWriteFile_SyncsParentDirectory(t *testing.T) {
	var synced []string
	orig := syncDir
	syncDir = func(dir string) {
		synced = append(synced, dir)
		orig(dir)
	}
	t.Cleanup(func() { syncDir = orig })

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, AtomicWriteFile(path, []byte("data"), 0600, 0700))

	abs, err := filepath.Abs(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, []string{abs}, synced)
}

func TestAtomicWriteFile_ParentIsAFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	err := AtomicWriteFile(filepath.Join(blocker, "config.json"), []byte("x"), 0600, 0700)
	require.Error(t, err)
}

func TestTruncateWidth(t *testing.T) {
	assert.Equal(t, "hello", TruncateWidth("hello", 10))
	assert.Equal(t, "hell...", TruncateWidth("hello world", 7))
	assert.Equal(t, "", TruncateWidth("hello", 0))

	// Double-width runes count as two columns
	cjk := "日本語テキスト"
	got := TruncateWidth(cjk, 8)
	assert.LessOrEqual(t, runewidth.StringWidth(got), 8)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask("  "))
	assert.Equal(t, "******", Mask("abc123"))
	assert.Equal(t, "tgp_...wxyz", Mask("tgp_v1_abcdefghijklmnopqrstuvwxyz"))
}
