package keydb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SecretPaths_Secret(t *testing.T) {
	for _, tt := range []struct {
		name    string
		secrets map[string][]byte
		keyID   string
		want    []byte
		wantOk  bool
	}{
		{
			name:   "no secrets should not find anything for empty key id",
			keyID:  "",
			wantOk: false,
		},
		{
			name:   "no secrets should not find anything",
			keyID:  "key",
			wantOk: false,
		},
		{
			name: "secrets should not find a different key id",
			secrets: map[string][]byte{
				"other": []byte("data"),
			},
			keyID:  "key",
			wantOk: false,
		},
		{
			name: "secrets should find the key id",
			secrets: map[string][]byte{
				"key": []byte("data"),
			},
			keyID:  "key",
			want:   []byte("data"),
			wantOk: true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			sp := &SecretPaths{secrets: tt.secrets}
			got, ok := sp.Secret(tt.keyID)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_SecretPaths_Add(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "keys")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "subdir"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "suite_key"), []byte("suite_secret\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other_key"), []byte("other_secret"), 0600))
	single := filepath.Join(root, "single_key")
	require.NoError(t, os.WriteFile(single, []byte("single_secret"), 0600))

	sp := NewSecretPaths(time.Hour)
	defer sp.Close()

	require.NoError(t, sp.Add(dir))
	require.NoError(t, sp.Add(single))

	for keyID, want := range map[string]string{
		"suite_key":  "suite_secret",
		"other_key":  "other_secret",
		"single_key": "single_secret",
	} {
		got, ok := sp.Secret(keyID)
		assert.True(t, ok, keyID)
		assert.Equal(t, want, string(got), keyID)
	}

	_, ok := sp.Secret("subdir")
	assert.False(t, ok, "directories are not secrets")

	assert.ErrorIs(t, sp.Add(single), ErrAlreadyExists)
	assert.ErrorIs(t, sp.Add(dir), ErrFailedToReadFile)
	assert.Error(t, sp.Add(filepath.Join(root, "missing")))
}

func Test_SecretPaths_Refresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite_key")
	require.NoError(t, os.WriteFile(path, []byte("old_secret"), 0600))

	sp := NewSecretPaths(time.Hour)
	defer sp.Close()
	require.NoError(t, sp.Add(path))

	require.NoError(t, os.WriteFile(path, []byte("new_secret\n"), 0600))
	sp.refresh()

	got, ok := sp.Secret("suite_key")
	assert.True(t, ok)
	assert.Equal(t, "new_secret", string(got))
}

func Test_SecretPaths_SecretIsCopy(t *testing.T) {
	sp := &SecretPaths{secrets: map[string][]byte{"key": []byte("data")}}

	got, ok := sp.Secret("key")
	require.True(t, ok)
	got[0] = 'X'

	again, _ := sp.Secret("key")
	assert.Equal(t, []byte("data"), again)
}

func Test_SecretPaths_CloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite_key")
	require.NoError(t, os.WriteFile(path, []byte("suite_secret"), 0600))

	sp := NewSecretPaths(time.Hour)
	require.NoError(t, sp.Add(path))
	assert.NotPanics(t, func() {
		sp.Close()
		sp.Close()
	})
}
