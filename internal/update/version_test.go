package update

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name              string
		stored            Version
		latest            Version
		executablePresent bool
		wantEffective     Version
		wantForced        bool
		wantUpdate        bool
	}{
		{
			name:              "up to date",
			stored:            "v1.2",
			latest:            "v1.2",
			executablePresent: true,
			wantEffective:     "v1.2",
			wantUpdate:        false,
		},
		{
			name:              "newer release",
			stored:            "v1.2",
			latest:            "v1.3",
			executablePresent: true,
			wantEffective:     "v1.2",
			wantUpdate:        true,
		},
		{
			name:              "older tag still differs",
			stored:            "v2.0",
			latest:            "v1.9",
			executablePresent: true,
			wantEffective:     "v2.0",
			wantUpdate:        true,
		},
		{
			name:              "fresh install",
			stored:            NoneInstalled,
			latest:            "v1.0",
			executablePresent: false,
			wantEffective:     NoneInstalled,
			wantUpdate:        true,
		},
		{
			name:              "executable missing forces reinstall",
			stored:            "v1.2",
			latest:            "v1.2",
			executablePresent: false,
			wantEffective:     NoneInstalled,
			wantForced:        true,
			wantUpdate:        true,
		},
		{
			name:              "tokens compared exactly",
			stored:            "v1.2\n",
			latest:            "v1.2",
			executablePresent: true,
			wantEffective:     "v1.2\n",
			wantUpdate:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.stored, tt.latest, tt.executablePresent)
			assert.Equal(t, tt.stored, d.Stored)
			assert.Equal(t, tt.latest, d.Latest)
			assert.Equal(t, tt.wantEffective, d.Effective)
			assert.Equal(t, tt.wantForced, d.IntegrityForced)
			assert.Equal(t, tt.wantUpdate, d.NeedsUpdate)
		})
	}
}

func TestVersionStoreReadMissing(t *testing.T) {
	store := NewVersionStore(afero.NewMemMapFs(), "/app/Bin/ver.bin")

	v, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, NoneInstalled, v)
}

func TestVersionStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewVersionStore(fs, "/app/Bin/ver.bin")

	require.NoError(t, store.Write("v1.0"))
	require.NoError(t, store.Write("v2.0-beta"))

	v, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, Version("v2.0-beta"), v)

	data, err := afero.ReadFile(fs, "/app/Bin/ver.bin")
	require.NoError(t, err)
	assert.Equal(t, "v2.0-beta", string(data), "marker holds exactly the token")
}

func TestVersionStoreErrors(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		dir := t.TempDir()
		// A directory in place of the marker cannot be read as a file.
		store := NewVersionStore(afero.NewOsFs(), dir)

		_, err := store.Read()
		var vErr *VersionIOError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "read", vErr.Op)
		assert.Equal(t, dir, vErr.Path)
	})

	t.Run("write", func(t *testing.T) {
		fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
		store := NewVersionStore(fs, filepath.Join("app", "ver.bin"))

		err := store.Write("v1")
		var vErr *VersionIOError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "write", vErr.Op)
	})
}
