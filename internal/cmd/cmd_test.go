package cmd

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/trxui/trxloader/internal/config"
	"github.com/trxui/trxloader/internal/interactive"
	"github.com/trxui/trxloader/internal/layout"
	"github.com/trxui/trxloader/internal/types"
	"github.com/trxui/trxloader/internal/update"
)

// releaseServer publishes tag with an archive holding files.
func releaseServer(t *testing.T, tag string, files map[string]string) *httptest.Server {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest":
			_, _ = fmt.Fprintf(w, `{"tag_name":%q,"assets_url":%q}`, tag, srv.URL+"/assets")
		case "/assets":
			_, _ = fmt.Fprintf(w, `[{"browser_download_url":%q}]`, srv.URL+"/release.zip")
		case "/release.zip":
			_, _ = w.Write(buf.Bytes())
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newLauncherDir returns an empty launcher directory pointed at srv.
func newLauncherDir(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	for _, env := range []string{config.EnvConfig, config.EnvLogLevel, config.EnvLogFile, config.EnvInstallDir} {
		t.Setenv(env, "")
	}
	t.Setenv(config.EnvReleaseURL, srv.URL+"/latest")
	return t.TempDir()
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootInstallsWithoutLaunching(t *testing.T) {
	srv := releaseServer(t, "v1.0", map[string]string{
		"TRX.exe":          "binary",
		"Scripts/init.lua": "shipped",
	})
	dir := newLauncherDir(t, srv)
	writeFiles(t, dir, map[string]string{"Scripts/legacy.lua": "old layout"})

	out, err := run(t, "--launcher-dir", dir, "--log-file", "console", "--no-launch")
	require.NoError(t, err)

	assert.Contains(t, out, "Checking...")
	assert.Contains(t, out, "  Extracting...")
	assert.Contains(t, out, "Updated to v1.0")
	assert.NotContains(t, out, "Starting...")

	bin := filepath.Join(dir, "Bin")
	assert.Equal(t, "v1.0", readFile(t, filepath.Join(bin, "ver.bin")))
	assert.Equal(t, "binary", readFile(t, filepath.Join(bin, "TRX.exe")))
	assert.Equal(t, "old layout", readFile(t, filepath.Join(bin, "Scripts", "legacy.lua")))
	assert.NoDirExists(t, filepath.Join(dir, "temp_backup_data"))

	// Second run finds nothing to do.
	out, err = run(t, "--launcher-dir", dir, "--log-file", "console", "--no-launch", "--quiet")
	require.NoError(t, err)
	assert.Equal(t, "Checking...\n", out)
}

func TestRootWritesLogFile(t *testing.T) {
	srv := releaseServer(t, "v1.0", map[string]string{"TRX.exe": "binary"})
	dir := newLauncherDir(t, srv)

	_, err := run(t, "--launcher-dir", dir, "--no-launch", "--log-level", "debug")
	require.NoError(t, err)

	logged := readFile(t, filepath.Join(dir, config.DefaultLogFile))
	assert.Contains(t, logged, "updated to v1.0")
	assert.Contains(t, logged, "run=")
}

func TestRootUsesConfigFile(t *testing.T) {
	srv := releaseServer(t, "v3", map[string]string{"App.exe": "binary"})
	dir := newLauncherDir(t, srv)
	writeFiles(t, dir, map[string]string{
		"trxloader.yaml": "install_dir: Application\nexecutable: App.exe\nlog:\n  file: console\n",
	})

	_, err := run(t, "--launcher-dir", dir, "--no-launch")
	require.NoError(t, err)
	assert.Equal(t, "binary", readFile(t, filepath.Join(dir, "Application", "App.exe")))
	assert.Equal(t, "v3", readFile(t, filepath.Join(dir, "Application", "ver.bin")))
}

func TestRootResolutionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	dir := newLauncherDir(t, srv)

	_, err := run(t, "--launcher-dir", dir, "--log-file", "console", "--no-launch")

	var rErr *update.ReleaseResolutionError
	require.True(t, errors.As(err, &rErr), "got %v", err)
	assert.Contains(t, hints(err)[0], "internet connection")
}

func TestCheckCommand(t *testing.T) {
	srv := releaseServer(t, "v2.0", map[string]string{"TRX.exe": "binary"})
	dir := newLauncherDir(t, srv)
	writeFiles(t, dir, map[string]string{"Bin/ver.bin": "v1.0", "Bin/TRX.exe": "old"})

	out, err := run(t, "check", "--launcher-dir", dir, "--log-file", "console", "-o", "json")
	require.NoError(t, err)

	var result update.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, update.Version("v1.0"), result.Stored)
	assert.Equal(t, update.Version("v2.0"), result.Latest)
	assert.True(t, result.UpdateNeeded)
	assert.False(t, result.Updated)
	assert.Equal(t, "old", readFile(t, filepath.Join(dir, "Bin", "TRX.exe")), "check installs nothing")

	out, err = run(t, "check", "--launcher-dir", dir, "--log-file", "console")
	require.NoError(t, err)
	assert.Contains(t, out, "Update available")

	_, err = run(t, "check", "--launcher-dir", dir, "-o", "xml")
	assert.Error(t, err)
}

func TestStatusCommand(t *testing.T) {
	srv := releaseServer(t, "v2.0", nil)
	dir := newLauncherDir(t, srv)
	writeFiles(t, dir, map[string]string{
		"Bin/ver.bin":                     "v1.0",
		"Bin/Scripts/a.lua":               "user",
		"Bin/key.dat":                     "key",
		"temp_backup_data/AutoExec/b.lua": "parked",
	})

	out, err := run(t, "status", "--launcher-dir", dir, "--log-file", "console", "-o", "yaml")
	require.NoError(t, err)

	var status Status
	require.NoError(t, yaml.Unmarshal([]byte(out), &status))
	assert.Equal(t, update.Version("v1.0"), status.Installed)
	assert.False(t, status.ExecutablePresent)
	assert.Equal(t, []string{"Scripts", "key.dat"}, status.Preserved)
	require.Len(t, status.Backup, 1)
	assert.Equal(t, "AutoExec", status.Backup[0].Name)
	assert.Equal(t, types.PathKindDir, status.Backup[0].Kind)

	out, err = run(t, "status", "--launcher-dir", dir, "--log-file", "console")
	require.NoError(t, err)
	assert.Contains(t, out, "missing (next start reinstalls)")
	assert.Contains(t, out, "trxloader recover")
}

func TestRecoverCommand(t *testing.T) {
	srv := releaseServer(t, "v2.0", nil)
	dir := newLauncherDir(t, srv)
	writeFiles(t, dir, map[string]string{
		"Bin/Scripts/new.lua":                "shipped",
		"temp_backup_data/Scripts/mine.lua":  "user",
		"temp_backup_data/TRX_Settings.json": "settings",
	})

	out, err := run(t, "recover", "--launcher-dir", dir, "--log-file", "console", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Restored 2 item(s).")

	assert.Equal(t, "user", readFile(t, filepath.Join(dir, "Bin", "Scripts", "mine.lua")))
	assert.Equal(t, "shipped", readFile(t, filepath.Join(dir, "Bin", "Scripts", "new.lua")))
	assert.Equal(t, "settings", readFile(t, filepath.Join(dir, "Bin", "TRX_Settings.json")))
	assert.NoDirExists(t, filepath.Join(dir, "temp_backup_data"))

	out, err = run(t, "recover", "--launcher-dir", dir, "--log-file", "console", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to recover.\n", out)
}

func TestRunRecoverDeclined(t *testing.T) {
	dir := t.TempDir()
	l, err := layout.New(dir, "", "", "", "")
	require.NoError(t, err)
	writeFiles(t, l.BackupDir, map[string]string{"key.dat": "key"})

	a := &app{fs: afero.NewOsFs(), cfg: config.Default(), layout: l}
	var out, prompt bytes.Buffer
	prompter := interactive.NewPrompterWithIO(strings.NewReader("n\n"), &prompt, true)

	require.NoError(t, runRecover(a, prompter, false, &out))
	assert.Contains(t, out.String(), "Aborted.")
	assert.Contains(t, prompt.String(), "Restore into")
	assert.FileExists(t, filepath.Join(l.BackupDir, "key.dat"))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "trxloader version dev"), out)

	out, err = run(t, "version", "-o", "json")
	require.NoError(t, err)
	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info.Version)
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := run(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "trxloader")
		})
	}

	_, err := run(t, "completion", "cmd.exe")
	assert.Error(t, err)
}

func TestHints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"temp dir", fmt.Errorf("start: %w", layout.ErrRunningFromTemp), "Extract the archive"},
		{"resolution", &update.ReleaseResolutionError{Stage: update.StageMetadataFetch}, "latest release"},
		{"download", &update.DownloadError{Attempts: 3}, "failed 3 time(s)"},
		{"install before wipe", &update.InstallError{Phase: types.PhaseBackingUp}, "Nothing was changed"},
		{"install after wipe", &update.InstallError{Phase: types.PhaseExtracting, BackupDir: "/app/temp_backup_data"}, "/app/temp_backup_data"},
		{"install after wipe needs recover", &update.InstallError{Phase: types.PhaseRestoring, BackupDir: "/app/temp_backup_data"}, "before starting the launcher again"},
		{"version file", &update.VersionIOError{Op: "write"}, "writable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hints(tt.err)
			require.NotEmpty(t, got)
			assert.Contains(t, strings.Join(got, "\n"), tt.want)
		})
	}

	assert.Empty(t, hints(errors.New("something else")))
}
