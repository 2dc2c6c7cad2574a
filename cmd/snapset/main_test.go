package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/snapset/internal/codec"
	"github.com/bamsammich/snapset/internal/config"
	"github.com/bamsammich/snapset/internal/tarball"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeArchive(t *testing.T, dir string) string {
	t.Helper()
	var paths []string
	for _, name := range []string{"test_01_00001.tif", "test_01_00002.tif"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("image "+name), 0o644))
		paths = append(paths, p)
	}
	container, skipped := tarball.Build(paths, slog.New(slog.DiscardHandler))
	require.Empty(t, skipped)

	c, err := codec.Lookup("snappy")
	require.NoError(t, err)
	blob, err := c.Encode(container)
	require.NoError(t, err)

	path := filepath.Join(dir, "test_01_00001.snappy")
	require.NoError(t, os.WriteFile(path, blob, 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "snapset dev\n", out)
}

func TestRootRejectsSingleDirectory(t *testing.T) {
	_, err := execute(t, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected <watch-dir> <output-dir>")
}

func TestRootRejectsBadSetSize(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, nil, 0o644))

	_, err := execute(t, "--config", cfgFile, "--set-size", "0", t.TempDir(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--set-size")
}

func TestFatalOutputDirExitsOne(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, nil, 0o644))
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := execute(t, "-q", "--config", cfgFile, t.TempDir(), filepath.Join(blocker, "out"))
	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.code)
}

func TestBrokenConfigWarningReachesLogFile(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "snapset"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "snapset", "config.toml"), []byte("invalid [[["), 0o644))

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	logFile := filepath.Join(dir, "snapset.log")

	_, err := execute(t, "-q", "--log", logFile, t.TempDir(), filepath.Join(blocker, "out"))
	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)

	logged, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logged), `"msg":"failed to load config, using built-in defaults"`)
	assert.Contains(t, string(logged), `"level":"WARN"`)
}

func TestApplyConfigDefaults(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Set("codec", "lz4"))

	watch, output, pattern, setSize := "/data/in", "/data/out", "scan_##_###.raw", 50
	zstd, verify := "zstd", true
	defaults := config.DefaultsConfig{
		WatchDir:  &watch,
		OutputDir: &output,
		Pattern:   &pattern,
		SetSize:   &setSize,
		Codec:     &zstd,
		Verify:    &verify,
	}

	opts := monitorOptions{codec: codecFlag{name: "lz4"}, pattern: "x", setSize: 100}
	gotWatch, gotOutput := applyConfigDefaults(cmd, defaults, &opts)

	assert.Equal(t, "/data/in", gotWatch)
	assert.Equal(t, "/data/out", gotOutput)
	assert.Equal(t, "scan_##_###.raw", opts.pattern)
	assert.Equal(t, 50, opts.setSize)
	assert.True(t, opts.verify)
	assert.Equal(t, "lz4", opts.codec.name, "flag set on the command line wins")
}

func TestCodecFlag(t *testing.T) {
	var f codecFlag
	require.NoError(t, f.Set(" ZSTD "))
	assert.Equal(t, "zstd", f.String())
	require.Error(t, f.Set("gzip"))
	assert.Equal(t, "zstd", f.String())

	_, err := execute(t, "--codec", "gzip", t.TempDir(), t.TempDir())
	require.Error(t, err)
}

func TestApplyGenerateDefaults(t *testing.T) {
	cmd := newGenerateCmd()
	require.NoError(t, cmd.Flags().Set("count", "7"))

	interval, size, count, perRun := "5ms", "2K", 99, 10
	cfg := config.Config{Generate: config.GenerateConfig{
		Interval:     &interval,
		Size:         &size,
		Count:        &count,
		ImagesPerRun: &perRun,
	}}

	opts := generateOptions{count: 7}
	require.NoError(t, applyGenerateDefaults(cmd, cfg, &opts))
	assert.Equal(t, 5*time.Millisecond, opts.interval)
	assert.Equal(t, "2K", opts.size)
	assert.Equal(t, 10, opts.imagesPerRun)
	assert.Equal(t, 7, opts.count)

	bad := "soon"
	cfg.Generate.Interval = &bad
	require.Error(t, applyGenerateDefaults(newGenerateCmd(), cfg, &opts))
}

func TestTemplateData(t *testing.T) {
	data, err := templateData("", "4K")
	require.NoError(t, err)
	assert.Len(t, data, 4096)
	assert.Equal(t, []byte("II*\x00"), data[:4])

	path := filepath.Join(t.TempDir(), "template.tif")
	require.NoError(t, os.WriteFile(path, []byte("fixture"), 0o644))
	data, err = templateData(path, "4K")
	require.NoError(t, err)
	assert.Equal(t, []byte("fixture"), data)

	_, err = templateData("", "lots")
	require.Error(t, err)
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, nil, 0o644))
	target := filepath.Join(dir, "incoming")

	_, err := execute(t, "generate", "-q", "--config", cfgFile,
		"--count", "5", "--images-per-run", "3", "--interval", "0", "--size", "1K", target)
	require.NoError(t, err)

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{
		"test_01_00001.tif", "test_01_00002.tif", "test_01_00003.tif",
		"test_02_00001.tif", "test_02_00002.tif",
	}, names)
}

func TestInspectLists(t *testing.T) {
	path := writeArchive(t, t.TempDir())

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "test_01_00001.tif")
	assert.Contains(t, out, "test_01_00002.tif")
	assert.Contains(t, out, "2 members")
}

func TestInspectExtract(t *testing.T) {
	path := writeArchive(t, t.TempDir())
	dest := filepath.Join(t.TempDir(), "restored")

	_, err := execute(t, "inspect", "--extract", dest, path)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dest, "test_01_00002.tif"))
	require.NoError(t, err)
	assert.Equal(t, []byte("image test_01_00002.tif"), got)
}

func TestInspectUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := execute(t, "inspect", path)
	require.Error(t, err)
}

func TestGenDocsMarkdown(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "gen-docs", "--format", "markdown", "--dir", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "snapset.md"))
	assert.FileExists(t, filepath.Join(dir, "snapset_generate.md"))
	assert.FileExists(t, filepath.Join(dir, "snapset_inspect.md"))
}
