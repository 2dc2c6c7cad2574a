package generator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/snapset/internal/filter"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Logger:       slog.New(slog.DiscardHandler),
		Template:     filter.MustCompile(filter.DefaultTemplate),
		Dir:          t.TempDir(),
		Data:         []byte("II*\x00payload"),
		Count:        7,
		ImagesPerRun: 3,
	}
}

func names(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func TestRunNaming(t *testing.T) {
	cfg := testConfig(t)

	n, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	assert.Equal(t, []string{
		"test_01_00001.tif", "test_01_00002.tif", "test_01_00003.tif",
		"test_02_00001.tif", "test_02_00002.tif", "test_02_00003.tif",
		"test_03_00001.tif",
	}, names(t, cfg.Dir))

	got, err := os.ReadFile(filepath.Join(cfg.Dir, "test_02_00002.tif"))
	require.NoError(t, err)
	assert.Equal(t, cfg.Data, got)
}

func TestRunStartRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Count = 2
	cfg.StartRun = 5

	_, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"test_05_00001.tif", "test_05_00002.tif"}, names(t, cfg.Dir))
}

func TestRunCadence(t *testing.T) {
	cfg := testConfig(t)
	cfg.Count = 5
	cfg.Interval = 20 * time.Millisecond

	start := time.Now()
	_, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	// First token is immediate, the other four wait one interval each.
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestRunCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Count = 1000
	cfg.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	n, err := Run(ctx, cfg)
	require.Error(t, err)
	assert.Less(t, n, 1000)
	assert.Len(t, names(t, cfg.Dir), n, "no partial files left behind")
}

func TestRunValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no dir", mutate: func(c *Config) { c.Dir = "" }},
		{name: "no template", mutate: func(c *Config) { c.Template = nil }},
		{name: "negative count", mutate: func(c *Config) { c.Count = -1 }},
		{name: "zero per run", mutate: func(c *Config) { c.ImagesPerRun = 0 }},
		{name: "per run exceeds seq width", mutate: func(c *Config) {
			c.Template = filter.MustCompile("img_##_##.tif")
			c.ImagesPerRun = 100
		}},
		{name: "runs exceed run width", mutate: func(c *Config) {
			c.Template = filter.MustCompile("img_#_###.tif")
			c.ImagesPerRun = 1
			c.Count = 20
		}},
		{name: "glob template", mutate: func(c *Config) { c.Template = filter.MustCompile("*_##_#####.tif") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			_, err := Run(context.Background(), cfg)
			assert.Error(t, err)
		})
	}
}

func TestRunZeroCount(t *testing.T) {
	cfg := testConfig(t)
	cfg.Count = 0
	n, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, names(t, cfg.Dir))
}

func TestPattern(t *testing.T) {
	p := Pattern(1024)
	assert.Len(t, p, 1024)
	assert.Equal(t, []byte("II*\x00"), p[:4])
	assert.Equal(t, byte(10), p[10])
	assert.Equal(t, p, Pattern(1024))
	assert.Len(t, Pattern(2), 2)
}

func TestGeneratedFilesMatchTemplate(t *testing.T) {
	cfg := testConfig(t)
	_, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	for i, name := range names(t, cfg.Dir) {
		run, seq, ok := cfg.Template.Match(name)
		require.True(t, ok, name)
		assert.Equal(t, 1+i/3, run)
		assert.Equal(t, i%3+1, seq)
	}
}
