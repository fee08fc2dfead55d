package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nflvrs/internal/fetch"
	"github.com/banshee-data/nflvrs/internal/fsutil"
	"github.com/banshee-data/nflvrs/internal/httputil"
	"github.com/banshee-data/nflvrs/internal/monitoring"
	"github.com/banshee-data/nflvrs/internal/pbp"
	"github.com/banshee-data/nflvrs/internal/testutil"
	"github.com/banshee-data/nflvrs/internal/timeutil"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

type harness struct {
	cli    *cli
	out    *bytes.Buffer
	fs     *fsutil.MemoryFileSystem
	client *httputil.MockHTTPClient
}

func newHarness(t *testing.T, seasons ...int) *harness {
	t.Helper()
	monitoring.SetLogger(nil)
	fsys := fsutil.NewMemoryFileSystem()
	for _, s := range seasons {
		fsys.WriteFile(pbp.SeasonFile("data", s), testutil.GzipCSV(testutil.League([]int{s}, 4, 10)))
	}
	h := &harness{out: &bytes.Buffer{}, fs: fsys, client: httputil.NewMockHTTPClient()}
	h.cli = &cli{
		stdout: h.out,
		fs:     fsys,
		client: h.client,
		clock:  timeutil.NewMockClock(time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)),
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.out.Reset()
	return h.cli.run(context.Background(), args)
}

func TestVersionAndHelp(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "version"))
	assert.True(t, strings.HasPrefix(h.out.String(), "nflvrs dev"))

	require.NoError(t, h.run(t, "help"))
	assert.Contains(t, h.out.String(), "Usage: nflvrs <command>")

	assert.Error(t, h.run(t))
	assert.ErrorContains(t, h.run(t, "punt"), `unknown command "punt"`)
	assert.ErrorIs(t, h.run(t, "tiers", "-h"), flag.ErrHelp)
}

func TestTiers(t *testing.T) {
	h := newHarness(t, 2020, 2021)

	err := h.run(t, "tiers", "-first", "2020", "-min-throws", "20", "-k", "3", "-seed", "7", "-out", "charts/tiers.png")
	require.NoError(t, err)
	out := h.out.String()
	assert.Contains(t, out, "k=3")
	assert.Contains(t, out, "P.Mahomes")
	assert.Contains(t, out, "wrote charts/tiers.png")

	data, err := h.fs.ReadFile("charts/tiers.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestTiers_DefaultSeasonIsCurrentYear(t *testing.T) {
	h := newHarness(t, 2021)

	require.NoError(t, h.run(t, "tiers", "-min-throws", "1", "-k", "2", "-seed", "1"))
	assert.Contains(t, h.out.String(), "k=2")

	h = newHarness(t, 2020)
	assert.Error(t, h.run(t, "tiers", "-min-throws", "1"), "2021 extract is missing")
}

func TestTiers_Errors(t *testing.T) {
	h := newHarness(t, 2021)

	assert.ErrorContains(t, h.run(t, "tiers", "-source", "parquet"), "unknown source")
	assert.ErrorContains(t, h.run(t, "tiers", "-k", "0"), "invalid configuration")
	assert.Error(t, h.run(t, "tiers", "-min-throws", "1", "-k", "50"))
	assert.Error(t, h.run(t, "tiers", "-min-throws", "100000"))
}

func TestElbow(t *testing.T) {
	h := newHarness(t, 2021)

	require.NoError(t, h.run(t, "elbow", "-min-throws", "1", "-max-k", "3", "-seed", "3", "-out", "elbow.html"))
	out := h.out.String()
	assert.Contains(t, out, "WCSS")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// header, three k rows and the "wrote" line
	assert.Len(t, lines, 5)

	data, err := h.fs.ReadFile("elbow.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "echarts")
}

func TestEPACharts(t *testing.T) {
	h := newHarness(t, 2020, 2021)

	require.NoError(t, h.run(t, "epa-per-game", "-first", "2020", "-min-throws", "1", "-players", "P.Mahomes,J.Allen", "-demean"))
	data, err := h.fs.ReadFile(filepath.Join("charts", "epa_per_game.png"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	require.NoError(t, h.run(t, "epa-per-game", "-first", "2020", "-players", "P.Mahomes", "-subplots", "-out", "sub.png"))
	data, err = h.fs.ReadFile("sub.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	require.NoError(t, h.run(t, "epa-vs-cpoe", "-first", "2020", "-min-throws", "1", "-players", "T.Brady", "-out", "out/evc.html"))
	data, err = h.fs.ReadFile("out/evc.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "T.Brady 2021")

	require.NoError(t, h.run(t, "epa-vs-cpoe", "-first", "2020", "-min-throws", "1"))
	assert.True(t, h.fs.Exists(filepath.Join("charts", "epa_vs_cpoe.png")))
}

func TestFetch(t *testing.T) {
	h := newHarness(t)
	f := &fetch.Fetcher{BaseURL: "http://example.test/data"}
	for _, s := range []int{2020, 2021} {
		h.client.On(f.URL(s), httputil.MockResponse{StatusCode: 200, Body: testutil.GzipCSV(testutil.League([]int{s}, 1, 2))})
	}

	require.NoError(t, h.run(t, "fetch", "-first", "2020", "-base-url", "http://example.test/data"))
	assert.Contains(t, h.out.String(), "2020\tdata/nfl_2020_pbp.csv.gz")
	assert.True(t, h.fs.Exists("data/nfl_2021_pbp.csv.gz"))

	require.NoError(t, h.run(t, "fetch", "-first", "2020", "-base-url", "http://example.test/data"))
	assert.Contains(t, h.out.String(), "skipped")
	assert.Equal(t, 2, h.client.RequestCount())

	assert.ErrorIs(t, h.run(t, "fetch", "-first", "2022"), pbp.ErrNoSeasons)
}

func TestUploadAndDBSource(t *testing.T) {
	h := newHarness(t, 2020, 2021)
	dbPath := filepath.Join(t.TempDir(), "nflvrs.db")

	require.NoError(t, h.run(t, "upload", "-first", "2020", "-db", dbPath))
	assert.Contains(t, h.out.String(), "import ")

	require.NoError(t, h.run(t, "tiers", "-source", "db", "-db", dbPath, "-first", "2020", "-min-throws", "20", "-k", "3", "-seed", "7"))
	assert.Contains(t, h.out.String(), "P.Mahomes")

	require.NoError(t, h.run(t, "migrate", "-db", dbPath, "status"))
	assert.Contains(t, h.out.String(), "Current version: 2")

	assert.Error(t, h.run(t, "upload", "-source", "db", "-db", dbPath))
}

func TestConfigFile(t *testing.T) {
	h := newHarness(t, 2020, 2021)
	path := filepath.Join(t.TempDir(), "nflvrs.json")
	body := `{"first_season": 2020, "last_season": 2021, "min_throws": 20, "clusters": 2, "seed": 11, "restarts": 3}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	require.NoError(t, h.run(t, "tiers", "-config", path))
	assert.Contains(t, h.out.String(), "k=2")

	// Flags override the file.
	require.NoError(t, h.run(t, "tiers", "-config", path, "-k", "4"))
	assert.Contains(t, h.out.String(), "k=4")

	assert.Error(t, h.run(t, "tiers", "-config", filepath.Join(t.TempDir(), "missing.json")))
}

func TestServe_StopsOnCancel(t *testing.T) {
	h := newHarness(t, 2021)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.cli.run(ctx, []string{"serve", "-min-throws", "1", "-listen", "127.0.0.1:0"})
	assert.NoError(t, err)
}
