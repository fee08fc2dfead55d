package pbp

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/banshee-data/nflvrs/internal/fsutil"
	"github.com/banshee-data/nflvrs/internal/monitoring"
)

// ErrNoSeasons is returned when a season range is empty.
var ErrNoSeasons = errors.New("no seasons in range")

// SeasonFileName is the on-disk name of a season extract.
func SeasonFileName(season int) string {
	return fmt.Sprintf("nfl_%d_pbp.csv.gz", season)
}

// SeasonFile joins dir and the season's file name.
func SeasonFile(dir string, season int) string {
	return filepath.Join(dir, SeasonFileName(season))
}

// LoadFile reads one extract. Files ending in .gz are decompressed.
func LoadFile(fsys fsutil.FileSystem, path string) (Plays, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	start := time.Now()
	var plays Plays
	if strings.HasSuffix(path, ".gz") {
		plays, err = ReadGzipCSV(f)
	} else {
		plays, err = ReadCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	monitoring.Debugf("pbp: loaded %d plays from %s in %v", len(plays), path, time.Since(start))
	return plays, nil
}

// LoadSeasons reads every season in [first, last] from dir and concatenates
// them in season order.
func LoadSeasons(fsys fsutil.FileSystem, dir string, first, last int) (Plays, error) {
	if last < first {
		return nil, fmt.Errorf("%w: %d-%d", ErrNoSeasons, first, last)
	}
	var all Plays
	for season := first; season <= last; season++ {
		plays, err := LoadFile(fsys, SeasonFile(dir, season))
		if err != nil {
			return nil, err
		}
		all = append(all, plays...)
	}
	monitoring.Logf("pbp: loaded %d plays for seasons %d-%d", len(all), first, last)
	return all, nil
}

// AvailableSeasons lists the seasons with an extract in dir, ascending.
func AvailableSeasons(fsys fsutil.FileSystem, dir string) ([]int, error) {
	matches, err := fsys.Glob(filepath.Join(dir, "nfl_*_pbp.csv.gz"))
	if err != nil {
		return nil, err
	}
	var seasons []int
	for _, m := range matches {
		var season int
		if _, err := fmt.Sscanf(filepath.Base(m), "nfl_%d_pbp.csv.gz", &season); err == nil {
			seasons = append(seasons, season)
		}
	}
	sort.Ints(seasons)
	return seasons, nil
}
