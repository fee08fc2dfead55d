package pbp

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/nflvrs/internal/fsutil"
	"github.com/banshee-data/nflvrs/internal/testutil"
)

func seasonFS(t *testing.T, dir string, seasons ...int) *fsutil.MemoryFileSystem {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	for _, s := range seasons {
		fsys.WriteFile(SeasonFile(dir, s), testutil.GzipCSV(testutil.League([]int{s}, 2, 3)))
	}
	return fsys
}

func TestLoadSeasons(t *testing.T) {
	fsys := seasonFS(t, "data", 2020, 2021, 2022)

	plays, err := LoadSeasons(fsys, "data", 2020, 2021)
	if err != nil {
		t.Fatalf("LoadSeasons: %v", err)
	}
	if diff := cmp.Diff([]int{2020, 2021}, plays.Seasons()); diff != "" {
		t.Errorf("seasons mismatch (-want +got):\n%s", diff)
	}
	perSeason := len(testutil.League([]int{2020}, 2, 3))
	if plays.Len() != 2*perSeason {
		t.Errorf("got %d plays, want %d", plays.Len(), 2*perSeason)
	}
	if plays[0].Season != 2020 || plays[plays.Len()-1].Season != 2021 {
		t.Error("seasons should be concatenated in order")
	}
}

func TestLoadSeasons_SingleSeason(t *testing.T) {
	fsys := seasonFS(t, "data", 2021)
	plays, err := LoadSeasons(fsys, "data", 2021, 2021)
	if err != nil {
		t.Fatalf("LoadSeasons: %v", err)
	}
	if plays.Len() == 0 {
		t.Error("a single-season range should load that season")
	}
}

func TestLoadSeasons_Errors(t *testing.T) {
	fsys := seasonFS(t, "data", 2021)

	if _, err := LoadSeasons(fsys, "data", 2022, 2021); !errors.Is(err, ErrNoSeasons) {
		t.Errorf("reversed range err = %v, want ErrNoSeasons", err)
	}
	if _, err := LoadSeasons(fsys, "data", 2020, 2021); err == nil {
		t.Error("expected error for missing season file")
	}
}

func TestLoadFile_PlainCSV(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("extract.csv", testutil.CSV(testutil.League([]int{2019}, 1, 1)))

	plays, err := LoadFile(fsys, "extract.csv")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if plays.Len() != 2*len(testutil.LeagueQBs) {
		t.Errorf("got %d plays", plays.Len())
	}
}

func TestAvailableSeasons(t *testing.T) {
	fsys := seasonFS(t, "data", 2022, 2019, 2021)
	fsys.WriteFile("data/notes.txt", []byte("x"))

	got, err := AvailableSeasons(fsys, "data")
	if err != nil {
		t.Fatalf("AvailableSeasons: %v", err)
	}
	if diff := cmp.Diff([]int{2019, 2021, 2022}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
