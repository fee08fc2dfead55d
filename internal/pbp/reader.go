package pbp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/gzip"
)

// Column names used from nflfastR extracts.
const (
	ColPlayID       = "play_id"
	ColGameID       = "game_id"
	ColSeason       = "season"
	ColWeek         = "week"
	ColPosteam      = "posteam"
	ColDefteam      = "defteam"
	ColDown         = "down"
	ColPass         = "pass"
	ColRush         = "rush"
	ColCompletePass = "complete_pass"
	ColPasser       = "passer"
	ColRusher       = "rusher"
	ColReceiver     = "receiver"
	ColQBEPA        = "qb_epa"
	ColEPA          = "epa"
	ColCPOE         = "cpoe"
)

// Columns lists every column the reader understands, in extract order.
var Columns = []string{
	ColPlayID, ColGameID, ColSeason, ColWeek, ColPosteam, ColDefteam, ColDown,
	ColPass, ColRush, ColCompletePass, ColPasser, ColRusher, ColReceiver,
	ColQBEPA, ColEPA, ColCPOE,
}

var requiredColumns = []string{ColGameID, ColPasser, ColQBEPA, ColCPOE}

// ErrMissingColumn is returned when an extract lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// ReadCSV decodes a play-by-play CSV extract. Columns are located by header
// name; unknown columns are ignored and optional ones default to their zero
// value (NaN for numerics).
func ReadCSV(r io.Reader) (Plays, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var plays Plays
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		p := Play{
			GameID:       get(ColGameID),
			Season:       parseInt(get(ColSeason)),
			Week:         parseInt(get(ColWeek)),
			Posteam:      parseName(get(ColPosteam)),
			Defteam:      parseName(get(ColDefteam)),
			Down:         parseInt(get(ColDown)),
			Pass:         parseFlag(get(ColPass)),
			Rush:         parseFlag(get(ColRush)),
			CompletePass: parseFlag(get(ColCompletePass)),
			Passer:       parseName(get(ColPasser)),
			Rusher:       parseName(get(ColRusher)),
			Receiver:     parseName(get(ColReceiver)),
			QBEPA:        parseFloat(get(ColQBEPA)),
			EPA:          parseFloat(get(ColEPA)),
			CPOE:         parseFloat(get(ColCPOE)),
		}
		if s := get(ColPlayID); !isMissing(s) {
			if id, err := strconv.ParseInt(s, 10, 64); err == nil {
				p.PlayID = id
			} else {
				p.PlayID = int64(parseInt(s))
			}
		}
		if p.Season == 0 {
			p.Season = SeasonFromGameID(p.GameID)
		}
		plays = append(plays, p)
	}
	return plays, nil
}

// ReadGzipCSV decodes a gzip-compressed extract.
func ReadGzipCSV(r io.Reader) (Plays, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()
	return ReadCSV(zr)
}
