package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/banshee-data/nflvrs/internal/monitoring"
	"github.com/banshee-data/nflvrs/internal/pbp"
)

// Table and derived column names.
const (
	PlayTable   = "PlayByPlay"
	ImportTable = "Imports"

	ColYear     = "Year"
	ColImportID = "ImportId"
)

// ColumnName converts an extract header such as "qb_epa" to the PascalCase
// column name used in the database ("QbEpa").
func ColumnName(header string) string {
	title := cases.Title(language.Und)
	var b strings.Builder
	for _, part := range strings.Split(header, "_") {
		b.WriteString(title.String(part))
	}
	return b.String()
}

// playColumns lists the PlayByPlay columns in insert order.
func playColumns() []string {
	cols := make([]string, 0, len(pbp.Columns)+2)
	for _, c := range pbp.Columns {
		cols = append(cols, ColumnName(c))
	}
	return append(cols, ColYear, ColImportID)
}

// Import describes one UploadPlays batch.
type Import struct {
	ID         string `json:"import_id"`
	Source     string `json:"source"`
	Seasons    []int  `json:"seasons"`
	Rows       int    `json:"rows"`
	ImportedAt int64  `json:"imported_at"`
}

// UploadPlays writes plays to PlayByPlay in a single transaction and records
// an Imports row for the batch. Rows with the same (GameId, PlayId) are
// replaced, so re-uploading a season is safe. It returns the import id.
func (db *DB) UploadPlays(ctx context.Context, plays pbp.Plays, source string) (string, error) {
	if len(plays) == 0 {
		return "", ErrEmptyUpload
	}
	importID := uuid.NewString()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin upload: %w", err)
	}
	defer tx.Rollback()

	cols := playColumns()
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		PlayTable, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range plays {
		if _, err := stmt.ExecContext(ctx, playArgs(p, importID)...); err != nil {
			return "", fmt.Errorf("failed to insert play %d (%s/%d): %w", i, p.GameID, p.PlayID, err)
		}
	}

	seasons := plays.Seasons()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+ImportTable+" (ImportId, Source, Seasons, RowCount, ImportedAt) VALUES (?, ?, ?, ?, ?)",
		importID, source, joinInts(seasons), len(plays), db.Clock.Now().Unix(),
	); err != nil {
		return "", fmt.Errorf("failed to record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit upload: %w", err)
	}
	monitoring.Logf("db: import %s wrote %d plays for seasons %v from %s", importID, len(plays), seasons, source)
	return importID, nil
}

func playArgs(p pbp.Play, importID string) []interface{} {
	year := pbp.SeasonFromGameID(p.GameID)
	if year == 0 {
		year = p.Season
	}
	var down interface{}
	if p.Down != 0 {
		down = p.Down
	}
	return []interface{}{
		p.PlayID, p.GameID, p.Season, p.Week,
		nullString(p.Posteam), nullString(p.Defteam), down,
		p.Pass, p.Rush, p.CompletePass,
		nullString(p.Passer), nullString(p.Rusher), nullString(p.Receiver),
		nullFloat(p.QBEPA), nullFloat(p.EPA), nullFloat(p.CPOE),
		year, importID,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		if v, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// Plays reads back every play whose Year lies in [first, last], ordered by
// game and play id.
func (db *DB) Plays(ctx context.Context, first, last int) (pbp.Plays, error) {
	if first > last {
		return nil, fmt.Errorf("%w: %d-%d", pbp.ErrNoSeasons, first, last)
	}
	rows, err := db.QueryContext(ctx, `SELECT
			PlayId, GameId, Season, Week, Posteam, Defteam, Down,
			Pass, Rush, CompletePass, Passer, Rusher, Receiver,
			QbEpa, Epa, Cpoe
		FROM PlayByPlay
		WHERE Year BETWEEN ? AND ?
		ORDER BY GameId, PlayId`, first, last)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var out pbp.Plays
	for rows.Next() {
		var (
			p                        pbp.Play
			week, down               sql.NullInt64
			posteam, defteam         sql.NullString
			passer, rusher, receiver sql.NullString
			qbEPA, epa, cpoe         sql.NullFloat64
		)
		if err := rows.Scan(
			&p.PlayID, &p.GameID, &p.Season, &week, &posteam, &defteam, &down,
			&p.Pass, &p.Rush, &p.CompletePass, &passer, &rusher, &receiver,
			&qbEPA, &epa, &cpoe,
		); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		p.Week = int(week.Int64)
		p.Down = int(down.Int64)
		p.Posteam, p.Defteam = posteam.String, defteam.String
		p.Passer, p.Rusher, p.Receiver = passer.String, rusher.String, receiver.String
		p.QBEPA, p.EPA, p.CPOE = floatOrNaN(qbEPA), floatOrNaN(epa), floatOrNaN(cpoe)
		out = append(out, p)
	}
	return out, rows.Err()
}

// PasserSummary is the SQL-side equivalent of pbp.PasserEPACPOE.
type PasserSummary struct {
	Passer      string  `json:"passer"`
	Attempts    int     `json:"attempts"`
	Completions int     `json:"completions"`
	EPA         float64 `json:"epa"`
	CPOE        float64 `json:"cpoe"`
}

// PasserSummaries aggregates attempts, completions and mean qb_epa and cpoe
// per passer with at least minAttempts plays, best EPA first. NULL values
// are ignored by the means; a passer with none reports NaN.
func (db *DB) PasserSummaries(ctx context.Context, minAttempts int) ([]PasserSummary, error) {
	rows, err := db.QueryContext(ctx, `SELECT
			Passer, COUNT(*), SUM(CompletePass), AVG(QbEpa), AVG(Cpoe)
		FROM PlayByPlay
		WHERE Passer IS NOT NULL
		GROUP BY Passer
		HAVING COUNT(*) >= ?
		ORDER BY AVG(QbEpa) DESC, Passer`, minAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to query passer summaries: %w", err)
	}
	defer rows.Close()

	var out []PasserSummary
	for rows.Next() {
		var (
			s         PasserSummary
			epa, cpoe sql.NullFloat64
		)
		if err := rows.Scan(&s.Passer, &s.Attempts, &s.Completions, &epa, &cpoe); err != nil {
			return nil, fmt.Errorf("failed to scan passer summary: %w", err)
		}
		s.EPA, s.CPOE = floatOrNaN(epa), floatOrNaN(cpoe)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Imports lists recorded uploads, newest first.
func (db *DB) Imports(ctx context.Context) ([]Import, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT ImportId, Source, Seasons, RowCount, ImportedAt FROM "+ImportTable+" ORDER BY ImportedAt DESC, ImportId")
	if err != nil {
		return nil, fmt.Errorf("failed to query imports: %w", err)
	}
	defer rows.Close()

	var out []Import
	for rows.Next() {
		var (
			imp     Import
			seasons string
		)
		if err := rows.Scan(&imp.ID, &imp.Source, &seasons, &imp.Rows, &imp.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		imp.Seasons = splitInts(seasons)
		out = append(out, imp)
	}
	return out, rows.Err()
}

// Seasons returns the distinct Year values stored, ascending.
func (db *DB) Seasons(ctx context.Context) ([]int, error) {
	rows, err := db.QueryContext(ctx, "SELECT DISTINCT Year FROM "+PlayTable+" ORDER BY Year")
	if err != nil {
		return nil, fmt.Errorf("failed to query seasons: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Ints(out)
	return out, nil
}
