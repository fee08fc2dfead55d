package db

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrUnknownMigrateAction is returned by RunMigrateCommand for an
// unrecognised action.
var ErrUnknownMigrateAction = errors.New("unknown migrate action")

// RunMigrateCommand implements the migrate subcommand against the database
// at dbPath. Actions: up, down, status, version <n>, force <n>, help.
func RunMigrateCommand(w io.Writer, args []string, dbPath string) error {
	if len(args) < 1 || args[0] == "help" {
		PrintMigrateHelp(w)
		return nil
	}

	database, err := OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	switch action := args[0]; action {
	case "up":
		if err := database.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := database.MigrateDown(); err != nil {
			return err
		}
	case "status":
	case "version", "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: nflvrs migrate %s <version>", action)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid version number %q", args[1])
		}
		if action == "version" {
			err = database.MigrateTo(uint(n))
		} else {
			err = database.MigrateForce(n)
		}
		if err != nil {
			return err
		}
	default:
		PrintMigrateHelp(w)
		return fmt.Errorf("%w: %s", ErrUnknownMigrateAction, action)
	}
	return printStatus(w, database)
}

func printStatus(w io.Writer, database *DB) error {
	version, dirty, err := database.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	latest, err := LatestMigrationVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Current version: %d (latest %d)\n", version, latest)
	fmt.Fprintf(w, "Dirty: %v\n", dirty)
	if dirty {
		fmt.Fprintln(w, "A migration failed part way. Inspect the database, then run: nflvrs migrate force <version>")
	}
	return nil
}

// PrintMigrateHelp writes the migrate usage text.
func PrintMigrateHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: nflvrs migrate <action> [args]

Actions:
  up             apply all pending migrations
  down           roll back the most recent migration
  status         show the current version
  version <n>    migrate up or down to version n
  force <n>      record version n without running migrations
  help           show this message
`)
}
