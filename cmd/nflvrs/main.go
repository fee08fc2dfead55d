// Command nflvrs loads nflfastR play-by-play extracts, tiers quarterbacks
// with k-means and renders comparison charts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/nflvrs/internal/fsutil"
	"github.com/banshee-data/nflvrs/internal/httputil"
	"github.com/banshee-data/nflvrs/internal/timeutil"
)

// cli carries the seams every subcommand uses.
type cli struct {
	stdout io.Writer
	fs     fsutil.FileSystem
	client httputil.HTTPClient
	clock  timeutil.Clock
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	c := &cli{
		stdout: os.Stdout,
		fs:     fsutil.OSFileSystem{},
		client: httputil.NewStandardClient(nil),
		clock:  timeutil.RealClock{},
	}
	err := c.run(ctx, os.Args[1:])
	stop()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("nflvrs: %v", err)
	}
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		c.printUsage()
		return errors.New("no command given")
	}
	command, args := args[0], args[1:]

	switch command {
	case "fetch":
		return c.handleFetch(ctx, args)
	case "upload":
		return c.handleUpload(ctx, args)
	case "migrate":
		return c.handleMigrate(args)
	case "tiers":
		return c.handleTiers(ctx, args)
	case "elbow":
		return c.handleElbow(ctx, args)
	case "epa-per-game":
		return c.handleEPAPerGame(ctx, args)
	case "epa-vs-cpoe":
		return c.handleEPAVsCPOE(ctx, args)
	case "serve":
		return c.handleServe(ctx, args)
	case "version":
		return c.handleVersion()
	case "help", "-h", "--help":
		c.printUsage()
		return nil
	default:
		c.printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (c *cli) printUsage() {
	fmt.Fprintln(c.stdout, `nflvrs - play-by-play analytics and quarterback tiering

Usage: nflvrs <command> [flags]

Commands:
  fetch          Download season extracts into the data directory
  upload         Load season extracts into the sqlite database
  migrate        Manage database schema migrations
  tiers          Cluster passers into tiers by CPOE and EPA
  elbow          Print WCSS for k = 1..max-k
  epa-per-game   Chart average EPA per game for highlighted passers
  epa-vs-cpoe    Chart per-season EPA against CPOE
  serve          Run the dashboard HTTP server
  version        Show build information
  help           Show this help message

Common Flags:
  -config <file>   JSON analysis config (default config/nflvrs.json if present)
  -first, -last    Inclusive season range (default: current year)
  -data-dir <dir>  Directory holding nfl_<year>_pbp.csv.gz extracts
  -source csv|db   Read plays from extracts or the database
  -out <file>      Chart output; .html renders an interactive chart, anything else PNG

Run 'nflvrs <command> -h' for the full flag list.`)
}
