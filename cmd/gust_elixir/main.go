// The gust_elixir CLI extracts a Gust .elixir[.gz] archive into a directory,
// or recreates the archive from such a directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/gusttools/go-elixir"
	"github.com/gusttools/go-elixir/internal/backup"
	"github.com/gusttools/go-elixir/internal/tool"
)

var versionGitCommit string

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	app := &cli.App{
		Name:      "gust_elixir",
		Usage:     "Extracts (file) or recreates (directory) a Gust .elixir archive",
		UsageText: "gust_elixir [-l] [-d] <elixir[.gz] file | directory>",
		Version:   versionGitCommit,
		Description: "A backup (.bak) of the original is automatically created when the target\n" +
			"is being overwritten for the first time.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "list", Aliases: []string{"l"}, Usage: "List the entries of an archive without extracting them"},
			&cli.BoolFlag{Name: "decompress-only", Aliases: []string{"d"}, Usage: "Only remove the .gz envelope of an archive"},
			&cli.BoolFlag{Name: "restore", Usage: "Replace the archive with its backup"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Set log level (panic, fatal, error, warn, info, debug, trace)", EnvVars: []string{"ELIXIR_LOG_LEVEL"}},
			&cli.BoolFlag{Name: "no-backup", Usage: "Do not back up an archive before replacing it", EnvVars: []string{"ELIXIR_NO_BACKUP"}},
			&cli.StringFlag{Name: "backup-compression", Value: string(backup.CompNone), Usage: "Backup compression (none, zstd, lz4, br)", EnvVars: []string{"ELIXIR_BACKUP_COMPRESSION"}},
			&cli.IntFlag{Name: "chunk-size", Value: elixir.DefaultChunkSize, Usage: "Uncompressed size of each .gz chunk", EnvVars: []string{"ELIXIR_CHUNK_SIZE"}},
			&cli.IntFlag{Name: "level", Value: 0, Usage: "zlib level (1-9) of recreated .gz archives, 0 for the default", EnvVars: []string{"ELIXIR_LEVEL"}},
			&cli.Uint64Flag{Name: "max-inflate-ratio", Value: 0, Usage: "Largest decompressed/compressed size ratio accepted, 0 for the default", EnvVars: []string{"ELIXIR_MAX_INFLATE_RATIO"}},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		logrus.Error(err)
		stop()
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.ShowAppHelp(c)
	}
	if c.NArg() != 1 {
		return fmt.Errorf("expected one path, got %d", c.NArg())
	}
	path := c.Args().First()

	logLevel, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logrus.SetLevel(logLevel)

	opts, err := parseOptions(c)
	if err != nil {
		return err
	}

	if c.Bool("restore") {
		return tool.Restore(c.Context, path, opts)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return elixir.NewIOError("stat", path, err)
	}
	if fi.IsDir() {
		if c.Bool("list") {
			return fmt.Errorf("option -l is not supported when creating an archive")
		}
		if c.Bool("decompress-only") {
			return fmt.Errorf("option -d is not supported when creating an archive")
		}
		return tool.Pack(c.Context, path, opts)
	}

	switch {
	case c.Bool("list"):
		logrus.Infof("Listing '%s'...", path)
		_, err := tool.List(c.Context, path, opts)
		return err
	case c.Bool("decompress-only"):
		logrus.Infof("Decompressing '%s'...", path)
		return tool.Decompress(c.Context, path, opts)
	default:
		logrus.Infof("Extracting '%s'...", path)
		return tool.Unpack(c.Context, path, opts)
	}
}

func parseOptions(c *cli.Context) (tool.Options, error) {
	opts := tool.DefaultOptions()
	comp, err := backup.ParseCompression(c.String("backup-compression"))
	if err != nil {
		return opts, err
	}
	level := c.Int("level")
	if level < 0 || level > 9 {
		return opts, fmt.Errorf("--level should be between 0 and 9")
	}
	if c.Int("chunk-size") <= 0 {
		return opts, fmt.Errorf("--chunk-size should be greater than 0")
	}
	opts.Backup = !c.Bool("no-backup")
	opts.BackupCompression = comp
	opts.ChunkSize = c.Int("chunk-size")
	opts.CompressionLevel = level
	opts.Limits.MaxInflateRatio = c.Uint64("max-inflate-ratio")
	return opts, nil
}
