package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh/spinner"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"rekordscope/backend"
)

func main() {
	// Optional .env for default paths; missing file is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "rekordscope",
		Usage: "Analyse a Rekordbox collection export for quality, duplicate, playlist and cross-source issues.",
		Commands: []*cli.Command{
			{
				Name:      "analyse",
				Usage:     "Run the full analysis over a collection XML export",
				ArgsUsage: "<collection.xml>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "outdir", Value: "rekordscope-report", Usage: "directory for the report files"},
					&cli.StringFlag{Name: "music-root", EnvVars: []string{"REKORDSCOPE_MUSIC_ROOT"}, Usage: "root directory walked for relink suggestions"},
					&cli.StringFlag{Name: "mik-csv", EnvVars: []string{"REKORDSCOPE_MIK_CSV"}, Usage: "secondary analysis CSV export"},
					&cli.StringFlag{Name: "mik-db", EnvVars: []string{"REKORDSCOPE_MIK_DB"}, Usage: "secondary analysis SQLite database"},
					&cli.StringFlag{Name: "settings", EnvVars: []string{"REKORDSCOPE_SETTINGS"}, Usage: "shared settings.json (placeholder artwork)"},
					&cli.IntFlag{Name: "low-bitrate", Value: 320, Usage: "bitrate below this counts as low quality"},
					&cli.StringFlag{Name: "lossy-kind", Value: "mp3", Usage: "file kind the bitrate rule applies to"},
					&cli.Float64Flag{Name: "bpm-tolerance", Value: 0.75, Usage: "BPM difference above this counts as drift"},
					&cli.Float64Flag{Name: "fuzzy-merge", Usage: "similarity threshold (0..1) for merging near-identical duplicate groups"},
					&cli.BoolFlag{Name: "no-missing-files", Usage: "skip the on-disk existence check"},
					&cli.BoolFlag{Name: "artwork-scan", Usage: "inspect audio files for missing or placeholder artwork"},
					&cli.BoolFlag{Name: "tag-check", Usage: "compare embedded tags against collection metadata"},
					&cli.BoolFlag{Name: "archive", Usage: "pack the report directory into a tar.xz"},
				},
				Action: runAnalyse,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func runAnalyse(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: rekordscope analyse <collection.xml>", 2)
	}
	xmlPath := c.Args().First()

	opts := backend.AnalysisOptions{
		MusicRoot:        c.String("music-root"),
		SecondaryCSVPath: c.String("mik-csv"),
		SecondaryDBPath:  c.String("mik-db"),
		SettingsPath:     c.String("settings"),
		Quality: backend.QualityOptions{
			MinBitrate: c.Int("low-bitrate"),
			LossyKind:  c.String("lossy-kind"),
		},
		Duplicate: backend.DuplicateOptions{
			FuzzyMergeThreshold: float32(c.Float64("fuzzy-merge")),
		},
		Reconcile: backend.ReconcileOptions{
			BPMTolerance: c.Float64("bpm-tolerance"),
		},
		CheckFiles:     !c.Bool("no-missing-files"),
		InspectArtwork: c.Bool("artwork-scan"),
		InspectTags:    c.Bool("tag-check"),
	}

	var rep *backend.Report
	run := func(ctx context.Context) error {
		var err error
		rep, err = backend.Analyse(xmlPath, opts)
		return err
	}
	if err := spinner.New().Title("Analysing collection...").Context(c.Context).ActionWithErr(run).Run(); err != nil {
		return err
	}

	printSummary(rep)

	outDir := c.String("outdir")
	if err := backend.WriteReportFiles(rep, outDir); err != nil {
		return err
	}
	color.Green("report written to %s", outDir)

	if c.Bool("archive") {
		archivePath := outDir + ".tar.xz"
		if err := backend.ArchiveReport(outDir, archivePath); err != nil {
			return err
		}
		color.Green("archive written to %s", archivePath)
	}
	return nil
}

func printSummary(rep *backend.Report) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetRowLine(false)
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor})
	for _, stat := range rep.Summary {
		table.Append([]string{stat.Metric, stat.Value})
	}
	table.Render()

	for _, w := range rep.Warnings {
		color.Yellow("warning: %s", w)
	}
	fmt.Println()
}
