package main

import (
	"context"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/tasks"
)

// Export writes playlists to disk with the bulk export engine. Flags fall back
// to the [export] section of the config.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	name := cmd.String("format")
	if name == "" {
		name = r.config.Export.Format
	}
	format, err := formatter.ParseFormat(name)
	if err != nil {
		return err
	}

	opts := tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		CoverImage: cmd.Bool("cover"),
	}
	if opts.NumWorkers == 0 {
		opts.NumWorkers = r.config.Export.Workers
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = r.config.Export.RateLimit
	}

	if err := r.connect(); err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	r.logger.Info("starting bulk export", "playlists", len(ids), "format", format)

	progress := make(chan tasks.ProgressUpdate, 32)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.engine.BulkExport(ctx, progress, ids, opts)
	close(progress)
	wg.Wait()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlainln("%s", r.palette.Title("Export complete"))
	r.writePlain("  Output: %s\n", result.OutputDirectory)
	r.writePlain("  %s\n", r.palette.OK(pluralize(result.SuccessfulExports, "playlist")+" exported"))
	if result.FailedExports > 0 {
		r.writePlain("  %s\n", r.palette.Fail(pluralize(result.FailedExports, "playlist")+" failed"))
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("    %s: %s\n", res.PlaylistName, res.ErrorMessage)
			}
		}
	}
	r.writePlain("  Manifest: %s\n", result.ManifestPath)
	return nil
}
