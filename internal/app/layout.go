package app

import (
	"context"
	"encoding/json"
	"fmt"

	"go.trai.ch/claimgraph/internal/adapters/fetcher/filefetch"
	"go.trai.ch/claimgraph/internal/adapters/telemetry"
	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/claimgraph/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Output formats of LayoutFiles.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// LayoutOptions configuration for the LayoutFiles method.
type LayoutOptions struct {
	ConfigPath string
	Files      []string
	Level      domain.Level
	Format     string
	// Seed and Iterations override the configured layout parameters when set.
	Seed       *uint64
	Iterations *int
}

// FileLayout is the laid-out graph of one payload file.
type FileLayout struct {
	File         string                     `json:"file" yaml:"file"`
	Level        domain.Level               `json:"level" yaml:"level"`
	DroppedEdges int                        `json:"dropped_edges" yaml:"dropped_edges"`
	Snapshot     *domain.PositionedSnapshot `json:"snapshot" yaml:"snapshot"`
}

// LayoutFiles lays out every payload file concurrently and writes the
// results, in input order, in the requested format.
func (a *App) LayoutFiles(ctx context.Context, opts LayoutOptions) (err error) {
	if len(opts.Files) == 0 {
		return zerr.Wrap(domain.ErrInvalidConfig, "no payload files given")
	}
	format := opts.Format
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatYAML {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unknown output format"), "format", format)
	}
	if !opts.Level.Valid() {
		return zerr.With(zerr.Wrap(domain.ErrUnknownLevel, "cannot lay out level"), "level", int(opts.Level))
	}
	if opts.Iterations != nil && *opts.Iterations <= 0 {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "iterations must be positive"), "iterations", *opts.Iterations)
	}

	cfg, err := a.loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	tracer, shutdown, err := telemetry.New(cfg.Telemetry.Kind, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = shutdown(context.WithoutCancel(ctx))
	}()

	params := cfg.Layout.For(opts.Level)
	if opts.Seed != nil {
		params.Seed = *opts.Seed
	}
	if opts.Iterations != nil {
		params.Iterations = *opts.Iterations
	}

	results := make([]FileLayout, len(opts.Files))
	g, ctx := errgroup.WithContext(ctx)
	for i, file := range opts.Files {
		g.Go(func() error {
			res, err := a.layoutFile(ctx, tracer, cfg.Backend.StrictEdges, opts.Level, params, file)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return a.writeLayouts(format, results)
}

func (a *App) layoutFile(
	ctx context.Context,
	tracer ports.Tracer,
	strict bool,
	level domain.Level,
	params domain.LayoutParams,
	file string,
) (FileLayout, error) {
	_, span := tracer.Start(ctx, "layout.file",
		ports.WithAttribute("file", file),
		ports.WithAttribute("level", level.String()),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return FileLayout{}, err
	}

	payload, err := filefetch.ReadPayload(file, level)
	if err != nil {
		span.RecordError(err)
		return FileLayout{}, err
	}
	snapshot, err := domain.BuildSnapshot(payload, domain.WithStrictEdges(strict))
	if err != nil {
		span.RecordError(err)
		return FileLayout{}, zerr.With(err, "file", file)
	}
	if dropped := snapshot.DroppedEdges(); dropped > 0 {
		a.logger.Warn(fmt.Sprintf("%s: dropped %d edges referencing unknown nodes", file, dropped))
	}

	positioned := a.layout.Layout(snapshot, params)
	span.SetAttribute("nodes", snapshot.Len())
	span.SetAttribute("edges", len(positioned.Edges))

	return FileLayout{
		File:         file,
		Level:        level,
		DroppedEdges: snapshot.DroppedEdges(),
		Snapshot:     positioned,
	}, nil
}

func (a *App) writeLayouts(format string, results []FileLayout) error {
	if format == FormatYAML {
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return zerr.Wrap(err, "failed to write layout")
		}
		return enc.Close()
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return zerr.Wrap(err, "failed to write layout")
	}
	return nil
}
