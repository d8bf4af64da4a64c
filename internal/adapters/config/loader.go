// Package config loads claimgraph.yaml.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/claimgraph/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	logger ports.Logger
	getenv func(string) string
}

// NewLoader creates a Loader that reads the environment through os.Getenv.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logger, getenv: os.Getenv}
}

// Load resolves and reads the configuration.
//
// An empty path uses $CLAIMGRAPH_CONFIG, then claimgraph.yaml in the
// working directory. A directory path looks for claimgraph.yaml inside it.
// Only a file named explicitly must exist; otherwise the defaults are used.
func (l *Loader) Load(path string) (*domain.Config, error) {
	explicit := path != ""
	if !explicit {
		if env := l.getenv(domain.ConfigEnvVar); env != "" {
			path, explicit = env, true
		} else {
			path = domain.DefaultConfigFile
		}
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path, explicit = filepath.Join(path, domain.DefaultConfigFile), false
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		l.logger.Info("no " + domain.DefaultConfigFile + " found, using defaults")
		return domain.DefaultConfig(), nil
	case err != nil:
		return nil, zerr.With(errors.Join(domain.ErrConfigRead, err), "path", path)
	}

	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return cfg, nil
}

// Parse decodes a configuration document and overlays it on the defaults.
// Relative fixture directories are resolved against baseDir.
func Parse(data []byte, baseDir string) (*domain.Config, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(domain.ErrConfigParse, err)
	}

	cfg := domain.DefaultConfig()
	file.apply(cfg)

	if cfg.Backend.FixturesDir != "" && !filepath.IsAbs(cfg.Backend.FixturesDir) && baseDir != "" {
		cfg.Backend.FixturesDir = filepath.Join(baseDir, cfg.Backend.FixturesDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *File) apply(cfg *domain.Config) {
	if b := f.Backend; b != nil {
		setString(&cfg.Backend.Kind, b.Kind)
		setString(&cfg.Backend.BaseURL, b.BaseURL)
		setString(&cfg.Backend.FixturesDir, b.FixturesDir)
		set(&cfg.Backend.Timeout, b.Timeout)
		set(&cfg.Backend.StrictEdges, b.StrictEdges)
	}

	if n := f.Navigation; n != nil {
		set(&cfg.Navigation.PrefetchAncestors, n.PrefetchAncestors)
	}

	if lay := f.Layout; lay != nil {
		overlays := [domain.LevelCount]*LayoutParamsDTO{lay.Claims, lay.Statements, lay.Provenance}
		for _, level := range domain.Levels {
			p := &cfg.Layout.Levels[level]
			set(&p.Seed, lay.Seed)
			set(&p.BarnesHutThreshold, lay.BarnesHutThreshold)
			if o := overlays[level]; o != nil {
				o.apply(p)
			}
		}
	}

	if lg := f.Log; lg != nil {
		setString(&cfg.Log.Level, lg.Level)
		set(&cfg.Log.JSON, lg.JSON)
	}

	if t := f.Telemetry; t != nil {
		setString(&cfg.Telemetry.Kind, t.Kind)
	}

	if s := f.Server; s != nil {
		setString(&cfg.Server.Addr, s.Addr)
	}
}

func (d *LayoutParamsDTO) apply(p *domain.LayoutParams) {
	set(&p.RepulsionStrength, d.RepulsionStrength)
	set(&p.LinkDistance, d.LinkDistance)
	set(&p.CollisionRadius, d.CollisionRadius)
	set(&p.CollisionStrength, d.CollisionStrength)
	set(&p.CenteringStrength, d.CenteringStrength)
	set(&p.Iterations, d.Iterations)
	set(&p.AlphaMin, d.AlphaMin)
	set(&p.VelocityDecay, d.VelocityDecay)
	set(&p.Theta, d.Theta)
	set(&p.BarnesHutThreshold, d.BarnesHutThreshold)
	set(&p.SettleSweeps, d.SettleSweeps)
	set(&p.SettleTolerance, d.SettleTolerance)
	set(&p.Seed, d.Seed)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
