// Package config loads the cloudrec TOML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/mapper"
)

// DefaultFile is the configuration file name looked up by the CLI.
const DefaultFile = "cloudrec.toml"

// Config is the cloudrec configuration.
type Config struct {
	// Owner is the account identity that owns every zone.
	Owner string `toml:"owner"`
	// Database is the SQLite database path.
	Database string `toml:"database"`
	// AssetDir is the directory of content-addressed asset files.
	AssetDir string `toml:"asset_dir"`
	// AssetType is the object type name that marks asset properties.
	AssetType string `toml:"asset_type"`
	// MemberPolicy is "truncate" or "skip".
	MemberPolicy string `toml:"member_policy"`
	// ReferenceZone is "default" or "target".
	ReferenceZone string `toml:"reference_zone"`
	// Listen is the address of the preview API.
	Listen string `toml:"listen"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Owner:         ir.CurrentUserDefaultName,
		Database:      "cloudrec.db",
		AssetDir:      "assets",
		AssetType:     catalog.DefaultAssetType,
		MemberPolicy:  mapper.TruncateOnUnresolved.String(),
		ReferenceZone: "default",
		Listen:        "127.0.0.1:8089",
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults; unknown keys are an error. Relative paths in the file are
// resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("load config %s: %s", path, strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return Config{}, fmt.Errorf("load config %s:%d:%d: %w", path, row, col, err)
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.Database = resolve(dir, cfg.Database)
	cfg.AssetDir = resolve(dir, cfg.AssetDir)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	if _, err := mapper.ParseMemberPolicy(c.MemberPolicy); err != nil {
		return err
	}
	if _, err := c.referenceZone(); err != nil {
		return err
	}
	return nil
}

// MapperOptions returns the mapper options the configuration selects.
func (c Config) MapperOptions() ([]mapper.Option, error) {
	policy, err := mapper.ParseMemberPolicy(c.MemberPolicy)
	if err != nil {
		return nil, err
	}
	zone, err := c.referenceZone()
	if err != nil {
		return nil, err
	}
	return []mapper.Option{
		mapper.WithMemberPolicy(policy),
		mapper.WithReferenceZone(zone),
	}, nil
}

// CatalogOptions returns the catalog options the configuration selects.
func (c Config) CatalogOptions() []catalog.Option {
	return []catalog.Option{catalog.WithAssetType(c.AssetType)}
}

func (c Config) referenceZone() (mapper.ReferenceZone, error) {
	switch c.ReferenceZone {
	case "", "default":
		return mapper.ReferenceZoneDefault, nil
	case "target":
		return mapper.ReferenceZoneTarget, nil
	default:
		return 0, fmt.Errorf("unknown reference zone %q (want default or target)", c.ReferenceZone)
	}
}

func resolve(dir, path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
