// Package config handles gltfatlas configuration loading and conversion to atlas options.
package config

import (
	"fmt"
	"strings"

	"gltfatlas/atlas"
	"gltfatlas/rectpack"
)

// Config holds all settings of a pack run.
type Config struct {
	Atlas   AtlasConfig   `yaml:"atlas" toml:"atlas"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// AtlasConfig mirrors atlas.Options in a file friendly form.
type AtlasConfig struct {
	Types     []string `yaml:"types,omitempty" toml:"types,omitempty"` // Empty means every type
	MaxSize   int      `yaml:"max_size" toml:"max_size"`
	Padding   int      `yaml:"padding" toml:"padding"`
	Rotate    bool     `yaml:"rotate" toml:"rotate"`
	RotateUV  bool     `yaml:"rotate_uv" toml:"rotate_uv"`
	Pow2      bool     `yaml:"pow2" toml:"pow2"`
	Shrink    bool     `yaml:"shrink" toml:"shrink"`
	Remap     string   `yaml:"remap" toml:"remap"`
	Algorithm string   `yaml:"algorithm" toml:"algorithm"`
	Variant   string   `yaml:"variant" toml:"variant"`
	Sort      string   `yaml:"sort" toml:"sort"`
	Include   []string `yaml:"include,omitempty" toml:"include,omitempty"`
	Exclude   []string `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
	Format    string   `yaml:"format" toml:"format"`
	Downscale bool     `yaml:"downscale" toml:"downscale"`
}

// OutputConfig holds optional side outputs.
type OutputConfig struct {
	Manifest string `yaml:"manifest" toml:"manifest"`
	PagesDir string `yaml:"pages_dir" toml:"pages_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with the documented defaults.
func Default() *Config {
	return &Config{
		Atlas: AtlasConfig{
			MaxSize:   rectpack.DefaultSize,
			Padding:   2,
			RotateUV:  true,
			Pow2:      true,
			Shrink:    true,
			Remap:     "projective",
			Algorithm: "maxrects",
			Sort:      "maxside",
			Format:    "png",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

var formatAliases = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
	"avif": "image/avif",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

// FormatMime resolves a short format name or a mime type.
func FormatMime(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if strings.HasPrefix(f, "image/") {
		return f, nil
	}
	if mime, ok := formatAliases[strings.TrimPrefix(f, ".")]; ok {
		return mime, nil
	}
	return "", fmt.Errorf("%w: unknown image format %q", atlas.ErrConfig, format)
}

// AtlasOptions converts the atlas section to atlas.Options. Codec and Logger are left
// for the caller to set.
func (c *Config) AtlasOptions() (atlas.Options, error) {
	a := c.Atlas
	opts := atlas.DefaultOptions()
	for _, name := range a.Types {
		t, err := atlas.ParseType(name)
		if err != nil {
			return opts, err
		}
		opts.Types = append(opts.Types, t)
	}
	remap, err := atlas.ParseRemapMode(a.Remap)
	if err != nil {
		return opts, err
	}
	algo, err := rectpack.ResolveAlgorithm(a.Algorithm, a.Variant)
	if err != nil {
		return opts, fmt.Errorf("%w: %v", atlas.ErrConfig, err)
	}
	sortFunc, err := rectpack.ParseSort(a.Sort)
	if err != nil {
		return opts, fmt.Errorf("%w: %v", atlas.ErrConfig, err)
	}
	format, err := FormatMime(a.Format)
	if err != nil {
		return opts, err
	}

	opts.MaxSize = a.MaxSize
	opts.Padding = a.Padding
	opts.Rotate = a.Rotate
	opts.RotateUV = a.RotateUV
	opts.Pow2 = a.Pow2
	opts.Shrink = a.Shrink
	opts.Remap = remap
	opts.Algorithm = algo
	opts.Sort = sortFunc
	opts.Filter = atlas.Filter{Include: a.Include, Exclude: a.Exclude}
	opts.Format = format
	opts.Downscale = a.Downscale
	return opts, nil
}
