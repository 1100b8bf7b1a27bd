package config

import (
	"strings"

	"github.com/spf13/pflag"

	"gltfatlas/rectpack"
)

// RegisterFlags declares the pack flags on fs. Defaults shown in help come from Default;
// only flags the user actually sets override the loaded config.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "Path to a .yaml or .toml config file")
	fs.StringSlice("types", nil, "Atlas types to process (baseColor,normal,metallicRoughness,occlusion,emissive)")
	fs.Int("max-size", d.Atlas.MaxSize, "Maximum page width and height in pixels")
	fs.Int("padding", d.Atlas.Padding, "Gutter around every texture in pixels")
	fs.Bool("rotate", d.Atlas.Rotate, "Allow 90 degree rotation of textures")
	fs.Bool("rotate-uv", d.Atlas.RotateUV, "Rotate UVs of rotated textures to match")
	fs.Bool("pow2", d.Atlas.Pow2, "Round page sizes up to powers of two")
	fs.Bool("shrink", d.Atlas.Shrink, "Fit pages to their content")
	fs.String("remap", d.Atlas.Remap, "UV remap mode: projective or geometry-rebake")
	fs.String("algorithm", d.Atlas.Algorithm, "Packing algorithm: maxrects, skyline or guillotine")
	fs.String("variant", d.Atlas.Variant, "Packing heuristic variant, algorithm default when empty")
	fs.String("sort", d.Atlas.Sort, "Packing order: "+strings.Join(rectpack.SortNames(), ", "))
	fs.StringSlice("include", nil, "Only pack textures matching these globs")
	fs.StringSlice("exclude", nil, "Skip textures matching these globs")
	fs.String("format", d.Atlas.Format, "Page image format (png, jpeg, webp, ... or a mime type)")
	fs.Bool("downscale", d.Atlas.Downscale, "Resize oversize textures instead of skipping them")
	fs.String("manifest", "", "Write a JSON manifest of the pages to this path")
	fs.String("pages-dir", "", "Also write page images into this directory")
	fs.String("log-level", d.Logging.Level, "Log level: debug, info, warn or error")
	fs.String("log-file", "", "Also log to this rotating file")
	fs.String("save-config", "", "Write the effective config to this .yaml or .toml path")
}

// ApplyFlags applies CLI flag overrides to the config. Unset flags leave file values alone.
func ApplyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	set := func(name string, apply func() error) {
		if err == nil && fs.Changed(name) {
			err = apply()
		}
	}
	str := func(name string, dst *string) {
		set(name, func() (e error) { *dst, e = fs.GetString(name); return })
	}
	strs := func(name string, dst *[]string) {
		set(name, func() (e error) { *dst, e = fs.GetStringSlice(name); return })
	}
	num := func(name string, dst *int) {
		set(name, func() (e error) { *dst, e = fs.GetInt(name); return })
	}
	flag := func(name string, dst *bool) {
		set(name, func() (e error) { *dst, e = fs.GetBool(name); return })
	}

	a := &cfg.Atlas
	strs("types", &a.Types)
	num("max-size", &a.MaxSize)
	num("padding", &a.Padding)
	flag("rotate", &a.Rotate)
	flag("rotate-uv", &a.RotateUV)
	flag("pow2", &a.Pow2)
	flag("shrink", &a.Shrink)
	str("remap", &a.Remap)
	str("algorithm", &a.Algorithm)
	str("variant", &a.Variant)
	str("sort", &a.Sort)
	strs("include", &a.Include)
	strs("exclude", &a.Exclude)
	str("format", &a.Format)
	flag("downscale", &a.Downscale)
	str("manifest", &cfg.Output.Manifest)
	str("pages-dir", &cfg.Output.PagesDir)
	str("log-level", &cfg.Logging.Level)
	str("log-file", &cfg.Logging.LogFile)
	return err
}
