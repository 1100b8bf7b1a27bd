package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gltfatlas/atlas"
	"gltfatlas/imagecodec"
	"gltfatlas/internal/config"
	"gltfatlas/internal/logger"
)

func newUnpackCmd() *cobra.Command {
	var pagesDir, outDir, level string
	cmd := &cobra.Command{
		Use:   "unpack <manifest.json>",
		Short: "Extract the sprites of atlas pages described by a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(level, ""); err != nil {
				return err
			}
			defer logger.Sync()
			n, err := unpack(args[0], pagesDir, outDir, logger.Log.Named("unpack"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unpacked %d sprites to %s\n", n, outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&pagesDir, "pages-dir", "", "Directory holding the page images, the manifest directory by default")
	cmd.Flags().StringVar(&outDir, "out", "unpacked", "Output directory")
	cmd.Flags().StringVar(&level, "log-level", "info", "Log level: debug, info, warn or error")
	return cmd
}

// 解包图集函数，返回写出的精灵数量
func unpack(manifestPath, pagesDir, outDir string, log *zap.Logger) (int, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return 0, fmt.Errorf("read manifest: %w", err)
	}
	manifest, err := atlas.ParseManifest(data)
	if err != nil {
		return 0, err
	}
	if pagesDir == "" {
		pagesDir = filepath.Dir(manifestPath)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, err
	}

	codec := imagecodec.New()
	count := 0
	for _, a := range manifest.Atlases {
		if !filepath.IsLocal(filepath.FromSlash(a.AtlasName)) {
			return count, fmt.Errorf("atlas name %q escapes the output directory", a.AtlasName)
		}
		for name := range a.SpriteList {
			if !filepath.IsLocal(filepath.FromSlash(name)) {
				return count, fmt.Errorf("sprite name %q escapes the output directory", name)
			}
		}
		page, err := loadPage(codec, filepath.Join(pagesDir, filepath.FromSlash(a.AtlasName)))
		if err != nil {
			return count, err
		}
		bounds := page.Bounds()
		dir := filepath.Join(outDir, strings.TrimSuffix(a.AtlasName, filepath.Ext(a.AtlasName)))

		var g errgroup.Group
		g.SetLimit(runtime.NumCPU())
		// 按自然顺序处理，便于日志对照
		for _, name := range a.SpriteNames() {
			sprite := a.SpriteList[name]
			g.Go(func() error {
				r := image.Rect(sprite.Region.X, sprite.Region.Y, sprite.Region.X+sprite.Region.W, sprite.Region.Y+sprite.Region.H)
				if !r.In(bounds) {
					return fmt.Errorf("sprite %s region %v outside page %s", name, r, a.AtlasName)
				}
				var sub image.Image = imaging.Crop(page, r)
				// 打包时逆时针旋转了90度，这里转回来
				if sprite.Rotated {
					sub = imaging.Rotate270(sub)
				}
				return saveSprite(codec, filepath.Join(dir, filepath.FromSlash(name)), sub)
			})
		}
		if err := g.Wait(); err != nil {
			return count, err
		}
		count += len(a.SpriteList)
		log.Debug("page unpacked", zap.String("page", a.AtlasName), zap.Int("sprites", len(a.SpriteList)))
	}
	return count, nil
}

func loadPage(codec *imagecodec.Codec, path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	mime := ""
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
	}
	img, err := codec.Decode(data, mime)
	if err != nil {
		return nil, fmt.Errorf("decode page %s: %w", path, err)
	}
	return img, nil
}

// saveSprite 按扩展名编码，编码器不支持的格式改存为 PNG。
func saveSprite(codec *imagecodec.Codec, path string, img image.Image) error {
	mime, err := config.FormatMime(filepath.Ext(path))
	if err != nil || !codec.CanEncode(mime) {
		mime = "image/png"
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
	}
	data, err := codec.Encode(img, mime)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeFile(path, data)
}
