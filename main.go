package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gltfatlas/atlas"
	"gltfatlas/gltf"
	"gltfatlas/imagecodec"
	"gltfatlas/internal/config"
	"gltfatlas/internal/logger"
)

const (
	VERSION = "0.2.0"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gltfatlas",
		Short:         "Merge the textures of a glTF asset into atlas pages",
		Version:       VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPackCmd(), newUnpackCmd())
	return root
}

func newPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack <in.gltf|in.glb> <out.gltf|out.glb>",
		Short: "Atlas the textures of a glTF asset and remap its texture coordinates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := config.ApplyFlags(cfg, cmd.Flags()); err != nil {
				return err
			}
			if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
				return err
			}
			defer logger.Sync()
			log := logger.Log.Named("pack")
			// 保存合并后的配置，之后照常打包
			if dst, _ := cmd.Flags().GetString("save-config"); dst != "" {
				if err := cfg.SaveTo(dst); err != nil {
					return fmt.Errorf("save config: %w", err)
				}
				log.Info("config saved", zap.String("path", dst))
			}
			return pack(args[0], args[1], cfg, log, cmd.OutOrStdout())
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// pack 读取 in，生成图集并写出 out。
// 某个类型失败时其余类型照常写出，最后返回汇总的错误。
func pack(in, out string, cfg *config.Config, log *zap.Logger, w io.Writer) error {
	opts, err := cfg.AtlasOptions()
	if err != nil {
		return err
	}
	opts.Codec = imagecodec.New()
	opts.Logger = log

	start := time.Now()
	doc, err := gltf.ReadFile(in)
	if err != nil {
		return err
	}
	report, err := atlas.Run(doc, opts)
	if err != nil {
		return err
	}
	outputResult(w, report)

	if err := gltf.WriteFile(doc, out); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	pagesDir := cfg.Output.PagesDir
	if cfg.Output.Manifest != "" {
		if pagesDir == "" {
			pagesDir = filepath.Dir(cfg.Output.Manifest)
		}
		data, err := atlas.NewManifest(report, VERSION, time.Now()).Marshal()
		if err != nil {
			return err
		}
		if err := writeFile(cfg.Output.Manifest, data); err != nil {
			return err
		}
		fmt.Fprintf(w, "- manifest: %s\n", cfg.Output.Manifest)
	}
	if pagesDir != "" {
		if err := writePages(pagesDir, report.Pages()); err != nil {
			return err
		}
	}
	log.Info("pack finished", zap.String("out", out), zap.Int("pages", len(report.Pages())), zap.Duration("elapsed", time.Since(start)))
	return report.Err()
}

// outputResult 输出打包结果
func outputResult(w io.Writer, report *atlas.Report) {
	for _, tr := range report.Types {
		if len(tr.Pages) == 0 && len(tr.Rejected) == 0 && tr.Err == nil {
			continue
		}
		fmt.Fprintf(w, "%s: %d sprites on %d pages, %d rejected", tr.Type, tr.Sprites, len(tr.Pages), len(tr.Rejected))
		if tr.Fallbacks > 0 {
			fmt.Fprintf(w, ", %d projective fallbacks", tr.Fallbacks)
		}
		if tr.Err != nil {
			fmt.Fprintf(w, ", failed: %v", tr.Err)
		}
		fmt.Fprintln(w)
		for _, p := range tr.Pages {
			fmt.Fprintf(w, "  %s %dx%d, utilization %.2f%%\n", p.Texture.URI, p.Width, p.Height, p.Used*100)
		}
		for _, r := range tr.Rejected {
			fmt.Fprintf(w, "  skipped %s: %s\n", r.Texture.Name, r.Reason)
		}
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// writePages 把页面图像写入 dir，文件名与清单中的 atlasName 一致。
func writePages(dir string, pages []*atlas.Page) error {
	for _, p := range pages {
		if err := writeFile(filepath.Join(dir, filepath.FromSlash(p.Texture.URI)), p.Data); err != nil {
			return fmt.Errorf("write page %s: %w", p.Texture.URI, err)
		}
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
