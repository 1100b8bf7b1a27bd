package atlas

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
)

// Region is a pixel rectangle on a page.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Extent is a pixel size.
type Extent struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Sprite describes where one source texture was drawn.
type Sprite struct {
	Filename string `json:"filename"`
	Region   Region `json:"region"`
	// SourceSize is the size of the drawn image before rotation.
	SourceSize Extent `json:"sourceSize"`
	// OriginalSize is set when the source was downscaled to fit.
	OriginalSize *Extent `json:"originalSize,omitempty"`
	Rotated      bool    `json:"rotated"`
}

// ManifestAtlas describes one page.
type ManifestAtlas struct {
	AtlasName  string            `json:"atlasName"`
	Type       string            `json:"type"`
	SpriteList map[string]Sprite `json:"spriteList"`
	TotalSize  Extent            `json:"totalSize"`
}

// SpriteNames returns the sprite keys in natural order.
func (a *ManifestAtlas) SpriteNames() []string {
	names := make([]string, 0, len(a.SpriteList))
	for name := range a.SpriteList {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}

// ManifestMeta identifies the tool run that produced a manifest.
type ManifestMeta struct {
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Manifest lists every page of a Run and the sprite regions on it.
type Manifest struct {
	Meta    ManifestMeta    `json:"meta"`
	Atlases []ManifestAtlas `json:"atlases"`
}

// spriteName derives a file name for a sprite from its texture. Directory parts
// of the label are dropped.
func spriteName(c *Candidate) string {
	name := path.Base(strings.ReplaceAll(textureLabel(c.Texture), "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		name = "sprite"
	}
	if path.Ext(name) == "" {
		if ext, ok := formatExt[c.MimeType]; ok {
			name += ext
		}
	}
	return name
}

// NewManifest describes the pages of report.
func NewManifest(report *Report, version string, now time.Time) *Manifest {
	m := &Manifest{Meta: ManifestMeta{Version: version, Timestamp: now.Format("2006-01-02 15:04:05")}}
	for _, page := range report.Pages() {
		a := ManifestAtlas{
			AtlasName:  PageName(page.Type, page.Index) + formatExt[page.MimeType],
			Type:       page.Type.String(),
			SpriteList: make(map[string]Sprite, len(page.Items)),
			TotalSize:  Extent{W: page.Width, H: page.Height},
		}
		if page.Texture != nil && page.Texture.URI != "" {
			a.AtlasName = page.Texture.URI
		}
		for _, it := range page.Items {
			w, h := it.Candidate.Size()
			sprite := Sprite{
				Region:     Region{X: it.Placement.X, Y: it.Placement.Y, W: it.Placement.Width, H: it.Placement.Height},
				SourceSize: Extent{W: w, H: h},
				Rotated:    it.Placement.Rotated,
			}
			if w != it.Candidate.Width || h != it.Candidate.Height {
				sprite.OriginalSize = &Extent{W: it.Candidate.Width, H: it.Candidate.Height}
			}
			key := spriteName(it.Candidate)
			for n := 1; ; n++ {
				if _, dup := a.SpriteList[key]; !dup {
					break
				}
				ext := path.Ext(spriteName(it.Candidate))
				key = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(spriteName(it.Candidate), ext), n, ext)
			}
			sprite.Filename = key
			a.SpriteList[key] = sprite
		}
		m.Atlases = append(m.Atlases, a)
	}
	return m
}

// Marshal encodes the manifest as indented JSON.
func (m *Manifest) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// ParseManifest decodes a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
