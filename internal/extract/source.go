// Package extract runs face detection across a photo library and stores the
// resulting faces.
package extract

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Image is one library entry to run detection on. ID is the slash-separated
// path relative to the library root. Path points at a readable rendition,
// which for HEIC and RAW originals is a pre-rendered JPEG proxy. An empty
// Path means no readable rendition exists.
type Image struct {
	ID   string
	Path string
}

// Source enumerates the images of a library.
type Source interface {
	List(ctx context.Context) ([]Image, error)
}

var directExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

var heicExts = map[string]bool{
	".heic": true, ".heif": true,
}

var rawExts = map[string]bool{
	".cr2": true, ".cr3": true, ".nef": true, ".arw": true, ".dng": true,
	".orf": true, ".raf": true, ".rw2": true,
}

// DirSource walks a library directory. HEIC and RAW files resolve to JPEG
// proxies looked up by file stem under the proxy directories.
type DirSource struct {
	Root         string
	HEICProxyDir string
	RawProxyDir  string
}

// List returns all images under the root in lexical walk order.
func (s *DirSource) List(ctx context.Context) ([]Image, error) {
	var images []Image

	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.Root {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		id := filepath.ToSlash(rel)
		ext := strings.ToLower(filepath.Ext(path))

		switch {
		case directExts[ext]:
			images = append(images, Image{ID: id, Path: path})
		case heicExts[ext]:
			images = append(images, Image{ID: id, Path: s.resolveProxy(s.HEICProxyDir, rel)})
		case rawExts[ext]:
			images = append(images, Image{ID: id, Path: s.resolveProxy(s.RawProxyDir, rel)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking library root %s: %w", s.Root, err)
	}
	return images, nil
}

// resolveProxy finds the JPEG proxy for an original, first mirroring the
// library layout, then falling back to a flat directory keyed by stem.
func (s *DirSource) resolveProxy(proxyDir, rel string) string {
	if proxyDir == "" {
		return ""
	}

	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	candidates := []string{
		filepath.Join(proxyDir, stem+".jpg"),
		filepath.Join(proxyDir, stem+".webp"),
		filepath.Join(proxyDir, filepath.Base(stem)+".jpg"),
		filepath.Join(proxyDir, filepath.Base(stem)+".webp"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}
