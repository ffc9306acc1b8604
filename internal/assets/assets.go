// Package assets stores generated slide images on disk. Slides carry
// blob references (paths relative to the data directory), never raw
// image bytes, so the SQLite store stays small.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir manages image files under a single data directory.
type Dir struct {
	root string
}

// DefaultRoot returns the default asset directory.
func DefaultRoot() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "banana-slides", "assets")
}

// NewDir creates an asset directory rooted at the given path,
// creating it if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create asset directory: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the asset directory root.
func (d *Dir) Root() string {
	return d.root
}

// SaveSlideImage writes a generated slide image and returns its blob
// reference (a path relative to the asset root).
func (d *Dir) SaveSlideImage(projectID string, slideIndex int, data []byte, mimeType string) (string, error) {
	rel := filepath.Join(projectID, fmt.Sprintf("slide-%03d%s", slideIndex, extForMIME(mimeType)))
	abs := filepath.Join(d.root, rel)

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fmt.Errorf("create project directory: %w", err)
	}
	if err := os.WriteFile(abs, data, 0644); err != nil {
		return "", fmt.Errorf("write slide image: %w", err)
	}
	return rel, nil
}

// SaveTemplateImage copies a user-provided template image into the
// project's asset directory and returns its blob reference.
func (d *Dir) SaveTemplateImage(projectID, srcPath string) (string, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("read template image: %w", err)
	}

	rel := filepath.Join(projectID, "template"+strings.ToLower(filepath.Ext(srcPath)))
	abs := filepath.Join(d.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fmt.Errorf("create project directory: %w", err)
	}
	if err := os.WriteFile(abs, data, 0644); err != nil {
		return "", fmt.Errorf("write template image: %w", err)
	}
	return rel, nil
}

// Read returns the bytes for a blob reference.
func (d *Dir) Read(ref string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.root, ref))
}

// Abs returns the absolute path for a blob reference.
func (d *Dir) Abs(ref string) string {
	return filepath.Join(d.root, ref)
}

func extForMIME(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
