// Package storage persists award icons and library images on disk. All
// work here happens outside database transactions; callers sequence it so
// a failed write never leaves a row pointing at a missing file.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// bounding box for stored icons
const maxIconSize = 256

// IconStore writes icons into a single directory as <base>.png.
type IconStore struct {
	dir string
}

func NewIconStore(dir string) (*IconStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &IconStore{dir: dir}, nil
}

// Save decodes the payload, fits it into the icon bounding box and writes
// it as <base>.png, replacing any previous file of that name. The returned
// filename is what the caller stores in the database.
func (s *IconStore) Save(r io.Reader, base string) (string, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	img = imaging.Fit(img, maxIconSize, maxIconSize, imaging.Lanczos)

	filename := base + ".png"
	tmp := filepath.Join(s.dir, "."+uuid.NewString()+".png")
	if err := imaging.Save(img, tmp); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, filename)); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return filename, nil
}

// Delete removes a stored file. A missing file is not an error.
func (s *IconStore) Delete(filename string) {
	if filename == "" {
		return
	}
	_ = os.Remove(filepath.Join(s.dir, filename))
}

// RenameIfSlugChanged renames <oldSlug>.png to <newSlug>.png when the slug
// changed and the stored filename follows that convention. On any failure
// the old filename is returned so the caller keeps a working reference.
func (s *IconStore) RenameIfSlugChanged(oldFilename, oldSlug, newSlug string) string {
	if oldFilename == "" || oldSlug == newSlug {
		return oldFilename
	}
	if oldFilename != oldSlug+".png" {
		return oldFilename
	}

	newFilename := newSlug + ".png"
	oldPath := filepath.Join(s.dir, oldFilename)
	newPath := filepath.Join(s.dir, newFilename)
	if _, err := os.Stat(oldPath); err != nil {
		return oldFilename
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return oldFilename
	}
	return newFilename
}
