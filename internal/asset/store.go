package asset

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/webp"

	"github.com/adgenesis/adgenesis/engine-go/internal/typeid"
)

var (
	ErrNotFound     = errors.New("asset not found")
	ErrInvalidImage = errors.New("invalid image")
)

// URLPrefix is the path assets are served under. A source ref is either a bare asset id
// or URLPrefix + id + ".png".
const URLPrefix = "/assets/"

// Asset describes a stored image.
type Asset struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	SourceRef   string  `json:"sourceRef"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspectRatio"`
	Type        string  `json:"type"`
	Name        string  `json:"name,omitempty"`
}

// Store keeps uploaded images on disk, normalized to PNG. Decoded images are cached
// for export.
type Store struct {
	dir string

	mu    sync.Mutex
	cache map[string]image.Image
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Store{dir: dir, cache: make(map[string]image.Image)}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save decodes a PNG, JPEG or WebP image from r and stores it as PNG.
func (s *Store) Save(r io.Reader, name string) (*Asset, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	id := typeid.NewAssetID()
	path := filepath.Join(s.dir, id+".png")
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create asset file: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return nil, fmt.Errorf("encode png: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close asset file: %w", err)
	}

	s.mu.Lock()
	s.cache[id] = img
	s.mu.Unlock()

	url := URLPrefix + id + ".png"
	return &Asset{
		ID:          id,
		URL:         url,
		SourceRef:   url,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		AspectRatio: float64(bounds.Dx()) / float64(bounds.Dy()),
		Type:        format,
		Name:        name,
	}, nil
}

// Image returns the decoded image for a source ref.
func (s *Store) Image(ref string) (image.Image, error) {
	id, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	img, ok := s.cache[id]
	s.mu.Unlock()
	if ok {
		return img, nil
	}

	f, err := os.Open(filepath.Join(s.dir, id+".png"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()

	img, _, err = image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	s.mu.Lock()
	s.cache[id] = img
	s.mu.Unlock()
	return img, nil
}

// Delete removes an asset file from disk.
func (s *Store) Delete(ref string) error {
	id, err := ParseRef(ref)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, id+".png")); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}

// ParseRef extracts the asset id from a source ref and validates it.
func ParseRef(ref string) (string, error) {
	id := strings.TrimSuffix(strings.TrimPrefix(ref, URLPrefix), ".png")
	if err := typeid.Validate(id, typeid.PrefixAsset); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return id, nil
}
