package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// MaxSize is the largest image accepted, in bytes.
const MaxSize = 5 * 1024 * 1024

var (
	ErrDisabled        = errors.New("image uploads are disabled")
	ErrTooLarge        = fmt.Errorf("image is larger than %s", humanize.IBytes(MaxSize))
	ErrUnsupportedKind = errors.New("unsupported image type")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Validate checks an image is of a supported type and not too large.
func Validate(contentType string, size int64) error {
	if _, ok := extensions[strings.ToLower(contentType)]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, contentType)
	}
	if size > MaxSize {
		return fmt.Errorf("%w (got %s)", ErrTooLarge, humanize.IBytes(uint64(size)))
	}
	return nil
}

// Sniff tells the content type of an image from its first bytes, whatever the client claims,
// and rewinds r.
func Sniff(r io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

// ObjectKey returns where the image of an option is stored. Each upload gets its own key so
// cached copies of a replaced image are never served.
func ObjectKey(pollID string, optionID string, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
	default:
		ext = ""
	}
	return path.Join("poll-options", pollID, optionID+"-"+uuid.NewString()+ext)
}

// An Uploader stores images and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, contentType string, body io.Reader) (string, error)
}

// Disabled refuses every upload.
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, key string, contentType string, body io.Reader) (string, error) {
	return "", ErrDisabled
}

// Memory keeps images in memory, for development and tests.
type Memory struct {
	BaseURL string

	mtx     sync.Mutex
	objects map[string][]byte
}

func NewMemory(baseURL string) *Memory {
	return &Memory{BaseURL: strings.TrimRight(baseURL, "/"), objects: map[string][]byte{}}
}

func (m *Memory) Upload(ctx context.Context, key string, contentType string, body io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(body, MaxSize+1))
	if err != nil {
		return "", err
	}
	if len(b) > MaxSize {
		return "", ErrTooLarge
	}

	m.mtx.Lock()
	m.objects[key] = b
	m.mtx.Unlock()

	return m.BaseURL + "/" + key, nil
}

// Object returns the content stored under key.
func (m *Memory) Object(key string) ([]byte, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	b, ok := m.objects[key]
	return b, ok
}
