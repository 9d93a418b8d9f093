package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rongwang/buildtrue-server/internal/models"
)

// DiskStore writes media under a local directory that the HTTP server
// exposes at /uploads
type DiskStore struct {
	root     string
	baseURL  string
	maxBytes int64
}

// NewDiskStore creates a DiskStore rooted at dir. baseURL is the public
// origin prepended to "/uploads/..." links and may be empty.
func NewDiskStore(dir, baseURL string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{
		root:     dir,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// Root returns the directory served as /uploads
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) Save(ctx context.Context, folder string, upload Upload) (*Object, error) {
	if err := validate(upload, s.maxBytes); err != nil {
		return nil, fmt.Errorf("%s: %w", upload.Filename, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	src, err := upload.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	name := uuid.New().String() + upload.extension()
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	// Size on the header can lie, so the copy is bounded too
	var reader io.Reader = src
	if s.maxBytes > 0 {
		reader = io.LimitReader(src, s.maxBytes+1)
	}
	written, err := io.Copy(dst, reader)
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		dst.Close()
		os.Remove(filepath.Join(dir, name))
		return nil, fmt.Errorf("%s: %w", upload.Filename, ErrTooLarge)
	}

	return &Object{
		URL:  fmt.Sprintf("%s/uploads/%s/%s", s.baseURL, folder, name),
		Kind: upload.Kind(),
	}, nil
}

func (s *DiskStore) Delete(_ context.Context, url string, _ models.MediaType) error {
	folder, name := objectKey(url)
	if folder == "" || name == "" || name == "." || name == "/" {
		return fmt.Errorf("cannot derive object key from %q", url)
	}

	err := os.Remove(filepath.Join(s.root, filepath.Base(folder), filepath.Base(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

var _ MediaStore = (*DiskStore)(nil)
