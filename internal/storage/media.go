package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"

	"github.com/rongwang/buildtrue-server/internal/models"
)

// Folders media objects are grouped under
const (
	FolderProjects = "projects"
	FolderProgress = "progress"
)

var (
	ErrTooLarge        = errors.New("file exceeds the maximum upload size")
	ErrUnsupportedType = errors.New("file type is not allowed")
)

// mediaExtensions identifies uploads whose client sent no useful content type
var mediaExtensions = map[string]models.MediaType{
	".jpg":  models.MediaImage,
	".jpeg": models.MediaImage,
	".png":  models.MediaImage,
	".gif":  models.MediaImage,
	".webp": models.MediaImage,
	".heic": models.MediaImage,
	".mp4":  models.MediaVideo,
	".mov":  models.MediaVideo,
	".webm": models.MediaVideo,
	".avi":  models.MediaVideo,
	".mkv":  models.MediaVideo,
}

// Upload is one incoming file, independent of how it reached the server
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FromFileHeader adapts a multipart file header into an Upload
func FromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Kind classifies the upload as video or image by its MIME type, or by its
// extension when the content type is generic
func (u Upload) Kind() models.MediaType {
	if genericContentType(u.ContentType) {
		if kind, ok := mediaExtensions[strings.ToLower(filepath.Ext(u.Filename))]; ok {
			return kind
		}
	}
	return KindOf(u.ContentType)
}

func genericContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return ct == "" || strings.HasPrefix(ct, "application/octet-stream")
}

// extension returns the file extension to store the upload under
func (u Upload) extension() string {
	if ext := strings.ToLower(filepath.Ext(u.Filename)); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(u.ContentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// KindOf returns MediaVideo for "video/*" content types and MediaImage otherwise
func KindOf(contentType string) models.MediaType {
	if strings.HasPrefix(strings.ToLower(contentType), "video/") {
		return models.MediaVideo
	}
	return models.MediaImage
}

// Object is a stored media file
type Object struct {
	URL  string
	Kind models.MediaType
}

// MediaStore persists uploaded media and removes it by public URL
type MediaStore interface {
	Save(ctx context.Context, folder string, upload Upload) (*Object, error)
	Delete(ctx context.Context, url string, kind models.MediaType) error
}

func validate(upload Upload, maxBytes int64) error {
	if maxBytes > 0 && upload.Size > maxBytes {
		return ErrTooLarge
	}
	ct := strings.ToLower(upload.ContentType)
	if strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") {
		return nil
	}
	if genericContentType(ct) {
		if _, ok := mediaExtensions[strings.ToLower(filepath.Ext(upload.Filename))]; ok {
			return nil
		}
	}
	return ErrUnsupportedType
}

// objectKey returns "<folder>/<name>" from the last two segments of a media URL
func objectKey(url string) (folder, name string) {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	name = path.Base(url)
	folder = path.Base(path.Dir(url))
	return folder, name
}
