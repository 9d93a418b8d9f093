package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/buildtrue-server/internal/storage"
)

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formFile returns the single file posted under field, or nil when the
// request carries none
func formFile(c *gin.Context, field string) (*storage.Upload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	upload := storage.FromFileHeader(fh)
	return &upload, nil
}

// formFiles returns every file posted under field
func formFiles(c *gin.Context, field string) ([]storage.Upload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	headers := form.File[field]
	uploads := make([]storage.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, storage.FromFileHeader(fh))
	}
	return uploads, nil
}
