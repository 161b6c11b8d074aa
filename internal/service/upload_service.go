package service

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
	"github.com/Kiog-Aser/CourseThing/pkg/storage"
)

// UploadConfig controls poster image uploads.
type UploadConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	// PublicBaseURL prefixes stored filenames to build the served URL.
	PublicBaseURL string
}

// UploadResult describes a stored poster image.
type UploadResult struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type"`
}

// UploadService stores course and chapter poster images on local disk. The
// content type is sniffed from the bytes, not trusted from the request.
type UploadService struct {
	storage *storage.LocalStorage
	logger  *zap.Logger
	config  UploadConfig
}

// NewUploadService creates a new upload service.
func NewUploadService(store *storage.LocalStorage, logger *zap.Logger, config UploadConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxFileSizeBytes <= 0 {
		config.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	return &UploadService{storage: store, logger: logger, config: config}
}

// SavePoster validates and stores an uploaded poster image, returning the
// public URL to reference from course or chapter records.
func (s *UploadService) SavePoster(header *multipart.FileHeader) (*UploadResult, error) {
	if header.Size > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.config.MaxFileSizeBytes))
	}

	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload")
	}
	defer file.Close()

	// Sniff at most 512 bytes; DetectContentType never needs more.
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	mimeType := http.DetectContentType(head[:n])
	if !s.mimeAllowed(mimeType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported image type %s", mimeType))
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rewind upload")
	}

	filename := uuid.NewString() + extensionFor(mimeType, header.Filename)
	if _, err := s.storage.SaveStream(filename, file); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}

	return &UploadResult{
		Filename: filename,
		URL:      strings.TrimRight(s.config.PublicBaseURL, "/") + "/uploads/" + filename,
		Size:     header.Size,
		MIMEType: mimeType,
	}, nil
}

func (s *UploadService) mimeAllowed(mimeType string) bool {
	for _, allowed := range s.config.AllowedMIMEs {
		if strings.EqualFold(allowed, mimeType) {
			return true
		}
	}
	return false
}

// extensionFor maps sniffed MIME types to a file extension, falling back to
// the original filename's extension.
func extensionFor(mimeType, originalName string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	if ext := path.Ext(originalName); ext != "" {
		return strings.ToLower(ext)
	}
	return ""
}
