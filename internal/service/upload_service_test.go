package service

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
	"github.com/Kiog-Aser/CourseThing/pkg/storage"
)

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)

func posterHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("poster", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/uploads", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	_, header, err := req.FormFile("poster")
	require.NoError(t, err)
	return header
}

func newUploadFixture(t *testing.T, config UploadConfig) (*UploadService, *storage.LocalStorage) {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	if len(config.AllowedMIMEs) == 0 {
		config.AllowedMIMEs = []string{"image/png", "image/jpeg"}
	}
	if config.PublicBaseURL == "" {
		config.PublicBaseURL = "http://localhost:8080"
	}
	return NewUploadService(store, nil, config), store
}

func TestSavePosterStoresSniffedImage(t *testing.T) {
	svc, store := newUploadFixture(t, UploadConfig{})

	result, err := svc.SavePoster(posterHeader(t, "cover.png", pngBytes))

	require.NoError(t, err)
	assert.Equal(t, "image/png", result.MIMEType)
	assert.Equal(t, int64(len(pngBytes)), result.Size)
	assert.True(t, strings.HasSuffix(result.Filename, ".png"))
	assert.Equal(t, "http://localhost:8080/uploads/"+result.Filename, result.URL)

	_, err = os.Stat(store.Path(result.Filename))
	assert.NoError(t, err)
}

func TestSavePosterIgnoresSpoofedFilename(t *testing.T) {
	svc, _ := newUploadFixture(t, UploadConfig{})

	// Extension comes from the sniffed bytes, not the client filename.
	result, err := svc.SavePoster(posterHeader(t, "cover.exe", pngBytes))

	require.NoError(t, err)
	assert.Equal(t, "image/png", result.MIMEType)
	assert.True(t, strings.HasSuffix(result.Filename, ".png"))
}

func TestSavePosterRejectsDisallowedType(t *testing.T) {
	svc, _ := newUploadFixture(t, UploadConfig{})

	_, err := svc.SavePoster(posterHeader(t, "notes.txt", []byte("just some plain text")))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSavePosterRejectsOversizeFile(t *testing.T) {
	svc, _ := newUploadFixture(t, UploadConfig{MaxFileSizeBytes: 16})

	_, err := svc.SavePoster(posterHeader(t, "cover.png", pngBytes))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
