package helper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MaxUploadSize caps evidence photos before decoding.
const MaxUploadSize = int64(5 * 1024 * 1024)

// BlobService is the upload facade the controllers use.
type BlobService interface {
	// UploadEvidence re-encodes the photo as WebP and returns its public URL
	// and object key.
	UploadEvidence(ctx context.Context, studentID uuid.UUID, day time.Time, fh *multipart.FileHeader) (publicURL, objectKey string, err error)
}

type OSSBlobService struct {
	svc  *OSSService
	opts WebPOptions
}

// NewOSSBlobServiceFromEnv builds the service from ALI_OSS_* and IMAGE_WEBP_*.
func NewOSSBlobServiceFromEnv(prefix string) (*OSSBlobService, error) {
	s, err := NewOSSServiceFromEnv(prefix)
	if err != nil {
		return nil, err
	}
	return &OSSBlobService{svc: s, opts: DefaultWebPOptions()}, nil
}

func (b *OSSBlobService) UploadEvidence(ctx context.Context, studentID uuid.UUID, day time.Time, fh *multipart.FileHeader) (string, string, error) {
	data, err := ReadImage(fh)
	if err != nil {
		return "", "", err
	}
	out, err := ConvertToWebP(data, fh.Filename, b.opts)
	if err != nil {
		if errors.Is(err, ErrUnsupportedImage) {
			return "", "", fiber.NewError(fiber.StatusUnsupportedMediaType, "unsupported image format (use jpg, png or webp)")
		}
		return "", "", err
	}

	key := EvidenceKey(b.svc.Prefix, studentID, day)
	if err := b.svc.PutWebP(ctx, key, out); err != nil {
		return "", "", fmt.Errorf("put %s: %w", key, err)
	}
	return b.svc.PublicURL(key), key, nil
}

// EvidenceKey lays objects out as <prefix>/evidence/<day>/<student>_<hhmmss>_<rand>.webp.
func EvidenceKey(prefix string, studentID uuid.UUID, day time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.webp", studentID, time.Now().UTC().Format("150405"), randHex(3))
	return JoinKey(prefix, "evidence", day.Format("2006-01-02"), name)
}

// ReadImage reads a multipart file, enforcing MaxUploadSize.
func ReadImage(fh *multipart.FileHeader) ([]byte, error) {
	if fh == nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	if fh.Size > MaxUploadSize {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("file too large (max %d bytes)", MaxUploadSize))
	}
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer src.Close()
	return io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
}

// IsMultipart reports whether the request is multipart/form-data.
func IsMultipart(c *fiber.Ctx) bool {
	ct := strings.ToLower(strings.TrimSpace(c.Get(fiber.HeaderContentType)))
	return strings.HasPrefix(ct, "multipart/form-data")
}

var defaultImageFields = []string{"photo", "image", "file", "evidence"}

// GetImageFile returns the first file found under fieldNames, or (nil, nil).
func GetImageFile(c *fiber.Ctx, fieldNames ...string) (*multipart.FileHeader, error) {
	if !IsMultipart(c) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "use multipart/form-data")
	}
	names := fieldNames
	if len(names) == 0 {
		names = defaultImageFields
	}
	for _, fn := range names {
		if fh, err := c.FormFile(fn); err == nil && fh != nil {
			return fh, nil
		}
	}
	return nil, nil
}

// --------------------------------------------------
// Mock for unit tests
// --------------------------------------------------

type MockBlobService struct {
	UploadEvidenceFn func(ctx context.Context, studentID uuid.UUID, day time.Time, fh *multipart.FileHeader) (string, string, error)
}

func (m *MockBlobService) UploadEvidence(ctx context.Context, studentID uuid.UUID, day time.Time, fh *multipart.FileHeader) (string, string, error) {
	if m.UploadEvidenceFn == nil {
		return "", "", errors.New("not implemented")
	}
	return m.UploadEvidenceFn(ctx, studentID, day, fh)
}
