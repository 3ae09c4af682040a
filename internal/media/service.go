package media

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/soradyne/clipstream/internal/apperror"
)

// Upload is an in-memory uploaded file as read from a multipart part.
type Upload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Bytes        []byte
}

// AllowedMimeTypes defines which MIME types are accepted for upload.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// MimeToExtension maps MIME types to file extensions.
var MimeToExtension = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Service validates uploads and stores them, returning the public URL.
type Service interface {
	UploadImage(ctx context.Context, kind string, up Upload) (string, error)

	// DeleteImage removes a previously uploaded image by its public URL.
	DeleteImage(ctx context.Context, url string) error
}

// service implements Service on top of a Storage backend.
type service struct {
	storage Storage
	maxSize int64 // Maximum file size in bytes.
}

// NewService creates a media service with the given storage backend and
// size limit.
func NewService(storage Storage, maxSize int64) Service {
	return &service{
		storage: storage,
		maxSize: maxSize,
	}
}

// UploadImage validates and stores an image, returning its public URL.
// The kind ("avatars", "covers") becomes the top-level key prefix.
func (s *service) UploadImage(ctx context.Context, kind string, up Upload) (string, error) {
	// Validate MIME type.
	if !AllowedMimeTypes[up.MimeType] {
		return "", apperror.NewBadRequest("unsupported file type: " + up.MimeType)
	}

	// Validate file size.
	if up.Size > s.maxSize {
		return "", apperror.NewBadRequest(fmt.Sprintf("file too large; maximum size is %d MB", s.maxSize/(1024*1024)))
	}

	// Validate magic bytes match declared MIME type.
	if !validateMagicBytes(up.Bytes, up.MimeType) {
		return "", apperror.NewBadRequest("file content does not match declared type")
	}

	// Date-based key so bucket listings stay manageable and keys never collide.
	key := objectKey(kind, up.MimeType)

	obj, err := s.storage.Put(ctx, key, up.MimeType, up.Bytes)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("uploading image: %w", err))
	}
	if obj == nil || obj.URL == "" {
		return "", apperror.NewInternal(fmt.Errorf("upload yielded no usable URL for key %s", key))
	}

	slog.Info("image uploaded",
		slog.String("key", obj.Key),
		slog.String("mime_type", up.MimeType),
		slog.Int64("size", up.Size),
	)
	return obj.URL, nil
}

// DeleteImage removes a stored image by its public URL.
func (s *service) DeleteImage(ctx context.Context, url string) error {
	if err := s.storage.Delete(ctx, url); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting image: %w", err))
	}

	slog.Info("image deleted", slog.String("url", url))
	return nil
}

// objectKey builds a key like "avatars/2006/01/<uuid>.jpg".
func objectKey(kind, mimeType string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("%s/%s/%s%s", kind, now.Format("2006/01"), uuid.NewString(), MimeToExtension[mimeType])
}

// validateMagicBytes checks that the file content's magic bytes match the
// declared MIME type. Prevents uploading non-image files with a spoofed
// Content-Type header.
func validateMagicBytes(data []byte, declaredMIME string) bool {
	if len(data) < 4 {
		return false
	}
	switch declaredMIME {
	case "image/jpeg":
		return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
	case "image/png":
		return len(data) >= 8 &&
			data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 &&
			data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A
	case "image/gif":
		return len(data) >= 6 && string(data[:3]) == "GIF"
	case "image/webp":
		return len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP"
	default:
		return false
	}
}
