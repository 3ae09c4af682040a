package media

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/soradyne/clipstream/internal/apperror"
)

// --- Fake Storage ---

// fakeStorage implements Storage in memory.
type fakeStorage struct {
	putFn    func(ctx context.Context, key, contentType string, data []byte) (*Object, error)
	deleteFn func(ctx context.Context, url string) error
	lastKey  string
	deleted  []string
}

func (f *fakeStorage) Put(ctx context.Context, key, contentType string, data []byte) (*Object, error) {
	f.lastKey = key
	if f.putFn != nil {
		return f.putFn(ctx, key, contentType, data)
	}
	return &Object{Key: key, URL: "https://cdn.example.com/" + key}, nil
}

func (f *fakeStorage) Delete(ctx context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	if f.deleteFn != nil {
		return f.deleteFn(ctx, url)
	}
	return nil
}

// --- Test Helpers ---

func pngUpload() Upload {
	data := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}
	return Upload{
		OriginalName: "photo.png",
		MimeType:     "image/png",
		Size:         int64(len(data)),
		Bytes:        data,
	}
}

func assertBadRequest(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d (message: %s)", appErr.Code, appErr.Message)
	}
}

// --- Tests ---

func TestUploadImage_Success(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewService(storage, 10*1024*1024)

	url, err := svc.UploadImage(context.Background(), "avatars", pngUpload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url == "" {
		t.Fatal("expected a public URL")
	}
	if !strings.HasPrefix(storage.lastKey, "avatars/") {
		t.Errorf("expected key under avatars/, got %s", storage.lastKey)
	}
	if !strings.HasSuffix(storage.lastKey, ".png") {
		t.Errorf("expected .png extension, got %s", storage.lastKey)
	}
}

func TestUploadImage_UnsupportedMimeType(t *testing.T) {
	svc := NewService(&fakeStorage{}, 10*1024*1024)

	up := pngUpload()
	up.MimeType = "application/pdf"

	_, err := svc.UploadImage(context.Background(), "avatars", up)
	assertBadRequest(t, err)
}

func TestUploadImage_TooLarge(t *testing.T) {
	svc := NewService(&fakeStorage{}, 4)

	_, err := svc.UploadImage(context.Background(), "avatars", pngUpload())
	assertBadRequest(t, err)
}

func TestUploadImage_SpoofedContentType(t *testing.T) {
	svc := NewService(&fakeStorage{}, 10*1024*1024)

	// Declared PNG, but the bytes are not a PNG.
	up := Upload{
		OriginalName: "evil.png",
		MimeType:     "image/png",
		Size:         9,
		Bytes:        []byte("<script>!"),
	}

	_, err := svc.UploadImage(context.Background(), "avatars", up)
	assertBadRequest(t, err)
}

func TestUploadImage_StorageFailure(t *testing.T) {
	storage := &fakeStorage{
		putFn: func(ctx context.Context, key, contentType string, data []byte) (*Object, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewService(storage, 10*1024*1024)

	_, err := svc.UploadImage(context.Background(), "avatars", pngUpload())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", err)
	}
}

func TestDeleteImage_Success(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewService(storage, 10*1024*1024)

	if err := svc.DeleteImage(context.Background(), "https://cdn.example.com/avatars/x.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(storage.deleted) != 1 || storage.deleted[0] != "https://cdn.example.com/avatars/x.png" {
		t.Errorf("unexpected deletions: %v", storage.deleted)
	}
}

func TestDeleteImage_StorageFailure(t *testing.T) {
	storage := &fakeStorage{
		deleteFn: func(ctx context.Context, url string) error {
			return errors.New("access denied")
		},
	}
	svc := NewService(storage, 10*1024*1024)

	err := svc.DeleteImage(context.Background(), "https://cdn.example.com/avatars/x.png")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", err)
	}
}

func TestValidateMagicBytes(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		mime string
		want bool
	}{
		{"valid jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg", true},
		{"valid png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png", true},
		{"valid gif", []byte("GIF89a"), "image/gif", true},
		{"valid webp", []byte("RIFF0000WEBP"), "image/webp", true},
		{"png declared as jpeg", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/jpeg", false},
		{"truncated", []byte{0xFF}, "image/jpeg", false},
		{"unknown mime", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/bmp", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := validateMagicBytes(tc.data, tc.mime); got != tc.want {
				t.Errorf("validateMagicBytes(%s) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}
