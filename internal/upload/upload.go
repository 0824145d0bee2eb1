// Package upload stores item images, on local disk or in S3.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // png decoder for image.Decode
	"io"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	MaxWidth    = 800          // Images wider than this are scaled down
	MaxBytes    = 10 << 20     // Upload size limit
	jpegQuality = 80           // Re-encode quality
	contentType = "image/jpeg" // Every stored image is re-encoded as JPEG
)

var ErrUnsupportedImage = errors.New("unsupported image, use png or jpeg")

// Store saves an encoded image under name and returns its public URL
type Store interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// ProcessImage decodes a png or jpeg, scales it to MaxWidth and re-encodes it as JPEG
func ProcessImage(r io.Reader) ([]byte, error) {
	img, format, err := image.Decode(io.LimitReader(r, MaxBytes))
	if err != nil {
		return nil, ErrUnsupportedImage
	}
	if format != "png" && format != "jpeg" {
		return nil, ErrUnsupportedImage
	}
	if img.Bounds().Dx() > MaxWidth {
		img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3) // 0 keeps the aspect ratio
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// NewName returns a fresh object name for a stored image
func NewName() string {
	return uuid.NewString() + ".jpg"
}

// SaveImage processes an uploaded form file and hands it to store
func SaveImage(ctx context.Context, store Store, fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxBytes {
		return "", fmt.Errorf("%w: larger than %d MB", ErrUnsupportedImage, MaxBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := ProcessImage(f)
	if err != nil {
		return "", err
	}
	return store.Save(ctx, NewName(), contentType, bytes.NewReader(data))
}
