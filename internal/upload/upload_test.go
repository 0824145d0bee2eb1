package upload

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessImageResizesWide(t *testing.T) {
	out, err := ProcessImage(bytes.NewReader(pngBytes(t, 1600, 400)))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, MaxWidth, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestProcessImageKeepsSmall(t *testing.T) {
	out, err := ProcessImage(bytes.NewReader(pngBytes(t, 300, 100)))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
}

func TestProcessImageRejectsGarbage(t *testing.T) {
	_, err := ProcessImage(strings.NewReader("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestLocalStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStore(dir, "https://api.themiracle.love/")
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "a.jpg", "image/jpeg", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.themiracle.love/uploads/a.jpg", url)

	b, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))

	_, err = s.Save(context.Background(), "../escape.jpg", "image/jpeg", strings.NewReader("x"))
	assert.Error(t, err)
}

type memStore struct {
	name string
	data []byte
}

func (m *memStore) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	m.name = name
	m.data, _ = io.ReadAll(r)
	return "mem://" + name, nil
}

func TestSaveImageFromMultipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "candle.png")
	require.NoError(t, err)
	_, err = fw.Write(pngBytes(t, 50, 50))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(MaxBytes))
	fh := req.MultipartForm.File["image"][0]

	store := &memStore{}
	url, err := SaveImage(context.Background(), store, fh)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(store.name, ".jpg"))
	assert.Equal(t, "mem://"+store.name, url)
	assert.NotEmpty(t, store.data)
}
