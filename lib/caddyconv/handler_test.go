package caddyconv

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gfx.cafe/gfx/imgconv/lib/convert"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newHandler(t *testing.T, h *Handler) *Handler {
	t.Helper()

	require.NoError(t, h.setup(zaptest.NewLogger(t)))
	require.NoError(t, h.Validate())
	t.Cleanup(func() {
		_ = h.Cleanup()
	})
	return h
}

func statusOf(t *testing.T, err error) int {
	t.Helper()

	var herr caddyhttp.HandlerError
	require.True(t, errors.As(err, &herr), "expected a handler error, got %v", err)
	return herr.StatusCode
}

var nextHandler = caddyhttp.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(http.StatusTeapot)
	return nil
})

func TestHandler_RawBody(t *testing.T) {
	h := newHandler(t, &Handler{Workers: 1})

	r := httptest.NewRequest(http.MethodPost, "/convert?format=jpeg&quality=50", bytes.NewReader(pngBytes(t)))
	r.Header.Set("Content-Type", "image/png")
	w := httptest.NewRecorder()

	require.NoError(t, h.ServeHTTP(w, r, nextHandler))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "image.jpg")

	_, name, err := image.DecodeConfig(w.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", name)
}

func TestHandler_Multipart(t *testing.T) {
	h := newHandler(t, &Handler{Workers: 1, Format: "bmp"})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "cat.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	require.NoError(t, h.ServeHTTP(w, r, nextHandler))
	assert.Equal(t, "image/bmp", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cat.bmp")
}

func TestHandler_Errors(t *testing.T) {
	h := newHandler(t, &Handler{Workers: 1, MaxFileSize: 64})

	cases := []struct {
		name        string
		target      string
		contentType string
		body        []byte
		status      int
	}{
		{"unknown format", "/?format=svg", "image/png", []byte("x"), http.StatusBadRequest},
		{"heic output", "/?format=heic", "image/png", []byte("x"), http.StatusBadRequest},
		{"bad quality", "/?quality=0", "image/png", []byte("x"), http.StatusBadRequest},
		{"empty", "/", "image/png", nil, http.StatusBadRequest},
		{"too large", "/", "image/png", bytes.Repeat([]byte("x"), 65), http.StatusRequestEntityTooLarge},
		{"not an image type", "/", "text/plain", []byte("x"), http.StatusUnsupportedMediaType},
		{"undecodable", "/", "image/png", []byte("not a png"), http.StatusUnprocessableEntity},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, c.target, bytes.NewReader(c.body))
			r.Header.Set("Content-Type", c.contentType)

			err := h.ServeHTTP(httptest.NewRecorder(), r, nextHandler)
			assert.Equal(t, c.status, statusOf(t, err))
		})
	}
}

func TestHandler_PassThrough(t *testing.T) {
	h := newHandler(t, &Handler{Workers: 1})

	w := httptest.NewRecorder()
	require.NoError(t, h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil), nextHandler))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestHandler_Defaults(t *testing.T) {
	h := newHandler(t, &Handler{Workers: 2})
	assert.Equal(t, "caddy", h.Name)
	assert.Equal(t, convert.FormatPNG, h.format)
	assert.Equal(t, convert.DefaultQuality, h.Quality)
	assert.Equal(t, 2, h.pool.Size())

	bad := &Handler{Format: "heic"}
	assert.ErrorIs(t, bad.setup(zaptest.NewLogger(t)), convert.ErrUnsupportedOutput)
}

func TestUnmarshalCaddyfile(t *testing.T) {
	d := caddyfile.NewTestDispenser(`
	imgconv gif {
		workers 3
		quality 70
		job_timeout 15s
		max_file_size 1024
	}`)

	var h Handler
	require.NoError(t, h.UnmarshalCaddyfile(d))
	assert.Equal(t, "gif", h.Format)
	assert.Equal(t, 3, h.Workers)
	assert.Equal(t, 70, h.Quality)
	assert.Equal(t, caddy.Duration(15*time.Second), h.JobTimeout)
	assert.EqualValues(t, 1024, h.MaxFileSize)

	d = caddyfile.NewTestDispenser(`
	imgconv {
		colour blue
	}`)
	assert.Error(t, h.UnmarshalCaddyfile(d))
}
