// Package caddyconv serves image conversion as a caddy HTTP handler.
package caddyconv

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"go.uber.org/zap"

	"gfx.cafe/gfx/imgconv/lib/batch"
	"gfx.cafe/gfx/imgconv/lib/config"
	"gfx.cafe/gfx/imgconv/lib/convert"
	"gfx.cafe/gfx/imgconv/lib/taskpool"
)

func init() {
	caddy.RegisterModule((*Handler)(nil))
}

const ModuleID = "http.handlers.imgconv"

// Handler converts the image in a POST body, or in the multipart field
// "file", to the format named by the "format" parameter. Other methods fall
// through to the next handler.
type Handler struct {
	Name        string         `json:"name,omitempty"`
	Workers     int            `json:"workers,omitempty"`
	Format      string         `json:"format,omitempty"`
	Quality     int            `json:"quality,omitempty"`
	JobTimeout  caddy.Duration `json:"job_timeout,omitempty"`
	MaxFileSize int64          `json:"max_file_size,omitempty"`

	format convert.Format
	pool   *convert.Pool
	logger *zap.Logger
}

func (T *Handler) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: ModuleID,
		New: func() caddy.Module {
			return new(Handler)
		},
	}
}

func (T *Handler) Provision(ctx caddy.Context) error {
	return T.setup(ctx.Logger(T))
}

func (T *Handler) setup(logger *zap.Logger) error {
	T.logger = logger

	if T.Name == "" {
		T.Name = "caddy"
	}
	if T.Format == "" {
		T.Format = string(convert.FormatPNG)
	}
	if T.Quality == 0 {
		T.Quality = convert.DefaultQuality
	}
	if T.MaxFileSize == 0 {
		T.MaxFileSize = config.DefaultMaxFileSize
	}

	var err error
	T.format, err = parseOutput(T.Format)
	if err != nil {
		return err
	}

	T.pool = convert.NewPool(taskpool.Config{
		Name:       T.Name,
		Size:       T.Workers,
		JobTimeout: time.Duration(T.JobTimeout),
		Logger:     T.logger,
	})
	return nil
}

func (T *Handler) Validate() error {
	if T.Quality < 0 || T.Quality > 100 {
		return fmt.Errorf("%w: %d", config.ErrInvalidQuality, T.Quality)
	}
	if T.MaxFileSize < 0 {
		return config.ErrInvalidLimits
	}
	return nil
}

func (T *Handler) Cleanup() error {
	if T.pool != nil {
		T.pool.Close()
	}
	return nil
}

func (T *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request, next caddyhttp.Handler) error {
	if r.Method != http.MethodPost {
		return next.ServeHTTP(w, r)
	}

	file, err := T.readFile(w, r)
	if err != nil {
		return err
	}

	format := T.format
	if name := r.FormValue("format"); name != "" {
		if format, err = parseOutput(name); err != nil {
			return caddyhttp.Error(http.StatusBadRequest, err)
		}
	}

	quality := T.Quality
	if value := r.FormValue("quality"); value != "" {
		if quality, err = strconv.Atoi(value); err != nil || quality < 1 || quality > 100 {
			return caddyhttp.Error(http.StatusBadRequest, fmt.Errorf("%w: %q", config.ErrInvalidQuality, value))
		}
	}

	_, rejected := batch.Validate([]batch.File{file}, batch.Limits{
		MaxFiles:    1,
		MaxFileSize: T.MaxFileSize,
	})
	if len(rejected) > 0 {
		status := http.StatusBadRequest
		switch {
		case errors.Is(rejected[0], batch.ErrFileTooLarge):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(rejected[0], batch.ErrUnsupportedType):
			status = http.StatusUnsupportedMediaType
		}
		return caddyhttp.Error(status, rejected[0])
	}

	result, err := T.pool.Run(r.Context(), convert.Payload{
		Data:    file.Data,
		Format:  format,
		Quality: quality,
	}, nil)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, convert.ErrConversion):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, taskpool.ErrJobTimeout):
			status = http.StatusGatewayTimeout
		case errors.Is(err, taskpool.ErrPoolClosed):
			status = http.StatusServiceUnavailable
		}
		T.logger.Debug(
			"conversion failed",
			zap.String("file", file.Name),
			zap.Stringer("format", format),
			zap.Error(err),
		)
		return caddyhttp.Error(status, err)
	}

	w.Header().Set("Content-Type", result.MIME())
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": result.Format.Rename(file.Name),
	}))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(result.Data)
	return err
}

func (T *Handler) readFile(w http.ResponseWriter, r *http.Request) (batch.File, error) {
	// leave room for multipart framing
	r.Body = http.MaxBytesReader(w, r.Body, T.MaxFileSize+1<<20)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return batch.File{}, readError(err)
		}
		return batch.File{
			Name: "image",
			MIME: mediaType,
			Data: data,
		}, nil
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		return batch.File{}, readError(err)
	}
	defer func() {
		_ = part.Close()
	}()

	data, err := io.ReadAll(part)
	if err != nil {
		return batch.File{}, readError(err)
	}
	return batch.File{
		Name: header.Filename,
		MIME: header.Header.Get("Content-Type"),
		Data: data,
	}, nil
}

func readError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return caddyhttp.Error(http.StatusRequestEntityTooLarge, err)
	}
	return caddyhttp.Error(http.StatusBadRequest, err)
}

func parseOutput(name string) (convert.Format, error) {
	format, err := convert.ParseFormat(strings.TrimSpace(name))
	if err != nil {
		return "", err
	}
	if !format.Output() {
		return "", fmt.Errorf("%w: %s", convert.ErrUnsupportedOutput, format)
	}
	return format, nil
}

var _ caddy.Module = (*Handler)(nil)
var _ caddy.Provisioner = (*Handler)(nil)
var _ caddy.Validator = (*Handler)(nil)
var _ caddy.CleanerUpper = (*Handler)(nil)
var _ caddyhttp.MiddlewareHandler = (*Handler)(nil)
