package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"sync"

	"gfx.cafe/util/go/bufpool"
	"github.com/HugoSmits86/nativewebp"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultQuality is used when a payload does not set one.
const DefaultQuality = 80

// DefaultMaxPixels bounds the canvas an input may declare.
const DefaultMaxPixels = 64 << 20

type encoder func(w io.Writer, img image.Image, quality int) error

// Codec decodes any registered image format and encodes to OutputFormats.
// Its encoder table is built on first use.
type Codec struct {
	// MaxPixels rejects inputs whose width*height is larger, before any pixel
	// data is allocated.
	MaxPixels int

	logger *zap.Logger

	encoders map[Format]encoder
	load     sync.Once
}

func NewCodec(logger *zap.Logger) *Codec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Codec{
		MaxPixels: DefaultMaxPixels,
		logger:    logger,
	}
}

func (T *Codec) Load() {
	T.load.Do(func() {
		T.encoders = map[Format]encoder{
			FormatJPEG: func(w io.Writer, img image.Image, quality int) error {
				return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
			},
			FormatPNG: func(w io.Writer, img image.Image, quality int) error {
				enc := png.Encoder{CompressionLevel: pngCompression(quality)}
				return enc.Encode(w, img)
			},
			FormatGIF: func(w io.Writer, img image.Image, _ int) error {
				return gif.Encode(w, img, &gif.Options{NumColors: 256})
			},
			FormatBMP: func(w io.Writer, img image.Image, _ int) error {
				return bmp.Encode(w, img)
			},
			FormatTIFF: func(w io.Writer, img image.Image, _ int) error {
				return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
			},
			// lossless, quality does not apply
			FormatWebP: func(w io.Writer, img image.Image, _ int) error {
				return nativewebp.Encode(w, img, nil)
			},
		}
		T.logger.Debug("codec loaded", zap.Int("encoders", len(T.encoders)))
	})
}

// pngCompression maps the tens digit of quality to a zlib level, the way
// image tools interpret a PNG quality setting.
func pngCompression(quality int) png.CompressionLevel {
	switch level := quality / 10; {
	case quality <= 0:
		return png.DefaultCompression
	case level == 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level >= 7:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

func clampQuality(quality int) int {
	switch {
	case quality <= 0:
		return DefaultQuality
	case quality > 100:
		return 100
	default:
		return quality
	}
}

// Decode returns the image in data and the format it was stored in.
func (T *Codec) Decode(data []byte) (image.Image, Format, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyInput
	}
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if T.MaxPixels > 0 && config.Height > 0 && config.Width > T.MaxPixels/config.Height {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, config.Width, config.Height)
	}

	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	return img, formatFromDecodeName(name), nil
}

func (T *Codec) Encode(img image.Image, format Format, quality int) ([]byte, error) {
	T.Load()

	enc, ok := T.encoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOutput, format)
	}

	bounds := img.Bounds()
	buf := bufpool.Get(bounds.Dx() * bounds.Dy())
	buf.Reset()
	defer bufpool.Put(buf)

	if err := enc(buf, img, clampQuality(quality)); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// Convert decodes data and re-encodes it as format.
func (T *Codec) Convert(data []byte, format Format, quality int) ([]byte, error) {
	if !format.Output() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOutput, format)
	}

	img, from, err := T.Decode(data)
	if err != nil {
		return nil, err
	}

	out, err := T.Encode(img, format, quality)
	if err != nil {
		return nil, err
	}

	T.logger.Debug(
		"converted image",
		zap.Stringer("from", from),
		zap.Stringer("to", format),
		zap.Int("in", len(data)),
		zap.Int("out", len(out)),
	)
	return out, nil
}
