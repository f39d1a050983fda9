package convert

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(t testing.TB) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 32), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCodec_ConvertEveryOutput(t *testing.T) {
	codec := NewCodec(nil)
	in := testImage(t)

	for _, format := range OutputFormats {
		t.Run(string(format), func(t *testing.T) {
			out, err := codec.Convert(in, format, 90)
			require.NoError(t, err)

			config, name, err := image.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, format, formatFromDecodeName(name))
			assert.Equal(t, 16, config.Width)
			assert.Equal(t, 8, config.Height)
		})
	}
}

func TestCodec_Decode(t *testing.T) {
	codec := NewCodec(nil)

	img, format, err := codec.Decode(testImage(t))
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format)
	assert.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())

	_, _, err = codec.Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, _, err = codec.Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, image.ErrFormat)
}

func TestCodec_UnsupportedOutput(t *testing.T) {
	codec := NewCodec(nil)

	_, err := codec.Convert(testImage(t), FormatHEIC, 0)
	assert.ErrorIs(t, err, ErrUnsupportedOutput)
}

func TestCodec_JPEGQuality(t *testing.T) {
	codec := NewCodec(nil)
	in := testImage(t)

	low, err := codec.Convert(in, FormatJPEG, 5)
	require.NoError(t, err)
	high, err := codec.Convert(in, FormatJPEG, 100)
	require.NoError(t, err)
	assert.Less(t, len(low), len(high))
}

func TestCodec_WebPOutput(t *testing.T) {
	codec := NewCodec(nil)

	out, err := codec.Convert(testImage(t), FormatWebP, 0)
	require.NoError(t, err)

	img, format, err := codec.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, FormatWebP, format)
	assert.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
}

func TestCodec_MaxPixels(t *testing.T) {
	codec := NewCodec(nil)
	codec.MaxPixels = 64

	_, _, err := codec.Decode(testImage(t))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = codec.Convert(testImage(t), FormatPNG, 0)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	codec.MaxPixels = 16 * 8
	_, _, err = codec.Decode(testImage(t))
	assert.NoError(t, err)
}

func TestCodec_RejectsHugeCanvas(t *testing.T) {
	// a valid png header declaring 100000x100000 with no pixel data behind it
	header := testImage(t)[:33]
	binary.BigEndian.PutUint32(header[16:], 100000)
	binary.BigEndian.PutUint32(header[20:], 100000)
	binary.BigEndian.PutUint32(header[29:], crc32.ChecksumIEEE(header[12:29]))

	_, _, err := NewCodec(nil).Decode(header)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestClampQuality(t *testing.T) {
	assert.Equal(t, DefaultQuality, clampQuality(0))
	assert.Equal(t, DefaultQuality, clampQuality(-3))
	assert.Equal(t, 100, clampQuality(250))
	assert.Equal(t, 42, clampQuality(42))
}
