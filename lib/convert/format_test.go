package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"jpg":        FormatJPEG,
		"JPEG":       FormatJPEG,
		".jpg":       FormatJPEG,
		"image/jpg":  FormatJPEG,
		"image/jpeg": FormatJPEG,
		"png":        FormatPNG,
		" Tif ":      FormatTIFF,
		"image/webp": FormatWebP,
		"heic":       FormatHEIC,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("svg")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormat_Output(t *testing.T) {
	for _, format := range OutputFormats {
		assert.True(t, format.Output(), format)
		assert.NotEmpty(t, format.MIME(), format)
	}
	assert.True(t, FormatWebP.Output())
	assert.False(t, FormatHEIC.Output())
}

func TestFormat_Rename(t *testing.T) {
	assert.Equal(t, "photo.png", FormatPNG.Rename("photo.jpeg"))
	assert.Equal(t, "archive.tar.jpg", FormatJPEG.Rename("archive.tar.gz"))
	assert.Equal(t, "noext.gif", FormatGIF.Rename("noext"))
	assert.Equal(t, ".hidden.bmp", FormatBMP.Rename(".hidden"))
	assert.Equal(t, "dir.v2/file.tiff", FormatTIFF.Rename("dir.v2/file"))
}
