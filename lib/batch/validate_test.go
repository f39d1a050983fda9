package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gfx.cafe/gfx/imgconv/lib/convert"
)

func TestValidate(t *testing.T) {
	files := []File{
		{Name: "a.png", Data: []byte("a")},
		{Name: "b.txt", Data: []byte("b")},
		{Name: "c", MIME: "image/jpeg", Data: []byte("c")},
		{Name: "d.gif", Data: []byte("too big")},
		{Name: "e.bmp"},
		{Name: "f.heic", Data: []byte("f")},
		{Name: "g.webp", Data: []byte("g")},
	}

	accepted, rejected := Validate(files, Limits{MaxFiles: 3, MaxFileSize: 4})

	var names []string
	for _, file := range accepted {
		names = append(names, file.Name)
	}
	assert.Equal(t, []string{"a.png", "c", "f.heic"}, names)

	require.Len(t, rejected, 4)
	assert.Equal(t, "b.txt", rejected[0].File)
	assert.ErrorIs(t, rejected[0], ErrUnsupportedType)
	assert.ErrorIs(t, rejected[0], convert.ErrUnknownFormat)
	assert.ErrorIs(t, rejected[1], ErrFileTooLarge)
	assert.ErrorIs(t, rejected[2], ErrEmptyFile)
	assert.Equal(t, "g.webp", rejected[3].File)
	assert.ErrorIs(t, rejected[3], ErrTooManyFiles)
}

func TestValidate_NoLimits(t *testing.T) {
	files := make([]File, 50)
	for i := range files {
		files[i] = File{Name: "x.jpg", Data: make([]byte, 1<<10)}
	}

	accepted, rejected := Validate(files, Limits{})
	assert.Len(t, accepted, 50)
	assert.Empty(t, rejected)
}

func TestFile_Format(t *testing.T) {
	format, err := File{Name: "photo.PNG"}.Format()
	require.NoError(t, err)
	assert.Equal(t, convert.FormatPNG, format)

	// a bogus declared type falls back to the extension
	format, err = File{Name: "photo.tif", MIME: "application/octet-stream"}.Format()
	require.NoError(t, err)
	assert.Equal(t, convert.FormatTIFF, format)
}
