package convert

import (
	"fmt"
	"strings"
)

type Format string

const (
	FormatJPEG Format = "jpg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
	FormatWebP Format = "webp"
	FormatHEIC Format = "heic"
)

type formatInfo struct {
	mime    string
	aliases []string
	// decodeName is the name image.Decode reports for the format
	decodeName string
}

var formats = map[Format]formatInfo{
	FormatJPEG: {mime: "image/jpeg", aliases: []string{"jpeg", "image/jpg"}, decodeName: "jpeg"},
	FormatPNG:  {mime: "image/png", decodeName: "png"},
	FormatGIF:  {mime: "image/gif", decodeName: "gif"},
	FormatBMP:  {mime: "image/bmp", decodeName: "bmp"},
	FormatTIFF: {mime: "image/tiff", aliases: []string{"tif"}, decodeName: "tiff"},
	FormatWebP: {mime: "image/webp", decodeName: "webp"},
	FormatHEIC: {mime: "image/heic", aliases: []string{"heif"}},
}

// OutputFormats are the formats images can be converted to.
var OutputFormats = []Format{
	FormatJPEG,
	FormatPNG,
	FormatGIF,
	FormatBMP,
	FormatTIFF,
	FormatWebP,
}

// ParseFormat accepts a format name, file extension or MIME type.
func ParseFormat(s string) (Format, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	for format, info := range formats {
		if s == string(format) || s == info.mime {
			return format, nil
		}
		for _, alias := range info.aliases {
			if s == alias {
				return format, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func formatFromDecodeName(name string) Format {
	for format, info := range formats {
		if info.decodeName != "" && info.decodeName == name {
			return format
		}
	}
	return Format(name)
}

func (T Format) MIME() string {
	return formats[T].mime
}

func (T Format) Extension() string {
	return "." + string(T)
}

// Output reports whether images can be encoded to T.
func (T Format) Output() bool {
	for _, format := range OutputFormats {
		if format == T {
			return true
		}
	}
	return false
}

func (T Format) String() string {
	return string(T)
}

// Rename replaces the extension of name with the one of T.
func (T Format) Rename(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 && !strings.ContainsAny(name[i:], "/\\") {
		name = name[:i]
	}
	return name + T.Extension()
}
