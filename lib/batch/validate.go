package batch

import (
	"errors"
	"fmt"
	"path/filepath"

	"gfx.cafe/gfx/imgconv/lib/convert"
)

var (
	ErrTooManyFiles    = errors.New("too many files")
	ErrFileTooLarge    = errors.New("file too large")
	ErrEmptyFile       = errors.New("file is empty")
	ErrUnsupportedType = errors.New("unsupported file type")
)

type File struct {
	Name string
	// MIME is the declared content type. When empty the extension decides.
	MIME string
	Data []byte
}

// Format reports the image format a file claims to be.
func (T File) Format() (convert.Format, error) {
	if T.MIME != "" {
		if format, err := convert.ParseFormat(T.MIME); err == nil {
			return format, nil
		}
	}
	return convert.ParseFormat(filepath.Ext(T.Name))
}

type Limits struct {
	MaxFiles    int
	MaxFileSize int64
}

type Rejection struct {
	File string
	Err  error
}

func (T Rejection) Error() string {
	return fmt.Sprintf("%s: %v", T.File, T.Err)
}

func (T Rejection) Unwrap() error {
	return T.Err
}

// Validate splits files into those that may be converted and those that may
// not. Once MaxFiles files are accepted every further valid file is rejected
// with ErrTooManyFiles.
func Validate(files []File, limits Limits) (accepted []File, rejected []Rejection) {
	for _, file := range files {
		if err := check(file, limits); err != nil {
			rejected = append(rejected, Rejection{File: file.Name, Err: err})
			continue
		}
		if limits.MaxFiles > 0 && len(accepted) >= limits.MaxFiles {
			rejected = append(rejected, Rejection{
				File: file.Name,
				Err:  fmt.Errorf("%w: limit is %d", ErrTooManyFiles, limits.MaxFiles),
			})
			continue
		}
		accepted = append(accepted, file)
	}
	return
}

func check(file File, limits Limits) error {
	if len(file.Data) == 0 {
		return ErrEmptyFile
	}
	if limits.MaxFileSize > 0 && int64(len(file.Data)) > limits.MaxFileSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, len(file.Data), limits.MaxFileSize)
	}
	if _, err := file.Format(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}
	return nil
}
