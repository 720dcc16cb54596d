package gallery

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadBytes is the largest photo accepted for analysis.
const MaxUploadBytes = 10 * 1024 * 1024

const uploadChunkSize = 64 * 1024

var (
	// ErrValidation rejects a file before or after reading: too large or not an image.
	ErrValidation = errors.New("upload validation failed")
	// ErrUploadTooLarge is the size case of ErrValidation.
	ErrUploadTooLarge = fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, MaxUploadBytes)
	// ErrFileRead means the file could not be read.
	ErrFileRead = errors.New("failed to read file")
)

// OpenFunc opens the chosen file for reading.
type OpenFunc func() (io.ReadCloser, error)

// FileFromPath describes a local file as a FileChosen event.
func FileFromPath(path string) (FileChosen, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileChosen{}, fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	if info.IsDir() {
		return FileChosen{}, fmt.Errorf("%w: %s is a directory", ErrFileRead, path)
	}
	return FileChosen{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// ReadDataURL reads r into a base64 data URL, calling progress with 0-100 as bytes arrive.
// size is the expected length and only drives progress; the hard limit is MaxUploadBytes.
func ReadDataURL(ctx context.Context, r io.Reader, size int64, progress func(int)) (string, error) {
	var data []byte
	if size > 0 && size <= MaxUploadBytes {
		data = make([]byte, 0, size)
	}

	buf := make([]byte, uploadChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := r.Read(buf)
		if n > 0 {
			if int64(len(data)+n) > MaxUploadBytes {
				return "", ErrUploadTooLarge
			}
			data = append(data, buf[:n]...)
			if progress != nil && size > 0 {
				progress(int(min(int64(len(data))*100/size, 99)))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrFileRead, err)
		}
	}

	if len(data) == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrValidation)
	}

	mtype := mimetype.Detect(data)
	mimeType := strings.TrimSpace(strings.SplitN(mtype.String(), ";", 2)[0])
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%w: %s is not an image", ErrValidation, mimeType)
	}

	if progress != nil {
		progress(100)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// StripDataURLPrefix returns the base64 payload of a data URL. Other input is returned unchanged.
func StripDataURLPrefix(dataURL string) string {
	if !strings.HasPrefix(dataURL, "data:") {
		return dataURL
	}
	if idx := strings.Index(dataURL, ","); idx >= 0 {
		return dataURL[idx+1:]
	}
	return dataURL
}
