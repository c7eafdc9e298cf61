// Package capture turns the image argument of a run into bytes: a file path,
// "-" for stdin, or a base64 data URL such as the one a browser webcam
// capture produces.
package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// StdinSource is the image argument that selects standard input.
const StdinSource = "-"

// MaxImageBytes caps the decoded size of an image from any source.
const MaxImageBytes = 20 << 20

// maxDataURLOverhead allows for the "data:<mime>;base64," header and
// surrounding whitespace on stdin.
const maxDataURLOverhead = 1 << 10

// maxStdinBytes is the longest stdin accepted: a base64 data URL of a
// MaxImageBytes image, wrapped at 76 columns with CRLF line breaks.
func maxStdinBytes() int {
	encoded := base64.StdEncoding.EncodedLen(MaxImageBytes)
	return encoded + (encoded/76)*2 + maxDataURLOverhead
}

// Image is a photo ready for upload.
type Image struct {
	// Source describes where the bytes came from, for logs and history.
	Source      string
	Name        string
	ContentType string
	Data        []byte
}

// Load resolves source into an Image. stdin is only read when source is "-";
// its content may be raw image bytes or a data URL.
func Load(source string, stdin io.Reader) (Image, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return Image{}, errors.New("image source is required")
	case source == StdinSource:
		if stdin == nil {
			return Image{}, errors.New("stdin not available")
		}
		limit := maxStdinBytes()
		data, err := io.ReadAll(io.LimitReader(stdin, int64(limit)+1))
		if err != nil {
			return Image{}, fmt.Errorf("read stdin: %w", err)
		}
		if len(data) > limit {
			return Image{}, fmt.Errorf("stdin exceeds %d bytes", limit)
		}
		if trimmed := bytes.TrimSpace(data); bytes.HasPrefix(trimmed, []byte("data:")) {
			if data, err = decodeDataURL(string(trimmed)); err != nil {
				return Image{}, err
			}
		}
		return fromBytes("stdin", "capture.jpg", data)
	case strings.HasPrefix(source, "data:"):
		data, err := decodeDataURL(source)
		if err != nil {
			return Image{}, err
		}
		return fromBytes("data-url", "capture.jpg", data)
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return Image{}, fmt.Errorf("read image: %w", err)
		}
		return fromBytes(source, filepath.Base(source), data)
	}
}

func fromBytes(source, name string, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("image from %s is empty", source)
	}
	if len(data) > MaxImageBytes {
		return Image{}, fmt.Errorf("image from %s exceeds %d bytes", source, MaxImageBytes)
	}
	return Image{
		Source:      source,
		Name:        name,
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

// decodeDataURL accepts "data:<mime>;base64,<payload>".
func decodeDataURL(value string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(value, "data:"), ",")
	if !ok {
		return nil, errors.New("data url: missing payload")
	}
	if !strings.HasSuffix(strings.ToLower(header), ";base64") {
		return nil, errors.New("data url: only base64 payloads are supported")
	}
	payload = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' {
			return -1
		}
		return r
	}, payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("data url: decode: %w", err)
	}
	return data, nil
}
