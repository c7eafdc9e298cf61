package capture_test

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"cardmint/internal/capture"
	"cardmint/internal/testsupport"
)

func TestLoadFromPath(t *testing.T) {
	path := testsupport.WriteImage(t, t.TempDir(), "pikachu.jpg")

	img, err := capture.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Name != "pikachu.jpg" || img.Source != path {
		t.Fatalf("unexpected image identity: %+v", img)
	}
	if img.ContentType != "image/jpeg" {
		t.Fatalf("content type = %q", img.ContentType)
	}
}

func TestLoadFromStdin(t *testing.T) {
	img, err := capture.Load("-", strings.NewReader(string(testsupport.JPEGBytes())))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Source != "stdin" || len(img.Data) == 0 {
		t.Fatalf("unexpected image: %+v", img)
	}
}

func TestLoadFromDataURL(t *testing.T) {
	url := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(testsupport.JPEGBytes())

	img, err := capture.Load(url, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Source != "data-url" || string(img.Data) != string(testsupport.JPEGBytes()) {
		t.Fatalf("unexpected image: %+v", img)
	}
}

func TestLoadDataURLFromStdin(t *testing.T) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(testsupport.JPEGBytes()) + "\n"
	img, err := capture.Load("-", strings.NewReader(dataURL))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.ContentType != "image/jpeg" || len(img.Data) != len(testsupport.JPEGBytes()) {
		t.Fatalf("stdin data url not decoded: %+v", img.ContentType)
	}
}

func TestLoadLargeDataURLFromStdin(t *testing.T) {
	original := make([]byte, 16<<20)
	copy(original, testsupport.JPEGBytes())
	for i := len(testsupport.JPEGBytes()); i < len(original); i++ {
		original[i] = byte(i)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(original)

	img, err := capture.Load("-", strings.NewReader(dataURL))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(img.Data, original) {
		t.Fatalf("decoded %d bytes, want %d identical bytes", len(img.Data), len(original))
	}
}

func TestLoadRejectsOversizedStdin(t *testing.T) {
	header := "data:image/jpeg;base64,"
	body := strings.Repeat("A", base64.StdEncoding.EncodedLen(capture.MaxImageBytes)*5/4)
	if _, err := capture.Load("-", strings.NewReader(header+body)); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected oversized stdin to be rejected, got %v", err)
	}
}

func TestLoadRejectsTruncatedDataURL(t *testing.T) {
	payload := strings.TrimRight(base64.StdEncoding.EncodeToString(testsupport.JPEGBytes()), "=")
	if len(payload)%4 == 0 {
		payload = payload[:len(payload)-1]
	}
	if _, err := capture.Load("-", strings.NewReader("data:image/jpeg;base64,"+payload)); err == nil {
		t.Fatal("expected truncated payload to be rejected")
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"empty source":   "",
		"missing file":   "/nonexistent/card.jpg",
		"not base64":     "data:image/jpeg;base64,***",
		"plain data url": "data:text/plain,hello",
	}
	for name, source := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := capture.Load(source, nil); err == nil {
				t.Fatalf("expected error for %q", source)
			}
		})
	}
	if _, err := capture.Load("-", strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty stdin")
	}
}
