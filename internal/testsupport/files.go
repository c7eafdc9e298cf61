package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// jpegStub is the smallest byte sequence that sniffs as image/jpeg.
var jpegStub = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0xFF, 0xD9}

// WriteImage writes a tiny JPEG-looking file and returns its path.
func WriteImage(t testing.TB, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, JPEGBytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// JPEGBytes returns a fresh copy of the stub image payload.
func JPEGBytes() []byte {
	return append([]byte(nil), jpegStub...)
}
