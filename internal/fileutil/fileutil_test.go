package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
)

func TestWriteVerified(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "clip.mp4")

	content := "hello world"
	res, err := WriteVerified(dst, strings.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != content {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
	sum := sha256.Sum256([]byte(content))
	if res.SHA256 != hex.EncodeToString(sum[:]) || res.Bytes != int64(len(content)) {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := os.Stat(dst + partialSuffix); !os.IsNotExist(err) {
		t.Fatalf("partial file should be gone: %v", err)
	}
}

func TestWriteVerifiedUnknownSize(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "clip.mp4")
	res, err := WriteVerified(dst, strings.NewReader("data"), -1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Bytes != 4 {
		t.Fatalf("expected 4 bytes, got %d", res.Bytes)
	}
}

func TestWriteVerifiedSizeMismatch(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "clip.mp4")
	_, err := WriteVerified(dst, strings.NewReader("short"), 100)
	if err == nil || !strings.Contains(err.Error(), "size mismatch") {
		t.Fatalf("expected size mismatch, got %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("destination should not exist: %v", err)
	}
	if _, err := os.Stat(dst + partialSuffix); !os.IsNotExist(err) {
		t.Fatalf("partial file should be removed: %v", err)
	}
}

func TestWriteVerifiedReaderError(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "clip.mp4")
	boom := errors.New("connection reset")
	_, err := WriteVerified(dst, iotest.ErrReader(boom), -1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected reader error, got %v", err)
	}
	if _, err := os.Stat(dst + partialSuffix); !os.IsNotExist(err) {
		t.Fatalf("partial file should be removed: %v", err)
	}
}
