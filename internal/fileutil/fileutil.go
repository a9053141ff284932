package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// partialSuffix marks files still being written.
const partialSuffix = ".part"

// WriteResult describes a completed write.
type WriteResult struct {
	Bytes  int64
	SHA256 string
}

// WriteVerified streams r into dst through a sibling ".part" file and renames
// it into place once complete. When expectedSize is non-negative the byte
// count must match it. The partial file is removed on any failure, so dst
// only ever holds a complete stream.
func WriteVerified(dst string, r io.Reader, expectedSize int64) (WriteResult, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return WriteResult{}, fmt.Errorf("create directory: %w", err)
	}

	partial := dst + partialSuffix
	out, err := os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return WriteResult{}, fmt.Errorf("create %s: %w", partial, err)
	}

	hasher := sha256.New()
	written, copyErr := io.Copy(io.MultiWriter(out, hasher), r)
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(partial)
		return WriteResult{}, fmt.Errorf("write %s: %w", dst, err)
	}

	if expectedSize >= 0 && written != expectedSize {
		_ = os.Remove(partial)
		return WriteResult{}, fmt.Errorf("size mismatch: expected %d bytes, received %d bytes", expectedSize, written)
	}

	if err := os.Rename(partial, dst); err != nil {
		_ = os.Remove(partial)
		return WriteResult{}, fmt.Errorf("finalize %s: %w", dst, err)
	}
	return WriteResult{Bytes: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}
