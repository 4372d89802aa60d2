// Package digest computes content hashes of feed archives, used to
// tell new feed versions from ones already in the catalog.
package digest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ChunkSize is the size of reads folded into the hash.
const ChunkSize = 4096

// ComputeHash returns the hex encoded SHA-1 of everything read from r.
func ComputeHash(r io.Reader) (string, error) {
	h := sha1.New()
	buf := make([]byte, ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeFileHash hashes the file at path.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	hash, err := ComputeHash(f)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hash, nil
}

// IsNewVersion is true unless digest is among the previously seen
// digests.
func IsNewVersion(digest string, seen []string) bool {
	for _, s := range seen {
		if s == digest {
			return false
		}
	}
	return true
}
