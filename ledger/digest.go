package ledger

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// Artifact is a file produced by a session.
type Artifact struct {
	Role   string
	Path   string
	Size   int64
	Digest string
}

// Digest returns the hex BLAKE2b-256 digest of the file at path.
func Digest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("digest %s: %w", path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("digest %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// NewArtifact describes the file at path, computing its digest.
func NewArtifact(role, path string) (Artifact, error) {
	sum, size, err := Digest(path)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Role: role, Path: path, Size: size, Digest: sum}, nil
}

// Verify reports whether the file still matches the recorded digest.
func (a Artifact) Verify() (bool, error) {
	sum, _, err := Digest(a.Path)
	if err != nil {
		return false, err
	}
	return sum == a.Digest, nil
}
