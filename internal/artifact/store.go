package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists standalone-mode artifacts server-side and hands back a
// retrieval path recorded on the listing.
type Store interface {
	Save(name string, data []byte) (string, error)
	Open(path string) ([]byte, error)
}

// DirStore keeps artifacts under a single directory. Paths returned by
// Save are relative to that directory so rows stay valid across moves.
type DirStore struct {
	root string
}

func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &DirStore{root: root}, nil
}

func (s *DirStore) Save(name string, data []byte) (string, error) {
	name = filepath.Base(name)
	full := filepath.Join(s.root, name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return name, nil
}

func (s *DirStore) Open(path string) ([]byte, error) {
	// Reject traversal out of the root.
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid artifact path")
	}
	return os.ReadFile(filepath.Join(s.root, clean))
}
