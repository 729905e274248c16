package eventlog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vifei-systems/vifei/internal/hashing"
)

// BlobStore is a content-addressed store for payload bytes externalized
// out of the event log proper (large tool outputs, for example), keyed by
// their BLAKE3 digest so a payload_ref in an event is self-verifying.
type BlobStore struct {
	dir string
}

// NewBlobStore returns a BlobStore rooted at dir, creating it if absent.
func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("eventlog: creating blob store at %s: %w", dir, err)
	}
	return &BlobStore{dir: dir}, nil
}

// Put stores data and returns its content digest, the value that belongs
// in an ImportEvent's payload_ref. Writing the same bytes twice is
// idempotent and returns the same digest.
func (s *BlobStore) Put(data []byte) (hashing.Digest, error) {
	digest := hashing.Sum(data)
	path := s.pathFor(digest)
	if _, err := os.Stat(path); err == nil {
		return digest, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("eventlog: creating blob shard for %s: %w", digest, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("eventlog: writing blob %s: %w", digest, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("eventlog: finalizing blob %s: %w", digest, err)
	}
	return digest, nil
}

// Get retrieves the bytes for a digest previously returned by Put, and
// re-verifies the digest on read so a corrupted blob file is never handed
// back silently.
func (s *BlobStore) Get(digest hashing.Digest) ([]byte, error) {
	data, err := os.ReadFile(s.pathFor(digest))
	if err != nil {
		return nil, fmt.Errorf("eventlog: reading blob %s: %w", digest, err)
	}
	if got := hashing.Sum(data); got != digest {
		return nil, fmt.Errorf("eventlog: blob %s failed integrity check, got %s", digest, got)
	}
	return data, nil
}

// Has reports whether a blob for digest is present.
func (s *BlobStore) Has(digest hashing.Digest) bool {
	_, err := os.Stat(s.pathFor(digest))
	return err == nil
}

func (s *BlobStore) pathFor(digest hashing.Digest) string {
	str := string(digest)
	if len(str) < 4 {
		return filepath.Join(s.dir, str)
	}
	return filepath.Join(s.dir, str[:2], str[2:4], str)
}
