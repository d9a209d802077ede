package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTooLarge is returned when an upload exceeds the configured size limit.
	ErrTooLarge = errors.New("object exceeds size limit")
	// ErrInvalidID is returned for storage IDs that are not UUIDs.
	ErrInvalidID = errors.New("invalid storage id")
	// ErrObjectNotFound is returned when no object exists for a storage ID.
	ErrObjectNotFound = errors.New("object not found")
)

// Object describes a stored blob.
type Object struct {
	StorageID string
	SizeBytes int64
	MIMEType  string
	ModTime   time.Time
}

// LocalStore persists uploaded documents on disk, sharded by the first two
// characters of their storage ID.
type LocalStore struct {
	baseDir string
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// NewStorageID allocates a fresh object identifier.
func NewStorageID() string {
	return uuid.NewString()
}

// Put streams r into the object identified by storageID. The MIME type is
// sniffed from the leading bytes; contents are otherwise never inspected.
func (s *LocalStore) Put(storageID string, r io.Reader, maxBytes int64) (*Object, error) {
	path, err := s.resolve(storageID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prepare storage directory: %w", err)
	}

	br := bufio.NewReader(r)
	head, _ := br.Peek(512)
	mimeType := http.DetectContentType(head)

	tmp := path + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create object: %w", err)
	}

	var src io.Reader = br
	if maxBytes > 0 {
		src = io.LimitReader(br, maxBytes+1)
	}
	written, copyErr := io.Copy(file, src)
	closeErr := file.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("write object: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("close object: %w", closeErr)
	case maxBytes > 0 && written > maxBytes:
		_ = os.Remove(tmp)
		return nil, ErrTooLarge
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("commit object: %w", err)
	}
	return &Object{StorageID: storageID, SizeBytes: written, MIMEType: mimeType, ModTime: time.Now()}, nil
}

// Stat returns metadata for a stored object.
func (s *LocalStore) Stat(storageID string) (*Object, error) {
	path, err := s.resolve(storageID)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	defer file.Close() //nolint:errcheck
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)

	return &Object{
		StorageID: storageID,
		SizeBytes: info.Size(),
		MIMEType:  http.DetectContentType(head[:n]),
		ModTime:   info.ModTime(),
	}, nil
}

// Open returns a read-only handle for the stored object.
func (s *LocalStore) Open(storageID string) (*os.File, error) {
	path, err := s.resolve(storageID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return file, nil
}

// Delete removes a stored object if present.
func (s *LocalStore) Delete(storageID string) error {
	path, err := s.resolve(storageID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// CleanupOlderThan removes objects whose modification time is before now-ttl
// and whose storage ID is not kept. It returns the removed storage IDs.
func (s *LocalStore) CleanupOlderThan(ttl time.Duration, keep func(storageID string) bool) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		id := d.Name()
		if keep != nil && keep(id) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		deleted = append(deleted, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup storage: %w", err)
	}
	return deleted, nil
}

func (s *LocalStore) resolve(storageID string) (string, error) {
	if _, err := uuid.Parse(storageID); err != nil {
		return "", ErrInvalidID
	}
	return filepath.Join(s.baseDir, storageID[:2], storageID), nil
}
