package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Producer returns fresh data for a cache key.
type Producer func() (any, error)

// DiskCache memoizes decoded JSON payloads as one file per key inside Dir.
// Entries never expire; a key is refreshed only when its file is removed.
type DiskCache struct {
	Dir    string
	logger *slog.Logger
}

// NewDiskCache constructs a DiskCache rooted at dir.
func NewDiskCache(dir string, logger *slog.Logger) *DiskCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DiskCache{Dir: dir, logger: logger}
}

// Path returns the file bound to key.
func (c *DiskCache) Path(key string) string {
	return filepath.Join(c.Dir, filepath.Base(key))
}

// Cache returns the payload stored for key. On a miss it calls produce exactly
// once, persists its result and returns it. Producer errors are returned as-is
// and leave no file behind.
func (c *DiskCache) Cache(key string, produce Producer) (any, error) {
	path := c.Path(key)

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		c.logger.Debug("cache hit", "key", key, "path", path)
		v, derr := decode(raw)
		if derr != nil {
			return nil, fmt.Errorf("decode cache file %q: %w", path, derr)
		}
		return v, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read cache file %q: %w", path, err)
	}

	c.logger.Debug("cache miss", "key", key, "path", path)
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %q: %w", c.Dir, err)
	}

	v, err := produce()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload for %q: %w", key, err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write cache file %q: %w", path, err)
	}
	return v, nil
}

// Remove deletes the file bound to key. Removing a missing key is not an error.
func (c *DiskCache) Remove(key string) error {
	err := os.Remove(c.Path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

// decode parses JSON using UseNumber so integers keep their precision.
func decode(raw []byte) (any, error) {
	var out any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName) // no-op after a successful rename
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
