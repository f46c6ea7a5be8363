// Package cache implements the on-disk, symlink-based artifact cache the
// pipeline engine consults between runs. Artifacts are symlinked under a
// filename keyed on the literal stage-execution prefix; a broken symlink
// (its target deleted since it was stored) is treated as a miss and cleared.
package cache

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/minio/highwayhash"
)

// contentIDKey is a fixed 32-byte key for the HighwayHash content-id digest
// computed by HashFile. It only needs to be stable across runs of this
// binary, not secret.
var contentIDKey = [32]byte{
	0x6f, 0x6e, 0x74, 0x65, 0x78, 0x74, 0x2d, 0x63,
	0x61, 0x63, 0x68, 0x65, 0x2d, 0x69, 0x64, 0x00,
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
}

// Cache is the shared artifact cache directory for one or more pipeline runs.
type Cache struct {
	dir          string
	hits, misses int
}

// New returns a Cache rooted at dir. An empty dir disables caching entirely:
// Lookup always misses and Store is a no-op, matching the spec's "cache
// directory (optional)" contract.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Enabled reports whether this cache has a backing directory.
func (c *Cache) Enabled() bool { return c.dir != "" }

// Stats returns the cumulative hit/miss counts for this cache instance.
func (c *Cache) Stats() (hits, misses int) { return c.hits, c.misses }

// ArtifactPath returns the on-disk cache filename for an artifact produced
// after executing the given stage-identity prefix: "<prefix>.<artifact>".
func (c *Cache) ArtifactPath(executionPrefix, artifact string) string {
	return filepath.Join(c.dir, executionPrefix+"."+artifact)
}

// Lookup reports whether a cache entry exists for this prefix+artifact and,
// if so, its path. A broken symlink is treated as a cache miss: it is
// deleted and logged (spec §7e), not surfaced as an error.
func (c *Cache) Lookup(executionPrefix, artifact string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}

	path := c.ArtifactPath(executionPrefix, artifact)
	info, err := os.Lstat(path)
	if err != nil {
		c.misses++
		return "", false
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			c.removeBroken(path)
			return "", false
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		if _, err := os.Stat(target); err != nil {
			c.removeBroken(path)
			return "", false
		}
	}

	c.hits++
	return path, true
}

func (c *Cache) removeBroken(path string) {
	log.Printf("[CACHE_BROKEN] removing stale link %s", path)
	os.Remove(path)
	c.misses++
}

// Store installs a symlink from the cache directory back to a stage's
// produced artifact. It is write-once: if an entry already exists for this
// prefix+artifact, Store is a benign no-op (spec §5's "write-once per
// artifact name" / "concurrent symlink creation to the same target is a
// benign no-op").
func (c *Cache) Store(executionPrefix, artifact, producedPath string) error {
	if !c.Enabled() {
		return nil
	}

	target := c.ArtifactPath(executionPrefix, artifact)
	if _, err := os.Lstat(target); err == nil {
		return nil
	}

	abs, err := filepath.Abs(producedPath)
	if err != nil {
		return fmt.Errorf("cache: resolve %s: %w", producedPath, err)
	}

	if err := os.Symlink(abs, target); err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("cache: symlink %s -> %s: %w", target, abs, err)
	}

	log.Printf("[CACHE_STORE] %s", target)
	return nil
}

// ListPrefix lists every cache entry belonging to the given execution
// prefix, e.g. for clearing all artifacts of a stage whose chain changed.
func (c *Cache) ListPrefix(executionPrefix string) ([]string, error) {
	if !c.Enabled() {
		return nil, nil
	}
	pattern := filepath.Join(c.dir, executionPrefix+".*")
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("cache: glob %s: %w", pattern, err)
	}
	return matches, nil
}

// HashFile streams path through HighwayHash and returns its digest as a
// fixed-width hex string: a content id independent of the file's name,
// location, or any symlink pointing to it.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cache: open %s: %w", path, err)
	}
	defer f.Close()

	h, err := highwayhash.New64(contentIDKey[:])
	if err != nil {
		// contentIDKey is a fixed 32-byte constant; New64 only fails on key length.
		panic(fmt.Sprintf("cache: invalid highwayhash key: %v", err))
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("cache: hash %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// CheckInput hashes path's current content and compares it against the
// content id recorded the last time an input named name was seen in this
// cache directory, recording the new id if none is on file yet. It reports
// whether the content changed since that prior recording.
//
// The execution-prefix cache key is blind to this: it stays stable across an
// input's edits as long as the stage chain's textual identities don't
// change, so without this check a run could silently reuse artifacts built
// from stale input.
func (c *Cache) CheckInput(name, path string) (changed bool, err error) {
	if !c.Enabled() {
		return false, nil
	}
	hash, err := HashFile(path)
	if err != nil {
		return false, err
	}

	sidecar := filepath.Join(c.dir, name+".content_id")
	prev, err := os.ReadFile(sidecar)
	if err != nil {
		if !os.IsNotExist(err) {
			return false, fmt.Errorf("cache: read %s: %w", sidecar, err)
		}
		return false, c.writeContentID(sidecar, hash)
	}
	if string(prev) == hash {
		return false, nil
	}
	return true, c.writeContentID(sidecar, hash)
}

func (c *Cache) writeContentID(sidecar, hash string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache: create dir %s: %w", c.dir, err)
	}
	if err := os.WriteFile(sidecar, []byte(hash), 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", sidecar, err)
	}
	return nil
}
