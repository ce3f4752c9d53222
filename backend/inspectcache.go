package backend

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// InspectCacheEntry caches the probe result for one media file so repeated
// runs over a large library skip files that haven't changed. An entry is
// valid while the file's size and mtime match.
type InspectCacheEntry struct {
	Path        string     `json:"path"`
	Size        int64      `json:"size"`
	ModTimeUnix int64      `json:"mod_time_unix"`
	Probe       *FileProbe `json:"probe,omitempty"`
	// When the entry was last saved (helpful for debugging/inspection)
	SavedAt string `json:"saved_at,omitempty"`
}

// LoadInspectCache loads the probe cache for the given cache key. A missing
// cache file returns an empty map and nil error.
func LoadInspectCache(cacheKey string) (map[string]InspectCacheEntry, error) {
	cachePath, err := inspectCachePathForKey(cacheKey)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]InspectCacheEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read inspect cache: %w", err)
	}

	var out map[string]InspectCacheEntry
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inspect cache: %w", err)
	}
	return out, nil
}

// SaveInspectCache writes the probe cache atomically: a temp file is written
// first and renamed into place.
func SaveInspectCache(cacheKey string, cache map[string]InspectCacheEntry) error {
	cachePath, err := inspectCachePathForKey(cacheKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	for k, v := range cache {
		v.SavedAt = time.Now().UTC().Format(time.RFC3339)
		cache[k] = v
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal inspect cache: %w", err)
	}

	tmpFile := cachePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp inspect cache: %w", err)
	}
	if err := os.Rename(tmpFile, cachePath); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to atomically save inspect cache: %w", err)
	}
	return nil
}

// inspectCachePathForKey computes a stable cache file path for the given key
// (normally the collection document path) so different libraries get
// different cache files.
func inspectCachePathForKey(cacheKey string) (string, error) {
	if cacheKey == "" {
		return "", fmt.Errorf("cache key is required")
	}
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		userCacheDir = os.TempDir()
	}
	sum := sha1.Sum([]byte(cacheKey))
	hash := hex.EncodeToString(sum[:])
	return filepath.Join(userCacheDir, "rekordscope", fmt.Sprintf("inspect_%s.json", hash)), nil
}
