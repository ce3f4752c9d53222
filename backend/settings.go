package backend

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/gjson"
)

// Settings is the small slice of the suite's shared settings file relevant to
// analysis: the placeholder cover image that artwork fetchers drop in when
// they find nothing.
type Settings struct {
	PlaceholderImage string `json:"placeholder_image"`
}

// LoadSettings reads a settings JSON best-effort. A missing or garbled file
// yields zero-value settings; settings never fail a run.
func LoadSettings(path string) Settings {
	if path == "" {
		return Settings{}
	}
	data, err := os.ReadFile(path)
	if err != nil || !gjson.ValidBytes(data) {
		return Settings{}
	}
	return Settings{
		PlaceholderImage: gjson.GetBytes(data, "discogs.placeholder_image").String(),
	}
}

// SHA1OfFile hex-hashes a file streaming it from disk, used to fingerprint
// the placeholder image once per run.
func SHA1OfFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
