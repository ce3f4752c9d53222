package backend

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	doc := `{"discogs": {"placeholder_image": "/assets/placeholder.jpg", "token": "x"}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	s := LoadSettings(path)
	if s.PlaceholderImage != "/assets/placeholder.jpg" {
		t.Fatalf("placeholder = %q", s.PlaceholderImage)
	}
}

func TestLoadSettingsBestEffort(t *testing.T) {
	if s := LoadSettings(""); s.PlaceholderImage != "" {
		t.Error("empty path must yield zero settings")
	}
	if s := LoadSettings("/does/not/exist.json"); s.PlaceholderImage != "" {
		t.Error("missing file must yield zero settings")
	}
	garbled := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(garbled, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if s := LoadSettings(garbled); s.PlaceholderImage != "" {
		t.Error("garbled file must yield zero settings")
	}
}

func TestSHA1OfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.jpg")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	sum, err := SHA1OfFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// sha1("abc")
	if sum != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Fatalf("sum = %q", sum)
	}
	if _, err := SHA1OfFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("missing file must error")
	}
}
