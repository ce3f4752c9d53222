package backend

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveFileExistence(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.mp3")
	writeFile(t, present)

	tracks := []Track{
		{TrackID: "1", LocationPath: present},
		{TrackID: "2", Name: "Gone", LocationPath: filepath.Join(dir, "gone.mp3")},
		{TrackID: "3", Name: "No location"},
	}
	findings := ResolveFileExistence(tracks, "")
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2: %+v", len(findings), findings)
	}
	if findings[0].Subject != "2" || findings[1].Subject != "3" {
		t.Errorf("unexpected subjects: %+v", findings)
	}
	if findings[0].Kind != FindingMissingFile {
		t.Errorf("kind = %q", findings[0].Kind)
	}
}

func TestResolveFileExistenceRelinkSuggestion(t *testing.T) {
	libDir := t.TempDir()
	musicRoot := t.TempDir()
	moved := filepath.Join(musicRoot, "sub", "track.mp3")
	writeFile(t, moved)

	tracks := []Track{
		{TrackID: "1", LocationPath: filepath.Join(libDir, "track.mp3")},
		{TrackID: "2", LocationPath: filepath.Join(libDir, "unknown.mp3")},
	}
	findings := ResolveFileExistence(tracks, musicRoot)
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2", len(findings))
	}
	if got := findings[0].Detail["relink"]; got != moved {
		t.Errorf("relink = %q, want %q", got, moved)
	}
	if _, ok := findings[1].Detail["relink"]; ok {
		t.Errorf("no candidate exists but a relink was suggested: %+v", findings[1])
	}
}

func TestBuildRelinkIndexFirstMatchWins(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "a", "Track.MP3")
	second := filepath.Join(root, "b", "track.mp3")
	writeFile(t, first)
	writeFile(t, second)

	index, err := BuildRelinkIndex(root)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := index["track.mp3"]
	if !ok {
		t.Fatal("filename not indexed under its lower-cased form")
	}
	if got != first {
		t.Errorf("index = %q, want first-seen path %q", got, first)
	}
}

func TestResolveFileExistenceBadRoot(t *testing.T) {
	// An unusable relink root disables suggestions but still reports
	// missing files.
	tracks := []Track{{TrackID: "1", LocationPath: "/definitely/not/here.mp3"}}
	findings := ResolveFileExistence(tracks, filepath.Join(t.TempDir(), "nope"))
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
}
