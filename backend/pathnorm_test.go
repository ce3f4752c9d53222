package backend

import (
	"path/filepath"
	"testing"
)

func TestNormalizeLocationFileURL(t *testing.T) {
	got := NormalizeLocation("file://localhost/D:/Music/My%20Track.mp3")
	want := filepath.FromSlash("D:/Music/My Track.mp3")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeLocationEquivalentForms(t *testing.T) {
	a := NormalizeLocation("file:///D:/Music/Track.mp3")
	b := NormalizeLocation(`D:\Music\Track.mp3`)
	if pathKey(a) != pathKey(b) {
		t.Fatalf("URL and native forms normalize differently: %q vs %q", a, b)
	}
}

func TestNormalizeLocationUNCHost(t *testing.T) {
	got := NormalizeLocation("file://nas/share/Track.mp3")
	want := filepath.FromSlash("//nas/share/Track.mp3")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeLocationPlainPath(t *testing.T) {
	in := "/home/dj/music/track.flac"
	if got := NormalizeLocation(in); got != filepath.FromSlash(in) {
		t.Fatalf("plain path changed: %q", got)
	}
}

func TestNormalizeLocationEmpty(t *testing.T) {
	if got := NormalizeLocation(""); got != "" {
		t.Fatalf("empty input produced %q", got)
	}
	if got := NormalizeLocation("   "); got != "" {
		t.Fatalf("blank input produced %q", got)
	}
}

func TestNormalizeLocationMalformedEscape(t *testing.T) {
	// Invalid percent escapes must never panic or error; the raw text is
	// kept as-is.
	got := NormalizeLocation("file:///C:/Music/bad%2track.mp3")
	if got == "" {
		t.Fatal("malformed escape dropped the path entirely")
	}
}

func TestNormalizeLocationIdempotent(t *testing.T) {
	inputs := []string{
		"file://localhost/C:/Music/A%20B.mp3",
		`C:\Music\A B.mp3`,
		"/home/dj/track.mp3",
		"file://nas/share/x.mp3",
	}
	for _, in := range inputs {
		once := NormalizeLocation(in)
		twice := NormalizeLocation(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestPathKeyCaseInsensitive(t *testing.T) {
	a := pathKey(NormalizeLocation("file:///D:/Music/TRACK.MP3"))
	b := pathKey(NormalizeLocation(`d:\music\track.mp3`))
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
}
