package backend

import (
	"archive/tar"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ulikunitz/xz"
)

func sampleReport() *Report {
	return &Report{
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:      "collection.xml",
		TrackCount:  2,
		Summary: []SummaryStat{
			{Metric: "Total tracks", Value: "2"},
		},
		Quality: []Finding{
			{Kind: FindingQuality, Subject: "1", Detail: map[string]string{"issue": "Missing Key", "location": "/music/a.mp3"}},
		},
		MissingFiles: []Finding{
			{Kind: FindingMissingFile, Subject: "2", Detail: map[string]string{"location": "/music/gone.mp3"}},
		},
		Warnings: []string{"secondary CSV unusable"},
	}
}

func TestWriteReportFiles(t *testing.T) {
	dir := t.TempDir()
	if err := WriteReportFiles(sampleReport(), dir); err != nil {
		t.Fatalf("write: %v", err)
	}

	summary, err := os.ReadFile(filepath.Join(dir, "summary.txt"))
	if err != nil {
		t.Fatalf("summary missing: %v", err)
	}
	text := string(summary)
	if !strings.Contains(text, "Total tracks") || !strings.Contains(text, "secondary CSV unusable") {
		t.Errorf("summary incomplete:\n%s", text)
	}

	f, err := os.Open(filepath.Join(dir, "quality.csv"))
	if err != nil {
		t.Fatalf("quality csv missing: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("quality csv unreadable: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus one", len(rows))
	}
	if rows[0][0] != "kind" || rows[0][1] != "subject" {
		t.Errorf("header = %v", rows[0])
	}
	// Detail columns are sorted, so "issue" precedes "location".
	if rows[0][3] != "issue" || rows[0][4] != "location" {
		t.Errorf("detail columns not sorted: %v", rows[0])
	}
	if rows[1][3] != "Missing Key" {
		t.Errorf("issue cell = %q", rows[1][3])
	}

	// Empty finding sets produce no CSV.
	if _, err := os.Stat(filepath.Join(dir, "orphans.csv")); !os.IsNotExist(err) {
		t.Error("empty set produced a CSV")
	}

	playlist, err := os.ReadFile(filepath.Join(dir, "missing_files.m3u8"))
	if err != nil {
		t.Fatalf("m3u8 missing: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(playlist)), "\n")
	if lines[0] != "#EXTM3U" || lines[1] != "/music/gone.mp3" {
		t.Errorf("playlist content: %v", lines)
	}
}

func TestArchiveReport(t *testing.T) {
	dir := t.TempDir()
	if err := WriteReportFiles(sampleReport(), dir); err != nil {
		t.Fatal(err)
	}
	archivePath := filepath.Join(t.TempDir(), "report.tar.xz")
	if err := ArchiveReport(dir, archivePath); err != nil {
		t.Fatalf("archive: %v", err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	xr, err := xz.NewReader(f)
	if err != nil {
		t.Fatalf("not valid xz: %v", err)
	}
	tr := tar.NewReader(xr)
	names := map[string]bool{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar: %v", err)
		}
		names[hdr.Name] = true
	}
	for _, want := range []string{"summary.txt", "quality.csv", "missing_files.csv", "missing_files.m3u8"} {
		if !names[want] {
			t.Errorf("archive missing %s (has %v)", want, names)
		}
	}
}
