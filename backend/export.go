package backend

import (
	"archive/tar"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ulikunitz/xz"
)

const exportLogPrefix = "[Export]"

// WriteReportFiles materializes a report under outDir: a plain-text summary,
// one CSV per non-empty finding set, and m3u8 playlists for the finding sets
// that map back to playable locations. Existing files are overwritten.
func WriteReportFiles(rep *Report, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	if err := writeSummaryText(rep, filepath.Join(outDir, "summary.txt")); err != nil {
		return err
	}

	sets := []struct {
		name     string
		findings []Finding
	}{
		{"quality", rep.Quality},
		{"duplicates", rep.Duplicates},
		{"broken_refs", rep.BrokenRefs},
		{"orphans", rep.Orphans},
		{"missing_files", rep.MissingFiles},
		{"cross_source", rep.CrossSource},
		{"inspection", rep.Inspection},
	}
	written := 0
	for _, set := range sets {
		if len(set.findings) == 0 {
			continue
		}
		path := filepath.Join(outDir, set.name+".csv")
		if err := writeFindingsCSV(set.findings, path); err != nil {
			return err
		}
		written++
	}

	if err := writeLocationsM3U8(rep.MissingFiles, filepath.Join(outDir, "missing_files.m3u8")); err != nil {
		return err
	}
	noArt := filterByKind(rep.Inspection, FindingNoArtwork)
	if err := writeLocationsM3U8(noArt, filepath.Join(outDir, "no_artwork.m3u8")); err != nil {
		return err
	}

	log.Printf("%s wrote summary and %d CSV file(s) to %s", exportLogPrefix, written, outDir)
	return nil
}

func writeSummaryText(rep *Report, path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Library report for %s\n", rep.Source)
	fmt.Fprintf(&b, "Generated %s\n\n", rep.GeneratedAt.Format("2006-01-02 15:04:05"))
	for _, stat := range rep.Summary {
		fmt.Fprintf(&b, "%-28s %s\n", stat.Metric+":", stat.Value)
	}
	if len(rep.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range rep.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// writeFindingsCSV flattens a finding set to CSV. The detail columns are the
// union of keys across the set, sorted, so every row has the same shape.
func writeFindingsCSV(findings []Finding, path string) error {
	detailCols := detailColumns(findings)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"kind", "subject", "members"}, detailCols...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	for _, fd := range findings {
		row := []string{fd.Kind, fd.Subject, strings.Join(fd.Members, "; ")}
		for _, col := range detailCols {
			row = append(row, fd.Detail[col])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func detailColumns(findings []Finding) []string {
	seen := map[string]bool{}
	var cols []string
	for _, fd := range findings {
		for k := range fd.Detail {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// writeLocationsM3U8 emits an extended m3u8 playlist from the findings'
// location details. Nothing is written when no finding carries a location.
func writeLocationsM3U8(findings []Finding, path string) error {
	var locations []string
	for _, fd := range findings {
		if loc := fd.Detail["location"]; loc != "" {
			locations = append(locations, loc)
		}
	}
	if len(locations) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, loc := range locations {
		b.WriteString(loc)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}
	return nil
}

func filterByKind(findings []Finding, kind string) []Finding {
	var out []Finding
	for _, fd := range findings {
		if fd.Kind == kind {
			out = append(out, fd)
		}
	}
	return out
}

// ArchiveReport packs every regular file directly under reportDir into a
// tar.xz at archivePath.
func ArchiveReport(reportDir, archivePath string) error {
	entries, err := os.ReadDir(reportDir)
	if err != nil {
		return fmt.Errorf("read report dir: %w", err)
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	xzw, err := xz.NewWriter(out)
	if err != nil {
		return fmt.Errorf("init xz writer: %w", err)
	}
	tw := tar.NewWriter(xzw)

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := archiveFile(tw, filepath.Join(reportDir, entry.Name()), entry.Name()); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := xzw.Close(); err != nil {
		return fmt.Errorf("close xz: %w", err)
	}
	log.Printf("%s archived report to %s", exportLogPrefix, archivePath)
	return nil
}

func archiveFile(tw *tar.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	return nil
}
