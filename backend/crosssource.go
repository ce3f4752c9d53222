package backend

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
)

const crossSourceLogPrefix = "[CrossSource]"

// ErrUnusableSecondary is returned when the secondary export has no column
// that can serve as a path. It is recoverable: the caller skips only the
// cross-source pass and the rest of the report proceeds.
var ErrUnusableSecondary = errors.New("secondary export has no recognizable path column")

// SecondaryRecord is one row of the cue/key-analysis tool's export, keyed by
// normalized path. Loaded wholesale before the compare pass and read-only
// thereafter.
type SecondaryRecord struct {
	Path string            `json:"path"`
	BPM  float64           `json:"bpm"`
	Key  string            `json:"key"`
	Raw  map[string]string `json:"raw,omitempty"`
}

// Candidate header names per logical field, tried in order: exact
// case-insensitive match first over all candidates, then substring match.
var (
	pathColumnCandidates = []string{"path", "file", "filename", "location", "filepath", "file path"}
	bpmColumnCandidates  = []string{"bpm", "tempo"}
	keyColumnCandidates  = []string{"key", "camelot", "tonality"}
)

// findColumn returns the index of the best header for the candidate list, or
// -1 when nothing matches.
func findColumn(headers []string, candidates []string) int {
	for _, cand := range candidates {
		for i, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), cand) {
				return i
			}
		}
	}
	for _, cand := range candidates {
		for i, h := range headers {
			if strings.Contains(strings.ToLower(h), strings.ToLower(cand)) {
				return i
			}
		}
	}
	return -1
}

// LoadSecondaryCSV reads a delimited export with a header row into a mapping
// keyed by normalized path. Column detection is best-effort; tempo and key
// columns are optional, but a missing path column makes the source unusable
// and returns ErrUnusableSecondary.
func LoadSecondaryCSV(r io.Reader) (map[string]SecondaryRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read secondary header: %w", err)
	}

	pathCol := findColumn(headers, pathColumnCandidates)
	if pathCol < 0 {
		return nil, ErrUnusableSecondary
	}
	bpmCol := findColumn(headers, bpmColumnCandidates)
	keyCol := findColumn(headers, keyColumnCandidates)

	records := make(map[string]SecondaryRecord)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// One broken row must not discard the rest of the source.
			continue
		}
		cell := func(i int) string {
			if i >= 0 && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		path := NormalizeLocation(cell(pathCol))
		if path == "" {
			continue
		}
		raw := make(map[string]string, len(headers))
		for i, h := range headers {
			raw[h] = cell(i)
		}
		records[pathKey(path)] = SecondaryRecord{
			Path: path,
			BPM:  coerceFloat(cell(bpmCol)),
			Key:  cell(keyCol),
			Raw:  raw,
		}
	}
	log.Printf("%s loaded %d secondary rows", crossSourceLogPrefix, len(records))
	return records, nil
}

// ReconcileOptions configures the cross-source compare pass.
type ReconcileOptions struct {
	// BPMTolerance is the absolute tempo difference treated as agreement.
	// A difference exactly at the tolerance is NOT drift (strict >).
	// Defaults to 0.75.
	BPMTolerance float64 `json:"bpm_tolerance"`
}

func (o *ReconcileOptions) applyDefaults() {
	if o.BPMTolerance <= 0 {
		o.BPMTolerance = 0.75
	}
}

// Reconcile diffs the primary track set against the secondary mapping by
// normalized-path identity. Three passes: primary paths absent from the
// secondary, secondary paths absent from the primary, and metric drift for
// paths present in both. Tempo compares under the absolute tolerance; keys
// compare under identity normalization. Drift is only reported when both
// sides carry a value for the metric.
func Reconcile(tracks []Track, secondary map[string]SecondaryRecord, opts ReconcileOptions) []Finding {
	opts.applyDefaults()

	primary := make(map[string]*Track)
	var primaryOrder []string
	for i := range tracks {
		t := &tracks[i]
		if t.LocationPath == "" {
			continue
		}
		k := pathKey(t.LocationPath)
		if _, seen := primary[k]; !seen {
			primaryOrder = append(primaryOrder, k)
			primary[k] = t
		}
	}

	var findings []Finding

	for _, k := range primaryOrder {
		if _, ok := secondary[k]; ok {
			continue
		}
		t := primary[k]
		findings = append(findings, Finding{
			Kind:    FindingMissingInSecondary,
			Subject: t.TrackID,
			Detail: map[string]string{
				"artist":   t.Artist,
				"title":    t.Name,
				"location": t.LocationPath,
			},
		})
	}

	secondaryKeys := make([]string, 0, len(secondary))
	for k := range secondary {
		secondaryKeys = append(secondaryKeys, k)
	}
	sort.Strings(secondaryKeys)
	for _, k := range secondaryKeys {
		if _, ok := primary[k]; ok {
			continue
		}
		rec := secondary[k]
		findings = append(findings, Finding{
			Kind:    FindingMissingInPrimary,
			Subject: rec.Path,
			Detail: map[string]string{
				"secondary_bpm": formatBPM(rec.BPM),
				"secondary_key": rec.Key,
			},
		})
	}

	for _, k := range primaryOrder {
		rec, ok := secondary[k]
		if !ok {
			continue
		}
		t := primary[k]
		var metrics []string
		if rec.BPM > 0 && t.BPM > 0 && math.Abs(rec.BPM-t.BPM) > opts.BPMTolerance {
			metrics = append(metrics, "BPM")
		}
		if rec.Key != "" && t.Key != "" && normIdentity(rec.Key) != normIdentity(t.Key) {
			metrics = append(metrics, "Key")
		}
		if len(metrics) == 0 {
			continue
		}
		findings = append(findings, Finding{
			Kind:    FindingMetricDrift,
			Subject: t.TrackID,
			Detail: map[string]string{
				"metrics":       strings.Join(metrics, ", "),
				"location":      t.LocationPath,
				"primary_bpm":   formatBPM(t.BPM),
				"secondary_bpm": formatBPM(rec.BPM),
				"primary_key":   t.Key,
				"secondary_key": rec.Key,
			},
		})
	}

	return findings
}

func formatBPM(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
