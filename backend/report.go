package backend

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

const analyseLogPrefix = "[Analyse]"

// AnalysisOptions carries every knob for one analysis run. Capabilities are
// explicit flags decided by the caller at construction time; the engine never
// discovers collaborators through global state.
type AnalysisOptions struct {
	// MusicRoot, when set, is walked once to build the relink index for
	// missing-file suggestions.
	MusicRoot string `json:"music_root,omitempty"`

	// SecondaryCSVPath and SecondaryDBPath locate the cue-analysis tool's
	// export. When both are set the CSV wins.
	SecondaryCSVPath string `json:"secondary_csv_path,omitempty"`
	SecondaryDBPath  string `json:"secondary_db_path,omitempty"`

	// SettingsPath locates the shared suite settings (placeholder image).
	SettingsPath string `json:"settings_path,omitempty"`

	Quality   QualityOptions   `json:"quality"`
	Duplicate DuplicateOptions `json:"duplicate"`
	Reconcile ReconcileOptions `json:"reconcile"`

	// CheckFiles enables on-disk presence checks.
	CheckFiles bool `json:"check_files"`

	// InspectArtwork / InspectTags enable the media inspection pass for
	// files that exist on disk.
	InspectArtwork bool `json:"inspect_artwork"`
	InspectTags    bool `json:"inspect_tags"`
}

// SummaryStat is one metric/value row of the report overview.
type SummaryStat struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

// Report is the engine's sole output: scalar summary statistics plus the
// per-finding row sets from every analysis pass, all in-memory and
// independently serializable. Ordering within each set is deterministic.
type Report struct {
	GeneratedAt   time.Time `json:"generated_at"`
	Source        string    `json:"source"`
	TrackCount    int       `json:"track_count"`
	PlaylistCount int       `json:"playlist_count"`

	Summary []SummaryStat `json:"summary"`

	Quality      []Finding `json:"quality,omitempty"`
	Duplicates   []Finding `json:"duplicates,omitempty"`
	BrokenRefs   []Finding `json:"broken_refs,omitempty"`
	Orphans      []Finding `json:"orphans,omitempty"`
	MissingFiles []Finding `json:"missing_files,omitempty"`
	CrossSource  []Finding `json:"cross_source,omitempty"`
	Inspection   []Finding `json:"inspection,omitempty"`

	// Warnings records recoverable conditions (an unusable secondary
	// source) that skipped a pass without failing the run.
	Warnings []string `json:"warnings,omitempty"`
}

// Analyse runs the full pipeline: one streaming parse, then the independent
// analysis passes over the loaded records, then report assembly. Only a
// structural parse failure aborts the run; every other condition is captured
// in the report as a finding or warning, so a run either produces a complete
// report or one explanatory error.
func Analyse(xmlPath string, opts AnalysisOptions) (*Report, error) {
	f, err := os.Open(xmlPath)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}
	defer f.Close()

	lib, err := ParseCollection(f)
	if err != nil {
		return nil, err
	}
	return AnalyseLibrary(lib, xmlPath, opts)
}

// AnalyseLibrary runs the analysis passes over an already-parsed library.
// Split out from Analyse so tests and callers with in-memory documents can
// reuse the pipeline.
func AnalyseLibrary(lib *Library, source string, opts AnalysisOptions) (*Report, error) {
	rep := &Report{
		GeneratedAt:   time.Now(),
		Source:        source,
		TrackCount:    len(lib.Tracks),
		PlaylistCount: len(lib.Playlists),
	}

	rep.Quality = AnalyzeQuality(lib.Tracks, opts.Quality)
	rep.Duplicates = DetectDuplicates(lib.Tracks, opts.Duplicate)
	rep.BrokenRefs, rep.Orphans = ValidatePlaylistGraph(lib)

	if opts.CheckFiles {
		rep.MissingFiles = ResolveFileExistence(lib.Tracks, opts.MusicRoot)
	}

	if secondary, warn := loadSecondary(opts); warn != "" {
		rep.Warnings = append(rep.Warnings, warn)
	} else if secondary != nil {
		rep.CrossSource = Reconcile(lib.Tracks, secondary, opts.Reconcile)
	}

	if opts.InspectArtwork || opts.InspectTags {
		inspectOpts := InspectOptions{
			CheckArtwork: opts.InspectArtwork,
			CheckTags:    opts.InspectTags,
			CacheKey:     source,
		}
		settings := LoadSettings(opts.SettingsPath)
		if settings.PlaceholderImage != "" {
			if sum, err := SHA1OfFile(settings.PlaceholderImage); err == nil {
				inspectOpts.PlaceholderSHA1 = sum
			}
		}
		rep.Inspection = InspectFiles(lib.Tracks, inspectOpts)
	}

	rep.Summary = buildSummary(lib, rep)
	log.Printf("%s report assembled: %d tracks, %d playlists, %d warnings",
		analyseLogPrefix, rep.TrackCount, rep.PlaylistCount, len(rep.Warnings))
	return rep, nil
}

// loadSecondary loads the configured secondary source. It returns a warning
// string instead of an error for every failure mode: a bad secondary source
// skips one pass, never the run.
func loadSecondary(opts AnalysisOptions) (map[string]SecondaryRecord, string) {
	switch {
	case opts.SecondaryCSVPath != "":
		f, err := os.Open(opts.SecondaryCSVPath)
		if err != nil {
			return nil, fmt.Sprintf("secondary CSV unreadable, cross-source pass skipped: %v", err)
		}
		defer f.Close()
		records, err := LoadSecondaryCSV(f)
		if err != nil {
			return nil, fmt.Sprintf("secondary CSV unusable, cross-source pass skipped: %v", err)
		}
		return records, ""
	case opts.SecondaryDBPath != "":
		records, err := LoadSecondaryDB(opts.SecondaryDBPath)
		if err != nil {
			return nil, fmt.Sprintf("secondary database unusable, cross-source pass skipped: %v", err)
		}
		return records, ""
	}
	return nil, ""
}

// buildSummary computes the overview statistics: totals, numeric aggregates,
// and top-N distributions over genre/artist/label/key/year.
func buildSummary(lib *Library, rep *Report) []SummaryStat {
	tracks := lib.Tracks

	var totalSize int64
	totalDur := 0
	genres := map[string]int{}
	artists := map[string]int{}
	labels := map[string]int{}
	keys := map[string]int{}
	years := map[string]int{}
	kinds := map[string]int{}
	var bpms, bitrates, samplerates []float64

	for i := range tracks {
		t := &tracks[i]
		totalSize += t.Size
		totalDur += t.Duration
		countNonEmpty(genres, normWS(t.Genre))
		countNonEmpty(artists, normWS(t.Artist))
		countNonEmpty(labels, normWS(t.Label))
		countNonEmpty(keys, strings.TrimSpace(t.Key))
		countNonEmpty(kinds, strings.TrimSpace(t.Kind))
		if t.Year != 0 {
			countNonEmpty(years, fmt.Sprintf("%d", t.Year))
		}
		if t.BPM > 0 {
			bpms = append(bpms, t.BPM)
		}
		if t.BitRate > 0 {
			bitrates = append(bitrates, float64(t.BitRate))
		}
		if t.SampleRate > 0 {
			samplerates = append(samplerates, float64(t.SampleRate))
		}
	}

	stats := []SummaryStat{
		{"Total tracks", fmt.Sprintf("%d", len(tracks))},
		{"Total playlists", fmt.Sprintf("%d", len(lib.Playlists))},
		{"Total duration (hh:mm:ss)", secondsToHHMMSS(totalDur)},
		{"Total size (GB)", fmt.Sprintf("%.2f", float64(totalSize)/(1<<30))},
		{"Unique artists", fmt.Sprintf("%d", len(artists))},
		{"Unique labels", fmt.Sprintf("%d", len(labels))},
		{"Unique genres", fmt.Sprintf("%d", len(genres))},
	}
	if len(bpms) > 0 {
		lo, hi, avg := minMaxAvg(bpms)
		stats = append(stats,
			SummaryStat{"BPM min", fmt.Sprintf("%.2f", lo)},
			SummaryStat{"BPM max", fmt.Sprintf("%.2f", hi)},
			SummaryStat{"BPM avg", fmt.Sprintf("%.2f", avg)},
		)
	}
	if len(bitrates) > 0 {
		lo, hi, avg := minMaxAvg(bitrates)
		stats = append(stats,
			SummaryStat{"Bitrate min", fmt.Sprintf("%.0f", lo)},
			SummaryStat{"Bitrate max", fmt.Sprintf("%.0f", hi)},
			SummaryStat{"Bitrate avg", fmt.Sprintf("%.2f", avg)},
		)
	}
	if len(samplerates) > 0 {
		lo, hi, _ := minMaxAvg(samplerates)
		stats = append(stats,
			SummaryStat{"SampleRate min", fmt.Sprintf("%.0f", lo)},
			SummaryStat{"SampleRate max", fmt.Sprintf("%.0f", hi)},
		)
	}

	stats = append(stats,
		SummaryStat{"Top genres", topValues(genres, 15)},
		SummaryStat{"Top artists", topValues(artists, 15)},
		SummaryStat{"Top labels", topValues(labels, 15)},
		SummaryStat{"Top keys", topValues(keys, 15)},
		SummaryStat{"Top years", topValues(years, 15)},
		SummaryStat{"File types", topValues(kinds, 15)},
	)

	stats = append(stats,
		SummaryStat{"Quality findings", fmt.Sprintf("%d", len(rep.Quality))},
		SummaryStat{"Duplicate groups", fmt.Sprintf("%d", len(rep.Duplicates))},
		SummaryStat{"Broken playlist refs", fmt.Sprintf("%d", len(rep.BrokenRefs))},
		SummaryStat{"Orphan tracks", fmt.Sprintf("%d", len(rep.Orphans))},
		SummaryStat{"Missing files", fmt.Sprintf("%d", len(rep.MissingFiles))},
		SummaryStat{"Cross-source findings", fmt.Sprintf("%d", len(rep.CrossSource))},
		SummaryStat{"Inspection findings", fmt.Sprintf("%d", len(rep.Inspection))},
	)
	return stats
}

func countNonEmpty(m map[string]int, v string) {
	if v != "" {
		m[v]++
	}
}

// topValues renders the n most common values as "a (3), b (2)". Ties break on
// the value itself so the result is deterministic.
func topValues(counts map[string]int, n int) string {
	type kv struct {
		value string
		count int
	}
	items := make([]kv, 0, len(counts))
	for v, c := range counts {
		items = append(items, kv{v, c})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].count != items[j].count {
			return items[i].count > items[j].count
		}
		return items[i].value < items[j].value
	})
	if len(items) > n {
		items = items[:n]
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s (%d)", it.value, it.count)
	}
	return strings.Join(parts, ", ")
}

func minMaxAvg(vals []float64) (lo, hi, avg float64) {
	lo, hi = vals[0], vals[0]
	sum := 0.0
	for _, v := range vals {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
	}
	return lo, hi, sum / float64(len(vals))
}

func secondsToHHMMSS(total int) string {
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
