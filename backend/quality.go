package backend

import (
	"fmt"
	"strings"
	"unicode"
)

// QualityOptions configures the per-track rule checks.
type QualityOptions struct {
	// MinBitrate flags lossy files below this bitrate. Defaults to 320.
	MinBitrate int `json:"min_bitrate"`

	// LossyKind is the file-kind family the bitrate rule applies to, matched
	// as a case-insensitive prefix of the track's kind label. Defaults to
	// "mp3".
	LossyKind string `json:"lossy_kind"`
}

func (o *QualityOptions) applyDefaults() {
	if o.MinBitrate <= 0 {
		o.MinBitrate = 320
	}
	if o.LossyKind == "" {
		o.LossyKind = "mp3"
	}
}

// qualityRule is one independently triggerable check. The rule set is closed
// and enumerable; adding a rule means appending here and nowhere else.
type qualityRule struct {
	issue string
	check func(t *Track, opts QualityOptions) bool
}

func qualityRules(opts QualityOptions) []qualityRule {
	return []qualityRule{
		{"Missing Artist", func(t *Track, _ QualityOptions) bool {
			return strings.TrimSpace(t.Artist) == ""
		}},
		{"Missing Title", func(t *Track, _ QualityOptions) bool {
			return strings.TrimSpace(t.Name) == ""
		}},
		{"Missing Genre", func(t *Track, _ QualityOptions) bool {
			return strings.TrimSpace(t.Genre) == ""
		}},
		{"Missing Label", func(t *Track, _ QualityOptions) bool {
			return strings.TrimSpace(t.Label) == ""
		}},
		{"Missing Year", func(t *Track, _ QualityOptions) bool {
			return t.Year == 0
		}},
		{"Missing/Zero BPM", func(t *Track, _ QualityOptions) bool {
			return t.BPM <= 0
		}},
		{"Missing Key", func(t *Track, _ QualityOptions) bool {
			return strings.TrimSpace(t.Key) == ""
		}},
		{fmt.Sprintf("Low %s bitrate (<%d)", strings.ToUpper(opts.LossyKind), opts.MinBitrate),
			func(t *Track, o QualityOptions) bool {
				kind := strings.ToLower(t.Kind)
				return strings.HasPrefix(kind, strings.ToLower(o.LossyKind)) &&
					t.BitRate > 0 && t.BitRate < o.MinBitrate
			}},
		{"Double spaces in Artist/Title", func(t *Track, _ QualityOptions) bool {
			return hasInteriorDoubleSpace(t.Artist) || hasInteriorDoubleSpace(t.Name)
		}},
		{"Trailing space in Artist/Title", func(t *Track, _ QualityOptions) bool {
			return hasTrailingSpace(t.Artist) || hasTrailingSpace(t.Name)
		}},
	}
}

// AnalyzeQuality runs the rule set over every track. Each rule fires
// independently, so a single track can produce several findings. The pass is
// pure per-track evaluation with no cross-track state.
func AnalyzeQuality(tracks []Track, opts QualityOptions) []Finding {
	opts.applyDefaults()
	rules := qualityRules(opts)

	var findings []Finding
	for i := range tracks {
		t := &tracks[i]
		for _, rule := range rules {
			if !rule.check(t, opts) {
				continue
			}
			findings = append(findings, Finding{
				Kind:    FindingQuality,
				Subject: t.TrackID,
				Detail: map[string]string{
					"issue":    rule.issue,
					"artist":   t.Artist,
					"title":    t.Name,
					"location": t.LocationPath,
				},
			})
		}
	}
	return findings
}

// hasInteriorDoubleSpace reports consecutive whitespace between words,
// ignoring leading and trailing runs (those are covered by the trailing rule).
func hasInteriorDoubleSpace(s string) bool {
	return strings.Contains(strings.TrimSpace(s), "  ")
}

func hasTrailingSpace(s string) bool {
	return s != strings.TrimRightFunc(s, unicode.IsSpace) && strings.TrimSpace(s) != ""
}
