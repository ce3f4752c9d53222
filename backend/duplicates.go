package backend

import (
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hbollon/go-edlib"
)

const duplicateLogPrefix = "[Duplicates]"

// Duplicate grouping definitions. Each runs independently over the full track
// list, so a track can appear in one group per definition.
const (
	DupSameLocation  = "same_location"
	DupSameIdentity  = "same_identity"
	DupSameSignature = "same_signature"
)

// DuplicateOptions configures duplicate detection.
type DuplicateOptions struct {
	// FuzzyMergeThreshold, when above zero, merges identity-key groups whose
	// keys are at least this Jaro-Winkler similar (0..1). Catches the same
	// work tagged with small spelling differences. Zero disables the merge so
	// the three base groupings stay exactly reproducible.
	FuzzyMergeThreshold float32 `json:"fuzzy_merge_threshold"`
}

var (
	bracketedContent = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|\{[^}]*\}`)
	nonAlphanumeric  = regexp.MustCompile(`[^a-z0-9]+`)
)

// normIdentity lower-cases, strips bracketed and parenthetical content,
// collapses punctuation to single spaces and trims. Used for identity-key
// grouping and for key comparison during cross-source reconciliation.
func normIdentity(s string) string {
	s = strings.ToLower(s)
	s = bracketedContent.ReplaceAllString(s, " ")
	s = nonAlphanumeric.ReplaceAllString(s, " ")
	return normWS(s)
}

// IdentityKey is the loosely-normalized artist+title key that groups likely
// same-work tracks despite inconsistent tagging. Empty when the track has
// neither artist nor title worth comparing.
func IdentityKey(artist, title string) string {
	a, t := normIdentity(artist), normIdentity(title)
	if a == "" && t == "" {
		return ""
	}
	return a + "|" + t
}

// signatureKey narrows the identity key by exact duration and tempo rounded
// to the nearest integer. Rounding can conflate tracks at tempo boundaries
// (127.6 and 128.4 both round to 128); that tradeoff is intentional and
// covered by tests.
func signatureKey(t *Track) string {
	id := IdentityKey(t.Artist, t.Name)
	if id == "" {
		return ""
	}
	rbpm := 0
	if t.BPM > 0 {
		rbpm = int(math.Round(t.BPM))
	}
	return fmt.Sprintf("%s|%d|%d", id, t.Duration, rbpm)
}

// DetectDuplicates groups tracks under the three equivalence definitions and
// reports every group with two or more members. Group keys and member lists
// follow document order, so repeated runs over the same export produce
// byte-identical results.
func DetectDuplicates(tracks []Track, opts DuplicateOptions) []Finding {
	findings := collectGroups(tracks, DupSameLocation, func(t *Track) string {
		if t.LocationPath == "" {
			return ""
		}
		return pathKey(t.LocationPath)
	})

	identity := collectGroups(tracks, DupSameIdentity, func(t *Track) string {
		return IdentityKey(t.Artist, t.Name)
	})
	if opts.FuzzyMergeThreshold > 0 {
		identity = mergeSimilarGroups(identity, opts.FuzzyMergeThreshold)
	}
	findings = append(findings, identity...)

	findings = append(findings, collectGroups(tracks, DupSameSignature, signatureKey)...)

	log.Printf("%s groups=%d", duplicateLogPrefix, len(findings))
	return findings
}

// collectGroups buckets tracks by keyFn and emits one finding per key with 2+
// members. An explicit ordered key slice plus the map guarantees first-seen
// ordering instead of relying on map iteration.
func collectGroups(tracks []Track, dupType string, keyFn func(*Track) string) []Finding {
	var order []string
	members := make(map[string][]string)

	for i := range tracks {
		t := &tracks[i]
		key := keyFn(t)
		if key == "" {
			continue
		}
		if _, seen := members[key]; !seen {
			order = append(order, key)
		}
		members[key] = append(members[key], t.TrackID)
	}

	var findings []Finding
	for _, key := range order {
		ids := members[key]
		if len(ids) < 2 {
			continue
		}
		findings = append(findings, Finding{
			Kind:    FindingDuplicate,
			Subject: key,
			Members: ids,
			Detail: map[string]string{
				"type":  dupType,
				"count": strconv.Itoa(len(ids)),
			},
		})
	}
	return findings
}

// mergeSimilarGroups folds identity-key groups whose keys are close under
// Jaro-Winkler into the first group of each cluster. Member order is
// preserved; the absorbed group's key is recorded so the merge is auditable.
func mergeSimilarGroups(groups []Finding, threshold float32) []Finding {
	if len(groups) <= 1 {
		return groups
	}

	merged := make([]Finding, 0, len(groups))
	absorbed := make(map[int]bool)

	for i := 0; i < len(groups); i++ {
		if absorbed[i] {
			continue
		}
		current := groups[i]
		for j := i + 1; j < len(groups); j++ {
			if absorbed[j] {
				continue
			}
			sim, err := edlib.StringsSimilarity(current.Subject, groups[j].Subject, edlib.JaroWinkler)
			if err != nil || sim < threshold {
				continue
			}
			current.Members = append(current.Members, groups[j].Members...)
			current.Detail["count"] = strconv.Itoa(len(current.Members))
			if prev := current.Detail["merged_keys"]; prev != "" {
				current.Detail["merged_keys"] = prev + ", " + groups[j].Subject
			} else {
				current.Detail["merged_keys"] = groups[j].Subject
			}
			absorbed[j] = true
		}
		merged = append(merged, current)
	}
	return merged
}
