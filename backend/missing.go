package backend

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const relinkLogPrefix = "[Relink]"

// RelinkIndex maps lower-cased filenames to the first full path discovered
// under the relink root. Only filenames are indexed, not full paths: a moved
// library keeps its filenames even when its directory layout changes.
type RelinkIndex map[string]string

// BuildRelinkIndex walks root once, recursively, recording the first path
// seen for each filename. Unreadable subtrees are skipped rather than failing
// the walk; an error is returned only when the root itself is unusable.
func BuildRelinkIndex(root string) (RelinkIndex, error) {
	index := make(RelinkIndex)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d == nil {
				// The root itself failed to stat.
				return err
			}
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if _, ok := index[name]; !ok {
			index[name] = path
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("%s indexed %d filenames under %s", relinkLogPrefix, len(index), root)
	return index, nil
}

// ResolveFileExistence checks on-disk presence of every track's normalized
// path and emits a missing-file finding for each absent one. When musicRoot
// is non-empty a relink index is built first and a same-filename candidate is
// attached as a suggestion; the suggestion is never acted on here.
//
// This is the only analysis pass permitted to touch the filesystem for
// presence checks. Stat failures of any kind (not found, access denied) are
// recorded as missing rather than propagated.
func ResolveFileExistence(tracks []Track, musicRoot string) []Finding {
	var index RelinkIndex
	if musicRoot != "" {
		idx, err := BuildRelinkIndex(musicRoot)
		if err != nil {
			log.Printf("%s index unavailable (%v), suggestions disabled", relinkLogPrefix, err)
		} else {
			index = idx
		}
	}

	var findings []Finding
	for i := range tracks {
		t := &tracks[i]
		if t.LocationPath != "" {
			if _, err := os.Stat(t.LocationPath); err == nil {
				continue
			}
		}
		detail := map[string]string{
			"artist":   t.Artist,
			"title":    t.Name,
			"location": t.LocationPath,
		}
		if index != nil && t.LocationPath != "" {
			name := strings.ToLower(filepath.Base(t.LocationPath))
			if candidate, ok := index[name]; ok {
				detail["relink"] = candidate
			}
		}
		findings = append(findings, Finding{
			Kind:    FindingMissingFile,
			Subject: t.TrackID,
			Detail:  detail,
		})
	}
	return findings
}
