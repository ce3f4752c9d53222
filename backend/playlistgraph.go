package backend

// ValidatePlaylistGraph cross-references playlist memberships against the
// track universe. A referenced identifier with no matching track is a broken
// reference; a track never referenced by any playlist is an orphan. Pure
// set-membership over the loaded records, nothing is mutated.
//
// Exactly one broken-reference finding is emitted per (playlist path, missing
// identifier) pair even when a playlist repeats the same entry.
func ValidatePlaylistGraph(lib *Library) (broken []Finding, orphans []Finding) {
	referenced := make(map[string]bool)
	reported := make(map[[2]string]bool)

	for _, p := range lib.Playlists {
		for _, key := range p.TrackKeys {
			referenced[key] = true
			if lib.HasTrack(key) {
				continue
			}
			pair := [2]string{p.Path, key}
			if reported[pair] {
				continue
			}
			reported[pair] = true
			broken = append(broken, Finding{
				Kind:    FindingBrokenRef,
				Subject: key,
				Detail:  map[string]string{"playlist": p.Path},
			})
		}
	}

	seen := make(map[string]bool)
	for i := range lib.Tracks {
		t := &lib.Tracks[i]
		if t.TrackID == "" || seen[t.TrackID] || referenced[t.TrackID] {
			continue
		}
		seen[t.TrackID] = true
		orphans = append(orphans, Finding{
			Kind:    FindingOrphan,
			Subject: t.TrackID,
			Detail: map[string]string{
				"artist":   t.Artist,
				"title":    t.Name,
				"location": t.LocationPath,
			},
		})
	}
	return broken, orphans
}
