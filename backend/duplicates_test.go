package backend

import "testing"

func findingsOfType(findings []Finding, dupType string) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Detail["type"] == dupType {
			out = append(out, f)
		}
	}
	return out
}

func TestDetectDuplicatesSameLocation(t *testing.T) {
	tracks := []Track{
		{TrackID: "1", LocationPath: "/music/track.mp3"},
		{TrackID: "2", LocationPath: "/Music/TRACK.mp3"},
		{TrackID: "3", LocationPath: "/music/other.mp3"},
	}
	groups := findingsOfType(DetectDuplicates(tracks, DuplicateOptions{}), DupSameLocation)
	if len(groups) != 1 {
		t.Fatalf("got %d location groups, want 1: %+v", len(groups), groups)
	}
	g := groups[0]
	if len(g.Members) != 2 || g.Members[0] != "1" || g.Members[1] != "2" {
		t.Errorf("members = %v, want [1 2] in document order", g.Members)
	}
	if g.Detail["count"] != "2" {
		t.Errorf("count = %q, want 2", g.Detail["count"])
	}
}

func TestDetectDuplicatesEmptyLocationSkipped(t *testing.T) {
	tracks := []Track{
		{TrackID: "1"},
		{TrackID: "2"},
	}
	if groups := findingsOfType(DetectDuplicates(tracks, DuplicateOptions{}), DupSameLocation); len(groups) != 0 {
		t.Fatalf("empty locations grouped: %+v", groups)
	}
}

func TestDetectDuplicatesSameIdentity(t *testing.T) {
	tracks := []Track{
		{TrackID: "1", Artist: "DJ One", Name: "Alpha (Original Mix)"},
		{TrackID: "2", Artist: "dj one", Name: "ALPHA [Extended]"},
		{TrackID: "3", Artist: "DJ One", Name: "Beta"},
	}
	groups := findingsOfType(DetectDuplicates(tracks, DuplicateOptions{}), DupSameIdentity)
	if len(groups) != 1 {
		t.Fatalf("got %d identity groups, want 1: %+v", len(groups), groups)
	}
	if len(groups[0].Members) != 2 {
		t.Errorf("members = %v, want tracks 1 and 2", groups[0].Members)
	}
}

// Tempo rounding conflates near-boundary values on purpose: 128.0 and 128.4
// both round to 128 and land in the same signature group.
func TestDetectDuplicatesSignatureRounding(t *testing.T) {
	tracks := []Track{
		{TrackID: "1", Artist: "A", Name: "T", Duration: 300, BPM: 128.0},
		{TrackID: "2", Artist: "A", Name: "T", Duration: 300, BPM: 128.4},
		{TrackID: "3", Artist: "A", Name: "T", Duration: 300, BPM: 129.0},
	}
	groups := findingsOfType(DetectDuplicates(tracks, DuplicateOptions{}), DupSameSignature)
	if len(groups) != 1 {
		t.Fatalf("got %d signature groups, want 1: %+v", len(groups), groups)
	}
	if len(groups[0].Members) != 2 || groups[0].Members[0] != "1" || groups[0].Members[1] != "2" {
		t.Errorf("members = %v, want [1 2]", groups[0].Members)
	}
}

func TestDetectDuplicatesIdentityWithoutSignature(t *testing.T) {
	tracks := []Track{
		{TrackID: "1", Artist: "DJ One", Name: "Alpha", LocationPath: "/a.mp3", Duration: 300, BPM: 128.0},
		{TrackID: "2", Artist: "DJ One", Name: "Alpha", LocationPath: "/b.mp3", Duration: 420, BPM: 128.4},
		{TrackID: "3", Artist: "DJ Two", Name: "Beta", LocationPath: "/c.mp3"},
	}
	findings := DetectDuplicates(tracks, DuplicateOptions{})
	identity := findingsOfType(findings, DupSameIdentity)
	if len(identity) != 1 || len(identity[0].Members) != 2 {
		t.Fatalf("identity groups = %+v, want one group of 2", identity)
	}
	// Durations differ, so the stricter signature definition does not group.
	if sig := findingsOfType(findings, DupSameSignature); len(sig) != 0 {
		t.Fatalf("signature groups = %+v, want none", sig)
	}
	if loc := findingsOfType(findings, DupSameLocation); len(loc) != 0 {
		t.Fatalf("distinct paths grouped: %+v", loc)
	}
}

// Every signature group must be contained in some identity group: tracks with
// no usable identity never form a signature group either.
func TestDetectDuplicatesSignatureSubsetOfIdentity(t *testing.T) {
	tracks := []Track{
		{TrackID: "1", Duration: 300, BPM: 128},
		{TrackID: "2", Duration: 300, BPM: 128},
	}
	findings := DetectDuplicates(tracks, DuplicateOptions{})
	if sig := findingsOfType(findings, DupSameSignature); len(sig) != 0 {
		t.Fatalf("identity-less tracks formed a signature group: %+v", sig)
	}
	if id := findingsOfType(findings, DupSameIdentity); len(id) != 0 {
		t.Fatalf("identity-less tracks formed an identity group: %+v", id)
	}
}

func TestDetectDuplicatesDeterministicOrder(t *testing.T) {
	tracks := []Track{
		{TrackID: "1", LocationPath: "/b.mp3"},
		{TrackID: "2", LocationPath: "/a.mp3"},
		{TrackID: "3", LocationPath: "/b.mp3"},
		{TrackID: "4", LocationPath: "/a.mp3"},
	}
	for run := 0; run < 5; run++ {
		groups := findingsOfType(DetectDuplicates(tracks, DuplicateOptions{}), DupSameLocation)
		if len(groups) != 2 {
			t.Fatalf("got %d groups, want 2", len(groups))
		}
		if groups[0].Subject != "/b.mp3" || groups[1].Subject != "/a.mp3" {
			t.Fatalf("run %d: group order not first-seen: %q, %q", run, groups[0].Subject, groups[1].Subject)
		}
	}
}

func TestMergeSimilarGroups(t *testing.T) {
	tracks := []Track{
		{TrackID: "1", Artist: "Above and Beyond", Name: "Sun and Moon"},
		{TrackID: "2", Artist: "Above and Beyond", Name: "Sun and Moon"},
		{TrackID: "3", Artist: "Above and Beyond", Name: "Sun and Moonn"},
		{TrackID: "4", Artist: "Above and Beyond", Name: "Sun and Moonn"},
	}
	// Without the merge, the spelling variants are two groups.
	base := findingsOfType(DetectDuplicates(tracks, DuplicateOptions{}), DupSameIdentity)
	if len(base) != 2 {
		t.Fatalf("got %d identity groups without merge, want 2: %+v", len(base), base)
	}

	merged := findingsOfType(DetectDuplicates(tracks, DuplicateOptions{FuzzyMergeThreshold: 0.9}), DupSameIdentity)
	if len(merged) != 1 {
		t.Fatalf("got %d identity groups with merge, want 1: %+v", len(merged), merged)
	}
	g := merged[0]
	if len(g.Members) != 4 {
		t.Errorf("members = %v, want all four", g.Members)
	}
	if g.Detail["merged_keys"] == "" {
		t.Error("merged group does not record the absorbed key")
	}
	if g.Detail["count"] != "4" {
		t.Errorf("count = %q, want 4", g.Detail["count"])
	}
}

func TestIdentityKeyNormalization(t *testing.T) {
	a := IdentityKey("DJ One", "Alpha (Original Mix)")
	b := IdentityKey("dj  one", "alpha")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	if IdentityKey("", "") != "" {
		t.Fatal("empty artist and title must yield an empty key")
	}
	if IdentityKey("", "Alpha") == "" {
		t.Fatal("title alone should still produce a key")
	}
}
