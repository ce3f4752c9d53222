package backend

import (
	"strconv"
	"strings"
)

// Track is one audio item from the collection export. Tracks are built once
// during the streaming parse and never mutated afterwards.
type Track struct {
	TrackID      string  `json:"track_id"`
	Name         string  `json:"name"`
	Artist       string  `json:"artist"`
	Album        string  `json:"album"`
	Remixer      string  `json:"remixer"`
	Mix          string  `json:"mix"`
	Label        string  `json:"label"`
	Genre        string  `json:"genre"`
	Year         int     `json:"year"`
	DateAdded    string  `json:"date_added"`
	BPM          float64 `json:"bpm"`
	Key          string  `json:"key"`
	Kind         string  `json:"kind"`
	Size         int64   `json:"size"`
	Duration     int     `json:"duration"`
	BitRate      int     `json:"bitrate"`
	SampleRate   int     `json:"sample_rate"`
	Rating       string  `json:"rating"`
	PlayCount    int     `json:"play_count"`
	Comments     string  `json:"comments"`
	LocationURL  string  `json:"location_url"`
	LocationPath string  `json:"location_path"`
}

// Playlist is one container node from the playlist hierarchy that carries
// track memberships. TrackKeys are the member identifiers as referenced by
// the export; they may or may not resolve to a known Track.
type Playlist struct {
	Path      string   `json:"path"`
	Name      string   `json:"name"`
	NodeType  string   `json:"node_type"`
	Entries   int      `json:"entries"`
	TrackKeys []string `json:"track_keys"`
}

// Library holds every Track and Playlist loaded from one export. It is the
// only owner of the records; analysis passes read it and emit findings that
// reference records by identifier or normalized path, never by pointer.
type Library struct {
	Tracks    []Track
	Playlists []Playlist

	// byID maps track identifier to an index into Tracks. Duplicate
	// identifiers in the export are last-write-wins, matching a forgiving
	// import of an external document.
	byID map[string]int
}

func newLibrary() *Library {
	return &Library{byID: make(map[string]int)}
}

func (l *Library) addTrack(t Track) {
	l.Tracks = append(l.Tracks, t)
	if t.TrackID != "" {
		l.byID[t.TrackID] = len(l.Tracks) - 1
	}
}

// TrackByID resolves a track identifier against the loaded universe.
func (l *Library) TrackByID(id string) (*Track, bool) {
	i, ok := l.byID[id]
	if !ok {
		return nil, false
	}
	return &l.Tracks[i], true
}

// HasTrack reports whether an identifier resolves to a loaded track.
func (l *Library) HasTrack(id string) bool {
	_, ok := l.byID[id]
	return ok
}

// coerceInt parses an attribute value as an integer, accepting float
// spellings ("120.0") and returning 0 for anything malformed or empty.
// Export attributes are best-effort data; a bad value must never fail a parse.
func coerceInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func coerceInt64(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// coerceFloat parses an attribute value as a float, returning 0.0 on failure.
func coerceFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// normWS collapses runs of whitespace to single spaces and trims the ends.
func normWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
