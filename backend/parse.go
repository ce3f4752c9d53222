package backend

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

const parseLogPrefix = "[Parse]"

// ErrMalformedCollection is returned when the export document is structurally
// broken (unterminated elements, unrecoverable decoder state). It is the only
// error class that aborts an analysis run: downstream passes assume a complete
// track universe, so a partial parse is never returned.
var ErrMalformedCollection = errors.New("malformed collection document")

// nodeFrame tracks one open playlist container while streaming. The stack of
// frames gives the full hierarchical path at close time without retaining the
// document tree.
type nodeFrame struct {
	name      string
	nodeType  string
	entries   int
	trackKeys []string
}

// ParseCollection streams a collection export and builds the Library record
// model in a single pass. The document is consumed token by token, so peak
// memory is bounded by nesting depth plus the accumulated records, not by
// document size.
//
// A Track is materialized at the close of each TRACK element under the
// COLLECTION container; attributes are read defensively, with absent or
// malformed numerics coerced to 0. A Playlist is materialized at the close of
// each NODE under PLAYLISTS that has a declared entry count or captured
// member references. Playlists are de-duplicated by hierarchical path, first
// occurrence wins.
func ParseCollection(r io.Reader) (*Library, error) {
	dec := xml.NewDecoder(r)
	lib := newLibrary()

	var (
		inCollection bool
		inPlaylists  bool
		stack        []nodeFrame
		seenPaths    = make(map[string]bool)
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCollection, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			tag := strings.ToUpper(t.Name.Local)
			switch {
			case tag == "COLLECTION":
				inCollection = true

			case tag == "PLAYLISTS":
				inPlaylists = true

			case inCollection && tag == "TRACK":
				lib.addTrack(trackFromAttrs(t.Attr))
				// Drop the element's subtree (tempo grid, cue markers);
				// everything we need is in the attributes.
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrMalformedCollection, err)
				}

			case inPlaylists && tag == "NODE":
				attrs := attrMap(t.Attr)
				stack = append(stack, nodeFrame{
					name:     attrs["Name"],
					nodeType: attrs["Type"],
					entries:  coerceInt(attrs["Entries"]),
				})

			case inPlaylists && tag == "TRACK":
				if len(stack) > 0 {
					if key := attrMap(t.Attr)["Key"]; key != "" {
						top := &stack[len(stack)-1]
						top.trackKeys = append(top.trackKeys, key)
					}
				}
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrMalformedCollection, err)
				}
			}

		case xml.EndElement:
			tag := strings.ToUpper(t.Name.Local)
			switch {
			case tag == "COLLECTION":
				inCollection = false

			case tag == "PLAYLISTS":
				inPlaylists = false

			case inPlaylists && tag == "NODE" && len(stack) > 0:
				frame := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if frame.entries == 0 && len(frame.trackKeys) == 0 {
					continue // structural folder, not a playlist
				}
				path := nodePath(stack, frame.name)
				// First occurrence wins: exports are assumed append-only and
				// the first definition of a path is canonical.
				if seenPaths[path] {
					continue
				}
				seenPaths[path] = true
				entries := frame.entries
				if entries == 0 {
					entries = len(frame.trackKeys)
				}
				lib.Playlists = append(lib.Playlists, Playlist{
					Path:      path,
					Name:      frame.name,
					NodeType:  frame.nodeType,
					Entries:   entries,
					TrackKeys: frame.trackKeys,
				})
			}
		}
	}

	log.Printf("%s tracks=%d playlists=%d", parseLogPrefix, len(lib.Tracks), len(lib.Playlists))
	return lib, nil
}

// nodePath joins the open ancestor names and the closing node's own name into
// a root-relative slash path. The synthetic ROOT node is excluded.
func nodePath(stack []nodeFrame, name string) string {
	var names []string
	for _, f := range stack {
		if f.name != "" && f.name != "ROOT" {
			names = append(names, f.name)
		}
	}
	if name != "" && name != "ROOT" {
		names = append(names, name)
	}
	return strings.Join(names, "/")
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

// trackFromAttrs builds a Track from a TRACK element's attributes. Unknown
// attributes are ignored and missing ones coerce to zero values, so the
// parser tolerates any export variant.
func trackFromAttrs(attrs []xml.Attr) Track {
	a := attrMap(attrs)
	loc := a["Location"]
	if loc == "" {
		loc = a["location"]
	}
	return Track{
		TrackID:      a["TrackID"],
		Name:         a["Name"],
		Artist:       a["Artist"],
		Album:        a["Album"],
		Remixer:      a["Remixer"],
		Mix:          a["Mix"],
		Label:        a["Label"],
		Genre:        a["Genre"],
		Year:         coerceInt(a["Year"]),
		DateAdded:    a["DateAdded"],
		BPM:          coerceFloat(a["AverageBpm"]),
		Key:          a["Tonality"],
		Kind:         a["Kind"],
		Size:         coerceInt64(a["Size"]),
		Duration:     coerceInt(a["TotalTime"]),
		BitRate:      coerceInt(a["BitRate"]),
		SampleRate:   coerceInt(a["SampleRate"]),
		Rating:       a["Rating"],
		PlayCount:    coerceInt(a["PlayCount"]),
		Comments:     a["Comments"],
		LocationURL:  loc,
		LocationPath: NormalizeLocation(loc),
	}
}
