package backend

import (
	"crypto/sha1"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
	mewflac "github.com/mewkiz/flac"
)

const inspectLogPrefix = "[Inspect]"

// FileProbe is what one on-disk media file tells us: embedded artwork,
// embedded title/artist tags, and (for FLAC) the actual sample rate.
type FileProbe struct {
	HasArtwork   bool   `json:"has_artwork"`
	ArtworkSHA1  string `json:"artwork_sha1,omitempty"`
	ArtworkBytes int    `json:"artwork_bytes,omitempty"`
	Title        string `json:"title,omitempty"`
	Artist       string `json:"artist,omitempty"`
	SampleRate   int    `json:"sample_rate,omitempty"`
}

// InspectOptions configures the media inspection pass.
type InspectOptions struct {
	// CheckArtwork scans embedded pictures and reports files without any,
	// plus files whose art matches the configured placeholder image.
	CheckArtwork bool `json:"check_artwork"`

	// CheckTags compares the file's embedded title/artist against the
	// collection record and reports disagreement under identity
	// normalization.
	CheckTags bool `json:"check_tags"`

	// PlaceholderSHA1 is the hex SHA-1 of a known placeholder cover image.
	// Empty disables placeholder detection.
	PlaceholderSHA1 string `json:"placeholder_sha1,omitempty"`

	// CacheKey scopes the probe cache (normally the collection document
	// path). Empty disables caching.
	CacheKey string `json:"cache_key,omitempty"`
}

// InspectFiles probes every track whose file exists on disk and reports
// artwork and tag findings. Files that are missing, unreadable, or in a
// format none of the probes understand are skipped; this pass classifies what
// it can read and nothing more.
func InspectFiles(tracks []Track, opts InspectOptions) []Finding {
	if !opts.CheckArtwork && !opts.CheckTags {
		return nil
	}

	cache := map[string]InspectCacheEntry{}
	if opts.CacheKey != "" {
		if loaded, err := LoadInspectCache(opts.CacheKey); err == nil {
			cache = loaded
		}
	}

	var findings []Finding
	probed, cacheHits := 0, 0
	for i := range tracks {
		t := &tracks[i]
		if t.LocationPath == "" {
			continue
		}
		info, err := os.Stat(t.LocationPath)
		if err != nil || info.IsDir() {
			continue // existence findings belong to the file-resolver pass
		}

		key := pathKey(t.LocationPath)
		var probe *FileProbe
		if entry, ok := cache[key]; ok && entry.Size == info.Size() && entry.ModTimeUnix == info.ModTime().Unix() && entry.Probe != nil {
			probe = entry.Probe
			cacheHits++
		} else {
			probe, err = probeFile(t.LocationPath)
			if err != nil || probe == nil {
				continue
			}
			probed++
			cache[key] = InspectCacheEntry{
				Path:        key,
				Size:        info.Size(),
				ModTimeUnix: info.ModTime().Unix(),
				Probe:       probe,
			}
		}

		findings = append(findings, probeFindings(t, probe, opts)...)
	}

	if opts.CacheKey != "" {
		if err := SaveInspectCache(opts.CacheKey, cache); err != nil {
			log.Printf("%s cache save failed: %v", inspectLogPrefix, err)
		}
	}
	log.Printf("%s probed=%d cached=%d findings=%d", inspectLogPrefix, probed, cacheHits, len(findings))
	return findings
}

func probeFindings(t *Track, probe *FileProbe, opts InspectOptions) []Finding {
	var findings []Finding

	if opts.CheckArtwork {
		if !probe.HasArtwork {
			findings = append(findings, Finding{
				Kind:    FindingNoArtwork,
				Subject: t.TrackID,
				Detail: map[string]string{
					"artist":   t.Artist,
					"title":    t.Name,
					"location": t.LocationPath,
				},
			})
		} else if opts.PlaceholderSHA1 != "" && strings.EqualFold(probe.ArtworkSHA1, opts.PlaceholderSHA1) {
			findings = append(findings, Finding{
				Kind:    FindingPlaceholderArt,
				Subject: t.TrackID,
				Detail: map[string]string{
					"location":  t.LocationPath,
					"art_sha1":  probe.ArtworkSHA1,
					"art_bytes": strconv.Itoa(probe.ArtworkBytes),
				},
			})
		}
	}

	if opts.CheckTags {
		var drifted []string
		if probe.Title != "" && t.Name != "" && normIdentity(probe.Title) != normIdentity(t.Name) {
			drifted = append(drifted, "Title")
		}
		if probe.Artist != "" && t.Artist != "" && normIdentity(probe.Artist) != normIdentity(t.Artist) {
			drifted = append(drifted, "Artist")
		}
		if len(drifted) > 0 {
			findings = append(findings, Finding{
				Kind:    FindingTagDrift,
				Subject: t.TrackID,
				Detail: map[string]string{
					"fields":      strings.Join(drifted, ", "),
					"location":    t.LocationPath,
					"file_title":  probe.Title,
					"file_artist": probe.Artist,
					"title":       t.Name,
					"artist":      t.Artist,
				},
			})
		}
		if probe.SampleRate > 0 && t.SampleRate > 0 && probe.SampleRate != t.SampleRate {
			findings = append(findings, Finding{
				Kind:    FindingSampleRateDrift,
				Subject: t.TrackID,
				Detail: map[string]string{
					"location":           t.LocationPath,
					"declared_rate":      strconv.Itoa(t.SampleRate),
					"actual_sample_rate": strconv.Itoa(probe.SampleRate),
				},
			})
		}
	}

	return findings
}

// probeFile reads one media file with the probe matching its extension:
// ID3v2 frames for MP3, metadata blocks for FLAC, generic tag parsing for
// everything else.
func probeFile(path string) (*FileProbe, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return probeMP3(path)
	case ".flac":
		return probeFLAC(path)
	default:
		return probeGeneric(path)
	}
}

func probeMP3(path string) (*FileProbe, error) {
	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	defer id3.Close()

	probe := &FileProbe{
		Title:  id3.Title(),
		Artist: id3.Artist(),
	}
	for _, frame := range id3.GetFrames(id3.CommonID("Attached picture")) {
		pic, ok := frame.(id3v2.PictureFrame)
		if !ok || len(pic.Picture) == 0 {
			continue
		}
		probe.setArtwork(pic.Picture)
		break
	}
	return probe, nil
}

func probeFLAC(path string) (*FileProbe, error) {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return nil, err
	}

	probe := &FileProbe{}
	for _, block := range f.Meta {
		switch block.Type {
		case goflac.Picture:
			pic, err := flacpicture.ParseFromMetaDataBlock(*block)
			if err != nil || len(pic.ImageData) == 0 {
				continue
			}
			if !probe.HasArtwork {
				probe.setArtwork(pic.ImageData)
			}
		case goflac.VorbisComment:
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				continue
			}
			if titles, err := cmt.Get(flacvorbis.FIELD_TITLE); err == nil && len(titles) > 0 {
				probe.Title = titles[0]
			}
			if artists, err := cmt.Get(flacvorbis.FIELD_ARTIST); err == nil && len(artists) > 0 {
				probe.Artist = artists[0]
			}
		}
	}

	// STREAMINFO carries the real sample rate, which the export may disagree
	// with after a re-encode.
	if stream, err := mewflac.ParseFile(path); err == nil {
		if stream.Info != nil {
			probe.SampleRate = int(stream.Info.SampleRate)
		}
		stream.Close()
	}
	return probe, nil
}

func probeGeneric(path string) (*FileProbe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, err
	}
	probe := &FileProbe{
		Title:  m.Title(),
		Artist: m.Artist(),
	}
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		probe.setArtwork(pic.Data)
	}
	return probe, nil
}

func (p *FileProbe) setArtwork(data []byte) {
	sum := sha1.Sum(data)
	p.HasArtwork = true
	p.ArtworkSHA1 = hex.EncodeToString(sum[:])
	p.ArtworkBytes = len(data)
}
