package backend

// Finding kinds. Every analysis pass reports its results as findings of one
// of these kinds; nothing else crosses a pass boundary.
const (
	FindingQuality            = "quality"
	FindingDuplicate          = "duplicate"
	FindingBrokenRef          = "broken_ref"
	FindingOrphan             = "orphan"
	FindingMissingFile        = "missing_file"
	FindingMissingInSecondary = "missing_in_secondary"
	FindingMissingInPrimary   = "missing_in_primary"
	FindingMetricDrift        = "metric_drift"
	FindingNoArtwork          = "no_artwork"
	FindingPlaceholderArt     = "placeholder_artwork"
	FindingTagDrift           = "tag_drift"
	FindingSampleRateDrift    = "samplerate_drift"
)

// Finding is one classified analysis result: a quality defect, a duplicate
// group, a broken playlist reference, a missing file, a cross-source diff.
// Findings reference tracks and playlists by identifier or normalized path
// only, never by pointer, so the record model and the finding model can be
// serialized independently. Findings never reference other findings.
type Finding struct {
	Kind    string            `json:"kind"`
	Subject string            `json:"subject"`
	Members []string          `json:"members,omitempty"`
	Detail  map[string]string `json:"detail,omitempty"`
}
