package labreport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSegmentation is matched by every *SegmentationError.
var ErrSegmentation = errors.New("labreport: report segmentation failed")

// SegmentationError reports that the section markers could not be found in order.
type SegmentationError struct {
	// Marker is the heading that could not be located.
	Marker string
	// After is the marker it had to follow, empty for the first one.
	After string
}

func (e *SegmentationError) Error() string {
	if e.After != "" {
		return fmt.Sprintf("labreport: marker %q not found after %q", e.Marker, e.After)
	}
	return fmt.Sprintf("labreport: marker %q not found", e.Marker)
}

func (e *SegmentationError) Is(target error) bool { return target == ErrSegmentation }

// Sections are the three zones of a normalized report.
type Sections struct {
	GeneralInfo      string
	ChemicalAnalysis string
	Conclusion       string

	Markers Markers
}

// Reconstruct reinserts the markers between the zones.
func (s Sections) Reconstruct() string {
	return s.GeneralInfo + s.Markers.Analysis + s.ChemicalAnalysis + s.Markers.Conclusion + s.Conclusion
}

// Segment splits text at the first analysis marker and at the first
// conclusion marker that follows it.
func Segment(text string, m Markers) (Sections, error) {
	i := indexMarker(text, m.Analysis)
	if i < 0 {
		return Sections{}, &SegmentationError{Marker: m.Analysis}
	}
	general, rest := text[:i], text[i+len(m.Analysis):]

	j := indexMarker(rest, m.Conclusion)
	if j < 0 {
		return Sections{}, &SegmentationError{Marker: m.Conclusion, After: m.Analysis}
	}

	return Sections{
		GeneralInfo:      general,
		ChemicalAnalysis: rest[:j],
		Conclusion:       rest[j+len(m.Conclusion):],
		Markers:          m,
	}, nil
}

// indexMarker finds the first occurrence of marker that is not the tail of a longer word.
func indexMarker(s, marker string) int {
	if marker == "" {
		return -1
	}
	off := 0
	for {
		i := strings.Index(s[off:], marker)
		if i < 0 {
			return -1
		}
		i += off
		if !gluedToWord(s[:i]) {
			return i
		}
		off = i + len(marker)
	}
}
