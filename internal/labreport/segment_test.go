package labreport

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSegment(t *testing.T) {
	text := "Lot : 1\nCHIMIE\nSel  M1\nConclusion\nConforme\n"
	got, err := Segment(text, defaultMarkers)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}

	want := Sections{
		GeneralInfo:      "Lot : 1\n",
		ChemicalAnalysis: "\nSel  M1\n",
		Conclusion:       "\nConforme\n",
		Markers:          defaultMarkers,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
	}
}

func TestSegmentReconstructs(t *testing.T) {
	inputs := []string{
		"CHIMIEConclusion",
		"a\nCHIMIE\nb\nConclusion\nc",
		"Dénomination : x\nCHIMIE\n\nConclusion\n",
		"head\nCHIMIE\nrows\nConclusion",
	}
	for _, in := range inputs {
		s, err := Segment(in, defaultMarkers)
		if err != nil {
			t.Fatalf("Segment(%q) error = %v", in, err)
		}
		if got := s.Reconstruct(); got != in {
			t.Errorf("Reconstruct() = %q, want %q", got, in)
		}
	}
}

func TestSegmentFirstOccurrence(t *testing.T) {
	text := "Info\nBIOCHIMIE x\nCHIMIE\nrows\nConclusion\nok\nConclusion\nagain"
	s, err := Segment(text, defaultMarkers)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if s.GeneralInfo != "Info\nBIOCHIMIE x\n" {
		t.Errorf("GeneralInfo = %q", s.GeneralInfo)
	}
	if s.ChemicalAnalysis != "\nrows\n" {
		t.Errorf("ChemicalAnalysis = %q", s.ChemicalAnalysis)
	}
	if s.Conclusion != "\nok\nConclusion\nagain" {
		t.Errorf("Conclusion = %q", s.Conclusion)
	}
}

func TestSegmentErrors(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		marker string
	}{
		{name: "no conclusion", text: "Lot : 1\nCHIMIE\nSel  M1\n", marker: "Conclusion"},
		{name: "no analysis", text: "Lot : 1\nConclusion\n", marker: "CHIMIE"},
		{name: "wrong order", text: "Conclusion\nCHIMIE\n", marker: "Conclusion"},
		{name: "empty", text: "", marker: "CHIMIE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Segment(tc.text, defaultMarkers)
			if !errors.Is(err, ErrSegmentation) {
				t.Fatalf("Segment() error = %v, want ErrSegmentation", err)
			}
			var segErr *SegmentationError
			if !errors.As(err, &segErr) {
				t.Fatalf("error %T is not a *SegmentationError", err)
			}
			if segErr.Marker != tc.marker {
				t.Errorf("Marker = %q, want %q", segErr.Marker, tc.marker)
			}
		})
	}
}
