package labreport

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/labex-extractor/constants"
)

func TestExtractHeaderScenario(t *testing.T) {
	rules := ProfileFor(constants.LABEXIA).Fields
	got := ExtractHeader("Dénomination : Saumon fumé\nConditionnement : 200g\n", rules)

	want := Header{
		{Label: "Dénomination", Value: "Saumon fumé", Found: true},
		{Label: "Conditionnement", Value: "200g", Found: true},
		{Label: "Code produit client"},
		{Label: "Nombre d'uvc analysées"},
		{Label: "Numéro bon de commande"},
		{Label: "Famille de produit"},
		{Label: "N° client"},
		{Label: "Lot"},
		{Label: "Echantillon reçu le"},
		{Label: "Date limite de consommation"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractHeader() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractHeaderValues(t *testing.T) {
	tests := []struct {
		name   string
		family constants.Family
		text   string
		label  string
		want   string
		found  bool
	}{
		{
			name:   "empty value does not swallow the next line",
			family: constants.LABECarrefour,
			text:   "Lot :\nFournisseur : ACME\n",
			label:  "Lot",
		},
		{
			name:   "next label still found",
			family: constants.LABECarrefour,
			text:   "Lot :\nFournisseur : ACME\n",
			label:  "Fournisseur",
			want:   "ACME",
			found:  true,
		},
		{
			name:   "date value",
			family: constants.LABEXIA,
			text:   "Echantillon reçu le : 12/03/2024 à 10h\n",
			label:  "Echantillon reçu le",
			want:   "12/03/2024",
			found:  true,
		},
		{
			name:   "malformed date is absent",
			family: constants.LABEXIA,
			text:   "Echantillon reçu le : inconnu\n",
			label:  "Echantillon reçu le",
		},
		{
			name:   "degree label",
			family: constants.LABEXIA,
			text:   "N° client : 4411\n",
			label:  "N° client",
			want:   "4411",
			found:  true,
		},
		{
			name:   "degree label after normalization",
			family: constants.LABEXIA,
			text:   "N  client : 4411\n",
			label:  "N° client",
			want:   "4411",
			found:  true,
		},
		{
			name:   "typographic apostrophe",
			family: constants.LABEXIA,
			text:   "Nombre d’uvc analysées : 3\n",
			label:  "Nombre d'uvc analysées",
			want:   "3",
			found:  true,
		},
		{
			name:   "first match wins",
			family: constants.LABEXIA,
			text:   "Lot : A\nLot : B\n",
			label:  "Lot",
			want:   "A",
			found:  true,
		},
		{
			name:   "trailing space trimmed",
			family: constants.LABEXIA,
			text:   "Conditionnement :  sous vide   \n",
			label:  "Conditionnement",
			want:   "sous vide",
			found:  true,
		},
		{
			name:   "dlc abbreviation",
			family: constants.LABEXIA,
			text:   "DLC : 30/04/2024\n",
			label:  "Date limite de consommation",
			want:   "30/04/2024",
			found:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := ExtractHeader(tc.text, ProfileFor(tc.family).Fields)
			got, found := h.Get(tc.label)
			if got != tc.want || found != tc.found {
				t.Errorf("Get(%q) = (%q, %v), want (%q, %v)", tc.label, got, found, tc.want, tc.found)
			}
		})
	}
}

func TestExtractHeaderCompleteness(t *testing.T) {
	texts := []string{
		"",
		"Dénomination : x\nLot : y\nFournisseur : z\nHorodatage : 1\n",
		"garbage\n: : :\n",
	}
	for _, family := range []constants.Family{constants.LABEXIA, constants.LABECarrefour} {
		p := ProfileFor(family)
		want := make([]string, len(p.Fields))
		for i, f := range p.Fields {
			want[i] = f.Label
		}
		for _, text := range texts {
			h := ExtractHeader(text, p.Fields)
			got := make([]string, len(h))
			for i, f := range h {
				got[i] = f.Label
				if !f.Found && f.Value != "" {
					t.Errorf("absent field %q carries value %q", f.Label, f.Value)
				}
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%s labels mismatch (-want +got):\n%s", family, diff)
			}
		}
	}
}

func TestHeaderMissing(t *testing.T) {
	h := Header{
		{Label: "Lot", Value: "1", Found: true},
		{Label: "Fournisseur"},
	}
	if diff := cmp.Diff([]string{"Fournisseur"}, h.Missing()); diff != "" {
		t.Errorf("Missing() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"Lot": "1", "Fournisseur": ""}, h.Map()); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}
}
