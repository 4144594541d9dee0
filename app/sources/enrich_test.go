package sources

import (
	"reflect"
	"testing"
	"unicode/utf8"
)

func TestExtractEntitiesOrgSuffix(t *testing.T) {
	entities := ExtractEntities("Moody's downgraded XYZ Corp on rising debt")

	var foundOrg bool
	for _, e := range entities {
		if e.Type == "ORG" && e.Name == "XYZ Corp" {
			foundOrg = true
			if e.Confidence != 0.7 {
				t.Errorf("expected org confidence 0.7, got %v", e.Confidence)
			}
		}
	}
	if !foundOrg {
		t.Errorf("expected ORG entity \"XYZ Corp\", got %v", entities)
	}
}

func TestExtractEntitiesWellKnownOrg(t *testing.T) {
	entities := ExtractEntities("fitch affirms the outlook")

	var found bool
	for _, e := range entities {
		if e.Type == "ORG" && e.Name == "Fitch" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the allow-listed org with normalized casing, got %v", entities)
	}
}

func TestExtractEntitiesTicker(t *testing.T) {
	entities := ExtractEntities("Shares of AAPL rose on Monday")

	var found bool
	for _, e := range entities {
		if e.Type == "TICKER" && e.Name == "AAPL" {
			found = true
			if e.Confidence != 0.8 {
				t.Errorf("expected ticker confidence 0.8, got %v", e.Confidence)
			}
		}
	}
	if !found {
		t.Errorf("expected TICKER entity for AAPL, got %v", entities)
	}

	// Lowercase and numeric tokens never qualify.
	for _, e := range ExtractEntities("the debt grew by 1234 points") {
		if e.Type == "TICKER" {
			t.Errorf("unexpected ticker entity %v", e)
		}
	}
}

func TestExtractEntitiesMoney(t *testing.T) {
	entities := ExtractEntities("The deal is worth $4.5 billion in total")

	var found bool
	for _, e := range entities {
		if e.Type == "MONEY" {
			found = true
			if e.Name == "" || e.Name[0] != '$' {
				t.Errorf("expected money span starting with $, got %q", e.Name)
			}
		}
	}
	if !found {
		t.Errorf("expected MONEY entity, got %v", entities)
	}
}

func TestExtractEntitiesMoneyRuneBoundary(t *testing.T) {
	// The fixed-width span would cut the second euro sign mid-sequence.
	entities := ExtractEntities("$12 €€€€ in mixed currencies")

	var found bool
	for _, e := range entities {
		if e.Type == "MONEY" {
			found = true
			if !utf8.ValidString(e.Name) {
				t.Errorf("money span is not valid UTF-8: %q", e.Name)
			}
			if e.Name != "$12 €" {
				t.Errorf("expected span clamped to a rune boundary, got %q", e.Name)
			}
		}
	}
	if !found {
		t.Error("expected MONEY entity")
	}
}

func TestExtractEntitiesDeterministic(t *testing.T) {
	text := "Goldman cut AAPL to neutral, sees $180 target for Apple Inc."

	first := ExtractEntities(text)
	second := ExtractEntities(text)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction is not deterministic:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestGenerateTags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"credit downgrade",
			"Moody's downgraded XYZ Corp debt rating",
			[]string{"credit_rating", "negative_sentiment"},
		},
		{
			"earnings beat",
			"Quarterly earnings show strong profit growth",
			[]string{"earnings", "positive_sentiment"},
		},
		{
			"fed policy",
			"Federal Reserve holds interest rate steady",
			[]string{"monetary_policy"},
		},
		{
			"merger",
			"Board approves merger with rival",
			[]string{"m_and_a"},
		},
		{
			"no matches",
			"The weather was pleasant today",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateTags(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GenerateTags(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestGenerateTagsDeterministicOrder(t *testing.T) {
	text := "Stock declines after earnings miss, credit rating under review"

	first := GenerateTags(text)
	for i := 0; i < 10; i++ {
		if got := GenerateTags(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("tag order changed between calls: %v vs %v", first, got)
		}
	}
}

func TestNewsIDStable(t *testing.T) {
	a := newsID("reuters", "https://example.com/story Title")
	b := newsID("reuters", "https://example.com/story Title")
	c := newsID("reuters", "https://example.com/other Title")

	if a != b {
		t.Errorf("same input produced different ids: %q vs %q", a, b)
	}
	if a == c {
		t.Errorf("different inputs produced the same id: %q", a)
	}
	if len(a) != len("reuters-")+16 {
		t.Errorf("unexpected id shape: %q", a)
	}
}
