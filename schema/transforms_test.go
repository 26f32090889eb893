package schema

import (
	"reflect"
	"testing"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{name: "plain", in: "$69.00", want: 69},
		{name: "padded", in: "  $5.50 ", want: 5.5},
		{name: "too short", in: "$", wantErr: true},
		{name: "not numeric", in: "$abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCurrency(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCurrency: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseCurrency(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseValuePrice(t *testing.T) {
	got, err := ParseValuePrice("($84.00 value)")
	if err != nil {
		t.Fatalf("ParseValuePrice: %v", err)
	}
	if got != float64(84) {
		t.Fatalf("ParseValuePrice = %v, want 84", got)
	}

	if _, err := ParseValuePrice("($ val)"); err == nil {
		t.Fatalf("expected error for short input")
	}
}

func TestCleanOptionalText(t *testing.T) {
	got, err := CleanOptionalText("Color - None selected")
	if err != nil {
		t.Fatalf("CleanOptionalText: %v", err)
	}
	if got != nil {
		t.Fatalf("text containing None should become nil, got %v", got)
	}

	got, err = CleanOptionalText("  1 oz/  30 mL ")
	if err != nil {
		t.Fatalf("CleanOptionalText: %v", err)
	}
	if got != "1 oz/ 30 mL" {
		t.Fatalf("got %q", got)
	}
}

func TestCleanIngredients(t *testing.T) {
	in := "<b>Water</b><br>Glycerin<br>Disclaimer: list may change<br>This product is vegan<br>Dimethicone®<br><br>"

	got, err := CleanIngredients(in)
	if err != nil {
		t.Fatalf("CleanIngredients: %v", err)
	}
	want := []string{"Water", "Glycerin", "Dimethicone"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CleanIngredients = %v, want %v", got, want)
	}
}

func TestCleanIngredientsDropsLeadingDashSegments(t *testing.T) {
	in := "Aqua<br>-Parabens: none<br>*synthetic fragrances<br>Tocopherol"

	got, err := CleanIngredients(in)
	if err != nil {
		t.Fatalf("CleanIngredients: %v", err)
	}
	want := []string{"Aqua", "Tocopherol"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CleanIngredients = %v, want %v", got, want)
	}
}

func TestCategoryLevels(t *testing.T) {
	full := map[string]any{
		"displayName": "Foundation",
		"parentCategory": map[string]any{
			"displayName": "Face",
			"parentCategory": map[string]any{
				"displayName": "Makeup",
			},
		},
	}
	twoLevel := map[string]any{
		"displayName": "Candles",
		"parentCategory": map[string]any{
			"displayName": "Fragrance",
		},
	}
	oneLevel := map[string]any{
		"displayName": "Gifts",
	}

	tests := []struct {
		name string
		doc  map[string]any
		want [3]any
	}{
		{name: "three levels reversed", doc: full, want: [3]any{"Makeup", "Face", "Foundation"}},
		{name: "two levels", doc: twoLevel, want: [3]any{"Fragrance", "Candles", nil}},
		{name: "one level", doc: oneLevel, want: [3]any{"Gifts", nil, nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for level := 0; level < 3; level++ {
				got, err := CategoryLevel(level)(tt.doc)
				if err != nil {
					t.Fatalf("CategoryLevel(%d): %v", level, err)
				}
				if got != tt.want[level] {
					t.Fatalf("level %d = %v, want %v", level, got, tt.want[level])
				}
			}
		})
	}
}

func TestChildAggregates(t *testing.T) {
	doc := map[string]any{
		"regularChildSkus": []any{
			map[string]any{"listPrice": "$10.00"},
		},
		"onSaleChildSkus": []any{
			map[string]any{"listPrice": "$10.00", "salePrice": "$8.00"},
		},
	}

	count, err := ChildCount(doc)
	if err != nil {
		t.Fatalf("ChildCount: %v", err)
	}
	if count != int64(2) {
		t.Fatalf("count = %v, want 2", count)
	}

	max, err := ChildMaxPrice(doc)
	if err != nil {
		t.Fatalf("ChildMaxPrice: %v", err)
	}
	if max != float64(10) {
		t.Fatalf("max = %v, want 10", max)
	}

	min, err := ChildMinPrice(doc)
	if err != nil {
		t.Fatalf("ChildMinPrice: %v", err)
	}
	if min != float64(8) {
		t.Fatalf("min = %v, want 8", min)
	}
}

func TestChildAggregatesEmpty(t *testing.T) {
	doc := map[string]any{}

	count, err := ChildCount(doc)
	if err != nil {
		t.Fatalf("ChildCount: %v", err)
	}
	if count != int64(0) {
		t.Fatalf("count = %v, want 0", count)
	}

	max, err := ChildMaxPrice(doc)
	if err != nil {
		t.Fatalf("ChildMaxPrice: %v", err)
	}
	if max != nil {
		t.Fatalf("max over no children should be nil, got %v", max)
	}
}

func TestChildAggregatesBadPrice(t *testing.T) {
	doc := map[string]any{
		"regularChildSkus": []any{
			map[string]any{"listPrice": "$oops"},
		},
	}

	if _, err := ChildMaxPrice(doc); err == nil {
		t.Fatalf("expected error for malformed child price")
	}
}

func TestCleanReviewText(t *testing.T) {
	got, err := CleanReviewText("It's \"amazing\"\nreally")
	if err != nil {
		t.Fatalf("CleanReviewText: %v", err)
	}
	if got != "It’s “amazing“really" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateDate(t *testing.T) {
	got, err := TruncateDate("2022-06-23T14:04:17.000+00:00")
	if err != nil {
		t.Fatalf("TruncateDate: %v", err)
	}
	if got != "2022-06-23" {
		t.Fatalf("got %q", got)
	}

	got, err = TruncateDate("2022-06-23")
	if err != nil {
		t.Fatalf("TruncateDate: %v", err)
	}
	if got != "2022-06-23" {
		t.Fatalf("short input should pass through, got %q", got)
	}
}

func TestUnwrapHighlights(t *testing.T) {
	in := []any{
		map[string]any{"name": "Vegan"},
		map[string]any{"name": "Cruelty-Free™"},
		"junk entry",
	}

	got, err := UnwrapHighlights(in)
	if err != nil {
		t.Fatalf("UnwrapHighlights: %v", err)
	}
	want := []string{"Vegan", "Cruelty-Free"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UnwrapHighlights = %v, want %v", got, want)
	}
}

func TestUnwrapIDList(t *testing.T) {
	in := []any{
		map[string]any{"productId": "P1"},
		map[string]any{"productId": "P2"},
	}

	got, err := UnwrapIDList("productId")(in)
	if err != nil {
		t.Fatalf("UnwrapIDList: %v", err)
	}
	want := []string{"P1", "P2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UnwrapIDList = %v, want %v", got, want)
	}
}
