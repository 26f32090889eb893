package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var glyphReplacer = strings.NewReplacer("®", "", "™", "", " ", " ", " ", " ")

func cleanString(s string) string {
	s = glyphReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// CleanText trims whitespace, strips registered/trademark glyphs, and
// collapses internal space runs. For display names and other single-line
// text.
func CleanText(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	return cleanString(s), nil
}

// CleanOptionalText is CleanText for fields the upstream API fills with the
// literal string "None" when absent.
func CleanOptionalText(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	if strings.Contains(s, "None") {
		return nil, nil
	}
	return cleanString(s), nil
}

// ParseCurrency converts "$84.50" to 84.50 by stripping the one-character
// currency prefix. A non-numeric remainder fails the record.
func ParseCurrency(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return nil, fmt.Errorf("price %q too short", s)
	}
	f, err := strconv.ParseFloat(s[1:], 64)
	if err != nil {
		return nil, fmt.Errorf("price %q is not numeric", s)
	}
	return f, nil
}

// ParseValuePrice converts "($84.50 value)" to 84.50 by stripping the fixed
// two-character prefix and seven-character suffix.
func ParseValuePrice(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	s = strings.TrimSpace(s)
	if len(s) < 10 {
		return nil, fmt.Errorf("value price %q too short", s)
	}
	f, err := strconv.ParseFloat(s[2:len(s)-7], 64)
	if err != nil {
		return nil, fmt.Errorf("value price %q is not numeric", s)
	}
	return f, nil
}

var (
	ingredientTagPattern   = regexp.MustCompile(`<b>|</b>|<br>|</br>|<br />|<BR>|<p>|</p>|<span>|</span>|</a>|<a`)
	ingredientStripPattern = regexp.MustCompile(`<[^>]*>|\n|®|™`)
	ingredientSpaceStrip   = strings.NewReplacer(" ", "", " ", "")
)

// Boilerplate segment prefixes observed in upstream ingredient text:
// disclaimers, marketing blurbs, and usage warnings that are not ingredients.
var boilerplatePrefixes = []string{
	"-", "—", "–", "Before using", "Clean at Sephora prod", "Disclaimer",
	"DISCLA", "Please", "Acrylates", "Formulated without", "Warning",
	"Highlighted", "Penetrates", "All HUM", "The ingredients that",
	"PRODUCT ING", "Ingredient list", "All ingred", "Product ingred",
	"Sulfates", "Free of artificial", "As part", "This", "*", "(*", "+",
	"The calculation", "(1) the synthetic", "and", "(2) the", ", Petrolatum",
	"Fresh prod", "Acqua di Parma",
}

func hasBoilerplatePrefix(s string) bool {
	for _, p := range boilerplatePrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// CleanIngredients turns upstream rich text into an ordered list of
// ingredient segments: a fixed tag set becomes a sentinel separator, all
// remaining tags and glyphs are stripped, and boilerplate-prefixed or empty
// segments are dropped.
func CleanIngredients(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}

	s = ingredientTagPattern.ReplaceAllString(s, "~")
	s = ingredientStripPattern.ReplaceAllString(s, "")
	s = ingredientSpaceStrip.Replace(s)

	out := make([]string, 0)
	for _, seg := range strings.Split(s, "~") {
		seg = strings.TrimSpace(seg)
		if seg == "" || hasBoilerplatePrefix(seg) {
			continue
		}
		out = append(out, seg)
	}
	return out, nil
}

// CategoryLevel returns a transform extracting one of the three flattened
// category names (0 = primary, 1 = secondary, 2 = tertiary) from the nested
// parentCategory chain.
func CategoryLevel(level int) Transform {
	return func(v any) (any, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected category object, got %T", v)
		}
		return flattenCategories(m)[level], nil
	}
}

// flattenCategories collects the display names of the up-to-three-level
// category chain in leaf-to-root order and assigns them positionally.
//
// The null-count branching is asymmetric on purpose: it reproduces the
// observed behavior of the upstream consumer, which downstream tables depend
// on. Do not "fix" it.
func flattenCategories(m map[string]any) [3]any {
	names := collectCategoryNames(m, 1)

	nulls := 0
	for _, n := range names {
		if n == nil {
			nulls++
		}
	}

	switch {
	case len(names) == 3 && nulls == 0:
		return [3]any{names[2], names[1], names[0]}
	case len(names) == 3 && nulls == 1:
		return [3]any{names[1], names[0], names[2]}
	default:
		var out [3]any
		if len(names) > 0 {
			out[0] = names[0]
		}
		if len(names) > 1 {
			out[1] = names[1]
		}
		return out
	}
}

// collectCategoryNames yields the display name of each level followed by its
// parent chain, emitting an explicit nil when a level or its parent link is
// absent. Depth is capped at three levels.
func collectCategoryNames(m map[string]any, depth int) []any {
	names := make([]any, 0, 3)
	if s, ok := m["displayName"].(string); ok {
		names = append(names, s)
	} else {
		names = append(names, nil)
	}
	if depth >= 3 {
		return names
	}
	if parent, ok := m["parentCategory"].(map[string]any); ok {
		names = append(names, collectCategoryNames(parent, depth+1)...)
	} else {
		names = append(names, nil)
	}
	return names
}

func childSKULists(doc map[string]any) (regular, onSale []any) {
	regular, _ = doc["regularChildSkus"].([]any)
	onSale, _ = doc["onSaleChildSkus"].([]any)
	return regular, onSale
}

func childPriceSet(doc map[string]any) (map[float64]struct{}, error) {
	regular, onSale := childSKULists(doc)
	prices := make(map[float64]struct{})
	for _, list := range [][]any{regular, onSale} {
		for _, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{"listPrice", "salePrice"} {
				s, ok := m[key].(string)
				if !ok {
					continue
				}
				p, err := ParseCurrency(s)
				if err != nil {
					return nil, fmt.Errorf("child sku %s: %w", key, err)
				}
				prices[p.(float64)] = struct{}{}
			}
		}
	}
	return prices, nil
}

// ChildCount sums the lengths of the regular and on-sale child SKU lists.
func ChildCount(v any) (any, error) {
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected document, got %T", v)
	}
	regular, onSale := childSKULists(doc)
	return int64(len(regular) + len(onSale)), nil
}

// ChildMaxPrice returns the maximum across all child list/sale prices, or nil
// when there are none.
func ChildMaxPrice(v any) (any, error) {
	return childPriceBound(v, func(a, b float64) bool { return a > b })
}

// ChildMinPrice returns the minimum across all child list/sale prices, or nil
// when there are none.
func ChildMinPrice(v any) (any, error) {
	return childPriceBound(v, func(a, b float64) bool { return a < b })
}

func childPriceBound(v any, better func(a, b float64) bool) (any, error) {
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected document, got %T", v)
	}
	prices, err := childPriceSet(doc)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, nil
	}
	var bound float64
	first := true
	for p := range prices {
		if first || better(p, bound) {
			bound = p
			first = false
		}
	}
	return bound, nil
}

// UnwrapIDList returns a transform reducing a list of single-field objects to
// the ordered list of that field's string values.
func UnwrapIDList(key string) Transform {
	return func(v any) (any, error) {
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected list, got %T", v)
		}
		out := make([]string, 0, len(list))
		for _, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := m[key].(string); ok {
				out = append(out, s)
			}
		}
		return out, nil
	}
}

// UnwrapHighlights reduces the highlights list to its cleaned names.
func UnwrapHighlights(v any) (any, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]string, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := m["name"].(string); ok {
			out = append(out, cleanString(s))
		}
	}
	return out, nil
}

var reviewTextReplacer = strings.NewReplacer(
	"'", "’",
	"\n", "",
	`"`, "“",
	" ", "",
	" ", "",
)

// CleanReviewText normalizes quotes and strips newlines and exotic spaces
// from free-form review text, matching the sink's quoting expectations.
func CleanReviewText(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	return reviewTextReplacer.Replace(s), nil
}

// TruncateDate reduces an ISO timestamp ("2022-06-23T14:04:17.000+00:00") to
// its date part.
func TruncateDate(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	if len(s) > 10 {
		s = s[:10]
	}
	return s, nil
}
