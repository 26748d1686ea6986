/*
Package weight parses the free-form weight strings stored on items.

PURPOSE:
  Items carry their weight as whatever the user typed: "5 gram", "2½ sk",
  "10gr", "1/2 suku". Reports need a numeric total per unit, so this package
  turns such a string into a (magnitude, unit) pair.

GRAMMAR (single pass, left to right, after stripping the unit):
  digit            -> total = total*10 + digit
  vulgar fraction  -> total += glyph value, stop
  other character  -> a denominator follows
  digit after that -> total = total / digit, stop

  Only single-digit denominators are understood: "1/12 gr" is 1/1. Reports
  depend on this exact truncation, so it is kept.

UNITS:
  gram, gr, suku, sk (checked in that order against the end of the string).
  Anything else is unparseable and contributes nothing to totals.
*/
package weight

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Units are the recognized suffixes, in match order.
var Units = []string{"gram", "gr", "suku", "sk"}

var glyphs = map[rune]decimal.Decimal{
	'½': decimal.RequireFromString("0.5"),
	'⅓': decimal.RequireFromString("0.33"),
	'⅔': decimal.RequireFromString("0.67"),
	'¼': decimal.RequireFromString("0.25"),
	'¾': decimal.RequireFromString("0.75"),
	'⅕': decimal.RequireFromString("0.2"),
	'⅖': decimal.RequireFromString("0.4"),
	'⅗': decimal.RequireFromString("0.6"),
	'⅘': decimal.RequireFromString("0.8"),
	'⅙': decimal.RequireFromString("0.17"),
	'⅚': decimal.RequireFromString("0.83"),
	'⅐': decimal.RequireFromString("0.14"),
	'⅛': decimal.RequireFromString("0.13"),
	'⅜': decimal.RequireFromString("0.38"),
	'⅝': decimal.RequireFromString("0.63"),
	'⅞': decimal.RequireFromString("0.88"),
	'⅑': decimal.RequireFromString("0.11"),
	'⅒': decimal.RequireFromString("0.1"),
}

var ten = decimal.NewFromInt(10)

// Weight is a parsed magnitude with its unit.
type Weight struct {
	Magnitude decimal.Decimal
	Unit      string
}

// Times scales the weight by an item quantity.
func (w Weight) Times(quantity int64) Weight {
	return Weight{Magnitude: w.Magnitude.Mul(decimal.NewFromInt(quantity)), Unit: w.Unit}
}

// String renders "<magnitude> <unit>", e.g. "7.5 sk". The magnitude is
// rounded to two decimals, the precision of the fraction glyphs; Magnitude
// itself stays exact.
func (w Weight) String() string {
	return w.Magnitude.Round(2).String() + " " + w.Unit
}

// Parse reads text as a weight. ok is false when no unit is recognized or
// the denominator is zero.
func Parse(text string) (w Weight, ok bool) {
	cleaned := strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text))

	unit := ""
	for _, u := range Units {
		if strings.HasSuffix(cleaned, u) {
			unit = u
			break
		}
	}
	if unit == "" {
		return Weight{}, false
	}

	total := decimal.Zero
	denominator := false
	for _, r := range strings.TrimSuffix(cleaned, unit) {
		if v, isGlyph := glyphs[r]; isGlyph {
			total = total.Add(v)
			break
		}
		if r < '0' || r > '9' {
			denominator = true
			continue
		}
		digit := decimal.NewFromInt(int64(r - '0'))
		if denominator {
			if digit.IsZero() {
				return Weight{}, false
			}
			total = total.Div(digit)
			break
		}
		total = total.Mul(ten).Add(digit)
	}

	return Weight{Magnitude: total, Unit: unit}, true
}

// Total parses text and multiplies it by quantity.
func Total(text string, quantity int64) (Weight, bool) {
	w, ok := Parse(text)
	if !ok {
		return Weight{}, false
	}
	return w.Times(quantity), true
}

// =============================================================================
// TOTALS - Per-unit aggregation
// =============================================================================

// Totals sums weights per unit, remembering the order units first appeared.
type Totals struct {
	order []string
	sums  map[string]decimal.Decimal
}

// Add accumulates w into its unit's total.
func (t *Totals) Add(w Weight) {
	if t.sums == nil {
		t.sums = make(map[string]decimal.Decimal)
	}
	if _, seen := t.sums[w.Unit]; !seen {
		t.order = append(t.order, w.Unit)
		t.sums[w.Unit] = decimal.Zero
	}
	t.sums[w.Unit] = t.sums[w.Unit].Add(w.Magnitude)
}

// Weights returns one total per unit in first-seen order.
func (t *Totals) Weights() []Weight {
	out := make([]Weight, len(t.order))
	for i, u := range t.order {
		out[i] = Weight{Magnitude: t.sums[u], Unit: u}
	}
	return out
}

// Get returns the total for unit.
func (t *Totals) Get(unit string) (decimal.Decimal, bool) {
	v, ok := t.sums[unit]
	return v, ok
}
