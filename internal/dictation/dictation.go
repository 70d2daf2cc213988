// Package dictation turns a spoken grocery list into items.
package dictation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zombor/pantry-tracker/internal/extraction"
)

// FoodLookup maps a dictated grocery noun to a category and shelf life in days
type FoodLookup interface {
	LookupFood(name string) (string, int)
}

// Grammar is one of the segment shapes the parser understands
type Grammar int

const (
	// QuantityUnitOf is "3 pounds of apples"
	QuantityUnitOf Grammar = iota
	// QuantityUnit is "2 bags cheese"
	QuantityUnit
	// Article is "a can of soup"
	Article
	// Bare is "some milk" or just "milk"
	Bare
)

// GrammarOrder is the priority in which grammars are tried; the first match wins
var GrammarOrder = []Grammar{QuantityUnitOf, QuantityUnit, Article, Bare}

func (g Grammar) String() string {
	switch g {
	case QuantityUnitOf:
		return "quantity-unit-of"
	case QuantityUnit:
		return "quantity-unit"
	case Article:
		return "article"
	case Bare:
		return "bare"
	default:
		return "unknown"
	}
}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

var unitSynonyms = map[string]string{
	"can": "can", "cans": "can",
	"pound": "lbs", "pounds": "lbs", "lb": "lbs", "lbs": "lbs",
	"bag": "bag", "bags": "bag",
	"box": "box", "boxes": "box",
	"bottle": "bottle", "bottles": "bottle",
	"jar": "jar", "jars": "jar",
	"pint": "pint", "pints": "pint",
	"quart": "quart", "quarts": "quart",
	"gallon": "gallon", "gallons": "gallon",
	"dozen": "dozen", "dozens": "dozen",
	"pack": "pack", "packs": "pack", "package": "pack", "packages": "pack",
	"bunch": "bunch", "bunches": "bunch",
	"loaf": "loaf", "loaves": "loaf",
	"carton": "carton", "cartons": "carton",
	"ounce": "oz", "ounces": "oz", "oz": "oz",
	"bar": "bar", "bars": "bar",
	"head": "head", "heads": "head",
	"container": "container", "containers": "container",
	"jug": "jug", "jugs": "jug",
	"block": "block", "blocks": "block",
	"stick": "stick", "sticks": "stick",
	"kilo": "kg", "kilos": "kg", "kg": "kg",
	"gram": "g", "grams": "g",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l",
}

var nameStopwords = map[string]struct{}{
	"of": {}, "the": {}, "and": {}, "a": {}, "an": {}, "some": {},
}

var (
	whitespace    = regexp.MustCompile(`\s+`)
	datePrefix    = regexp.MustCompile(`^(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}:\s*`)
	listSeparator = regexp.MustCompile(`\band\b|[;|]`)
	leadingFiller = regexp.MustCompile(`^(?:(?:of|the|some)\s+)+`)

	grammars = buildGrammars()
)

func buildGrammars() map[Grammar]*regexp.Regexp {
	words := make([]string, 0, len(numberWords))
	for w := range numberWords {
		words = append(words, w)
	}
	num := `(\d+|` + alternation(words) + `)`

	keys := make([]string, 0, len(unitSynonyms))
	for k := range unitSynonyms {
		keys = append(keys, k)
	}
	unit := `(?:(` + alternation(keys) + `)\s+)?`

	return map[Grammar]*regexp.Regexp{
		QuantityUnitOf: regexp.MustCompile(`^` + num + `\s+` + unit + `of\s+(.+)$`),
		QuantityUnit:   regexp.MustCompile(`^` + num + `\s+` + unit + `(.+)$`),
		Article:        regexp.MustCompile(`^(a|an)\s+` + unit + `(?:of\s+)?(.+)$`),
		Bare:           regexp.MustCompile(`^(?:some\s+)?(.+)$`),
	}
}

// alternation joins words longest first so "lbs" wins over "lb"
func alternation(words []string) string {
	sorted := append([]string(nil), words...)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	return strings.Join(sorted, "|")
}

// Parser is the dictation pipeline
type Parser struct {
	foods FoodLookup
}

// NewParser creates a Parser that categorizes with foods
func NewParser(foods FoodLookup) *Parser {
	return &Parser{foods: foods}
}

// Segments normalizes a transcript and splits it into list entries
func Segments(transcript string) []string {
	text := whitespace.ReplaceAllString(strings.ToLower(transcript), " ")
	text = datePrefix.ReplaceAllString(strings.TrimSpace(text), "")
	text = listSeparator.ReplaceAllString(text, ",")

	var out []string
	for _, seg := range strings.Split(text, ",") {
		seg = strings.TrimRight(strings.TrimSpace(seg), ".!?")
		seg = strings.TrimSpace(seg)
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// Parse turns a transcript into items, summing quantities of repeated names
func (p *Parser) Parse(transcript string) []extraction.ManualItem {
	var items []extraction.ManualItem
	index := make(map[string]int)

	for _, seg := range Segments(transcript) {
		item, _, ok := p.ParseSegment(seg)
		if !ok {
			continue
		}
		if i, seen := index[item.Name]; seen {
			items[i].Quantity += item.Quantity
			continue
		}
		index[item.Name] = len(items)
		items = append(items, item)
	}
	return items
}

// ParseSegment parses one normalized list entry and reports which grammar matched
func (p *Parser) ParseSegment(segment string) (extraction.ManualItem, Grammar, bool) {
	for _, g := range GrammarOrder {
		m := grammars[g].FindStringSubmatch(segment)
		if m == nil {
			continue
		}

		quantity, unit, rawName := 1, "", ""
		switch g {
		case QuantityUnitOf, QuantityUnit:
			quantity, unit, rawName = parseQuantity(m[1]), m[2], m[3]
		case Article:
			unit, rawName = m[2], m[3]
		case Bare:
			rawName = m[1]
		}

		name := cleanName(rawName)
		if name == "" {
			return extraction.ManualItem{}, g, false
		}

		category, days := p.foods.LookupFood(name)
		return extraction.ManualItem{
			Name:               name,
			Quantity:           quantity,
			Unit:               normalizeUnit(unit),
			Category:           category,
			EstimatedShelfLife: days,
			Confidence:         extraction.DictationConfidence,
		}, g, true
	}
	return extraction.ManualItem{}, Bare, false
}

func parseQuantity(s string) int {
	if n, ok := numberWords[s]; ok {
		return n
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return max(n, 1)
}

func normalizeUnit(unit string) string {
	if u, ok := unitSynonyms[unit]; ok {
		return u
	}
	return extraction.DefaultUnit
}

func cleanName(raw string) string {
	name := whitespace.ReplaceAllString(strings.TrimSpace(raw), " ")
	name = strings.TrimSpace(leadingFiller.ReplaceAllString(name, ""))
	if len(name) < 2 {
		return ""
	}
	if _, ok := nameStopwords[name]; ok {
		return ""
	}
	return name
}
