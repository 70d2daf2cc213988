package extraction

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Strategy identifies how a price was rebuilt from line tokens
type Strategy int

const (
	// StrictDecimal accepts tokens already shaped like 3.49
	StrictDecimal Strategy = iota
	// FragmentPair joins a dollars token and a cents token split by OCR
	FragmentPair
	// ThreeDigit reads a run like 579 as 5.79
	ThreeDigit
)

// StrategyOrder is the priority in which strategies claim tokens
var StrategyOrder = []Strategy{StrictDecimal, FragmentPair, ThreeDigit}

func (s Strategy) String() string {
	switch s {
	case StrictDecimal:
		return "strict-decimal"
	case FragmentPair:
		return "fragment-pair"
	case ThreeDigit:
		return "three-digit"
	default:
		return "unknown"
	}
}

// confidence is the score of an item whose price came from this strategy
func (s Strategy) confidence() int {
	switch s {
	case StrictDecimal:
		return baseLineConfidence + 25
	case FragmentPair:
		return baseLineConfidence + 15
	case ThreeDigit:
		return baseLineConfidence + 10
	default:
		return baseLineConfidence
	}
}

// ReconstructedPrice is an amount plus the indexes of the tokens it was built from
type ReconstructedPrice struct {
	Amount   decimal.Decimal
	Tokens   []int
	Strategy Strategy
}

// Negative reports whether the amount is below zero
func (p ReconstructedPrice) Negative() bool {
	return p.Amount.IsNegative()
}

// TokenSet is a set of consumed token indexes
type TokenSet map[int]struct{}

// Has reports whether i is in the set
func (s TokenSet) Has(i int) bool {
	_, ok := s[i]
	return ok
}

// Clone returns a copy of the set
func (s TokenSet) Clone() TokenSet {
	c := make(TokenSet, len(s))
	for i := range s {
		c[i] = struct{}{}
	}
	return c
}

// Reconstruction is the outcome of price reconstruction on a single line
type Reconstruction struct {
	Tokens   []string
	Prices   []ReconstructedPrice
	Consumed TokenSet
}

// Positive returns the positive prices ordered by their first token
func (r Reconstruction) Positive() []ReconstructedPrice {
	var out []ReconstructedPrice
	for _, p := range r.Prices {
		if p.Amount.IsPositive() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Tokens[0] < out[j].Tokens[0]
	})
	return out
}

var (
	trailingNegative = regexp.MustCompile(`(\$?\d+\.\d{1,2})-(\s|$)`)
	spacedDollar     = regexp.MustCompile(`\$\s+(\d)`)
	dollarsFragment  = regexp.MustCompile(`^-?\$?\d{1,3}$`)
	strictDecimal    = regexp.MustCompile(`^\d+\.\d{1,2}$`)
	twoDigits        = regexp.MustCompile(`^\d{2}$`)
	oneOrTwoDigits   = regexp.MustCompile(`^\d{1,2}$`)
	threeDigits      = regexp.MustCompile(`^\d{3}$`)
)

// fragmentReach is how many tokens to either side a cents fragment looks for dollars
const fragmentReach = 3

// Reconstructor repairs prices mangled by OCR
type Reconstructor struct {
	confusions []Confusion
}

// NewReconstructor creates a Reconstructor using the given ordered confusion rules
func NewReconstructor(confusions []Confusion) *Reconstructor {
	return &Reconstructor{confusions: confusions}
}

// Reconstruct normalizes a line into tokens and finds every price in it.
// No token is shared by two prices.
func (r *Reconstructor) Reconstruct(line string) Reconstruction {
	tokens := mergeSplitDecimals(normalizeLine(line))
	consumed := TokenSet{}
	var prices []ReconstructedPrice

	for _, strategy := range StrategyOrder {
		found := r.apply(strategy, tokens, consumed)
		for _, p := range found {
			for _, i := range p.Tokens {
				consumed[i] = struct{}{}
			}
		}
		prices = append(prices, found...)
	}

	return Reconstruction{Tokens: tokens, Prices: prices, Consumed: consumed}
}

func (r *Reconstructor) apply(s Strategy, tokens []string, consumed TokenSet) []ReconstructedPrice {
	switch s {
	case StrictDecimal:
		return strictPrices(tokens, consumed)
	case FragmentPair:
		return fragmentPrices(tokens, consumed, r.confusions)
	case ThreeDigit:
		return threeDigitPrices(tokens, consumed)
	}
	return nil
}

// CorrectDigits replaces letters OCR commonly confuses with digits. Rules are
// tried in order and the first rule matching a character wins.
func CorrectDigits(token string, rules []Confusion) string {
	var b strings.Builder
	for _, ch := range token {
		out := ch
		for _, rule := range rules {
			if string(ch) == rule.From {
				out = []rune(rule.To)[0]
				break
			}
		}
		b.WriteRune(out)
	}
	return b.String()
}

func normalizeLine(line string) []string {
	line = trailingNegative.ReplaceAllString(line, "-${1}${2}")

	runes := []rune(line)
	var b strings.Builder
	for i, ch := range runes {
		switch {
		case unicode.IsLetter(ch), unicode.IsDigit(ch), ch == '.', ch == '$':
			b.WriteRune(ch)
		case unicode.IsSpace(ch):
			b.WriteRune(' ')
		case ch == '-' && i+1 < len(runes) && (unicode.IsDigit(runes[i+1]) || runes[i+1] == '$'):
			b.WriteRune(ch)
		}
	}

	glued := spacedDollar.ReplaceAllString(b.String(), "$$${1}")
	return strings.Fields(glued)
}

// mergeSplitDecimals rewrites "5 79" into "5.79"
func mergeSplitDecimals(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) && dollarsFragment.MatchString(tokens[i]) && twoDigits.MatchString(tokens[i+1]) {
			out = append(out, tokens[i]+"."+tokens[i+1])
			i++
			continue
		}
		out = append(out, tokens[i])
	}
	return out
}

// unsign strips a leading minus and dollar sign, reporting whether a minus was present
func unsign(token string) (string, bool) {
	negative := strings.HasPrefix(token, "-")
	token = strings.TrimPrefix(token, "-")
	token = strings.TrimPrefix(token, "$")
	return token, negative
}

func signed(d decimal.Decimal, negative bool) decimal.Decimal {
	if negative {
		return d.Neg()
	}
	return d
}

func strictPrices(tokens []string, consumed TokenSet) []ReconstructedPrice {
	var out []ReconstructedPrice
	for i, tok := range tokens {
		if consumed.Has(i) {
			continue
		}
		core, negative := unsign(tok)
		if !strictDecimal.MatchString(core) {
			continue
		}
		amount, err := decimal.NewFromString(core)
		if err != nil {
			continue
		}
		out = append(out, ReconstructedPrice{
			Amount:   signed(amount.Round(2), negative),
			Tokens:   []int{i},
			Strategy: StrictDecimal,
		})
	}
	return out
}

func fragmentPrices(tokens []string, consumed TokenSet, rules []Confusion) []ReconstructedPrice {
	used := consumed.Clone()
	var out []ReconstructedPrice

	for i, tok := range tokens {
		if used.Has(i) {
			continue
		}
		cents, centsNegative := unsign(tok)
		if !twoDigits.MatchString(cents) {
			continue
		}
		if v, _ := strconv.Atoi(cents); v < 10 || v > 99 {
			continue
		}

		for d := 1; d <= fragmentReach; d++ {
			j, dollars, ok := findDollars(tokens, used, i, d, rules)
			if !ok {
				continue
			}
			_, dollarsNegative := unsign(tokens[j])
			amount := decimal.RequireFromString(dollars + "." + cents)
			used[i] = struct{}{}
			used[j] = struct{}{}
			out = append(out, ReconstructedPrice{
				Amount:   signed(amount, centsNegative || dollarsNegative),
				Tokens:   []int{min(i, j), max(i, j)},
				Strategy: FragmentPair,
			})
			break
		}
	}

	// adjacent fallback: a 1-2 digit token followed by a 2 digit token
	for i := 0; i+1 < len(tokens); i++ {
		if used.Has(i) || used.Has(i+1) {
			continue
		}
		dollars, negative := unsign(tokens[i])
		cents, _ := unsign(tokens[i+1])
		if !oneOrTwoDigits.MatchString(dollars) || !twoDigits.MatchString(cents) {
			continue
		}
		used[i] = struct{}{}
		used[i+1] = struct{}{}
		out = append(out, ReconstructedPrice{
			Amount:   signed(decimal.RequireFromString(dollars+"."+cents), negative),
			Tokens:   []int{i, i + 1},
			Strategy: FragmentPair,
		})
		i++
	}

	return out
}

// findDollars checks the neighbors at distance d, left first, for a dollars
// candidate between 1 and 50 after confusion correction
func findDollars(tokens []string, used TokenSet, i, d int, rules []Confusion) (int, string, bool) {
	for _, j := range []int{i - d, i + d} {
		if j < 0 || j >= len(tokens) || used.Has(j) {
			continue
		}
		core, _ := unsign(tokens[j])
		corrected := CorrectDigits(core, rules)
		if !oneOrTwoDigits.MatchString(corrected) {
			continue
		}
		if v, _ := strconv.Atoi(corrected); v >= 1 && v <= 50 {
			return j, corrected, true
		}
	}
	return 0, "", false
}

func threeDigitPrices(tokens []string, consumed TokenSet) []ReconstructedPrice {
	var out []ReconstructedPrice
	for i, tok := range tokens {
		if consumed.Has(i) {
			continue
		}
		core, negative := unsign(tok)
		if !threeDigits.MatchString(core) {
			continue
		}
		v, _ := strconv.ParseInt(core, 10, 64)
		if v < 100 || v > 999 {
			continue
		}
		out = append(out, ReconstructedPrice{
			Amount:   signed(decimal.New(v, -2), negative),
			Tokens:   []int{i},
			Strategy: ThreeDigit,
		})
	}
	return out
}
