package extract

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Item is one purchased line item reconstructed from OCR text. Price is nil
// when the extraction strategy could not associate one; only the priced-line
// strategy guarantees a price.
type Item struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Price    *float64 `json:"price"`
}

var (
	// A line "closes" an item when it ends in a recognizable price, with or
	// without a currency symbol and with OCR-typical spacing.
	priceEnd = regexp.MustCompile(`[£$€]?\s*\d+\s*[.,]\s*\d{2}\s*$`)

	datePattern = regexp.MustCompile(`\d{2}[/-]\d{2}[/-]\d{2}`)
	timePattern = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)

	// Leading product codes are runs of 4+ digits; shorter runs are kept so
	// quantity prefixes like "2 x Milk" survive.
	leadingCode   = regexp.MustCompile(`^\d{4,}\s*`)
	noiseChars    = regexp.MustCompile(`[^a-zA-Z0-9 .&%-]`)
	quantityToken = regexp.MustCompile(`^(\d+)\s*[xX@]?\s+(.+)$`)

	// Second-strategy helpers: lines that are only a price, trailing prices,
	// single-letter category markers like "(F)", and names that are nothing
	// but digits and punctuation.
	priceOnlyLine  = regexp.MustCompile(`^[£$€]?\s*-?\d+[.,]\d{2}\s*$`)
	trailingPrice  = regexp.MustCompile(`\s*[£$€]?\s*-?\d+[.,]\d{2}\s*$`)
	categoryMarker = regexp.MustCompile(`\s*\([a-zA-Z]\)\s*$`)
	digitsAndNoise = regexp.MustCompile(`^[\d\W]+$`)
)

// defaultSkipKeywords marks receipt lines that are never purchased items:
// totals, payment details, loyalty-card boilerplate and store identity.
var defaultSkipKeywords = []string{
	"total", "subtotal", "savings", "change", "due", "cash", "visa",
	"mastercard", "balance", "vat", "clubcard", "visit",
	"tel:", "www.", "manager", "store", "auth", "ref", "merchant",
	"tesco", "express", "receipt", "questions",
	"please", "number", "join", "today", "download", "app", "prices",
	"points", "missed",
}

var defaultSkipPatterns = compilePatterns([]string{
	`(?:sub)?total`, `savings?`, `promotions?`, `clubcard`,
	`points?`, `balance`, `\bcard\b`, `\bvat\b`, `\bchange\b`,
	`\bcash\b`, `thank\s*you`, `receipt`, `www\.`, `number`,
	`^\s*\d{2}[/\-]\d{2}`, `^\s*\d{2}:\d{2}`, `tel:`, `phone`,
	`customer`, `transaction`, `payment`, `visa`, `mastercard`,
	`debit`, `credit`, `approved`, `auth`, `ref\s*:`, `store`,
})

func compilePatterns(exprs []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		patterns = append(patterns, regexp.MustCompile(expr))
	}
	return patterns
}

// Extractor reconstructs structured line items from noisy OCR text.
type Extractor struct {
	skipKeywords []string
	skipPatterns []*regexp.Regexp
}

// NewExtractor creates an Extractor with the default skip set.
func NewExtractor() *Extractor {
	return &Extractor{
		skipKeywords: defaultSkipKeywords,
		skipPatterns: defaultSkipPatterns,
	}
}

// NewExtractorWithKeywords overrides the skip-keyword set, for receipts from
// stores whose boilerplate differs from the defaults.
func NewExtractorWithKeywords(keywords []string) *Extractor {
	e := NewExtractor()
	e.skipKeywords = append([]string(nil), keywords...)
	return e
}

// ExtractPriced is the primary strategy: it walks the lines top to bottom,
// buffering description fragments until a line ending in a price closes the
// current item. Handles multi-line item names that OCR engines split apart.
//
// A priced line always terminates the item window: the buffer is cleared
// whether or not the candidate survives filtering. Buffered fragments with
// no trailing price at end of input never become items.
func (e *Extractor) ExtractPriced(text string) []Item {
	var items []Item
	var pending []string

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if len(line) < 2 {
			continue
		}

		loc := priceEnd.FindStringIndex(line)
		var price float64
		havePrice := false
		if loc != nil {
			price, havePrice = NormalizePrice(line[loc[0]:loc[1]])
		}

		if !havePrice {
			// Descriptive fragment or junk. Junk lines (boilerplate, dates,
			// times) are dropped without touching the buffer.
			if e.isJunkLine(line) {
				continue
			}
			pending = append(pending, line)
			continue
		}

		if name := strings.TrimSpace(line[:loc[0]]); name != "" {
			pending = append(pending, name)
		}
		candidate := strings.Join(pending, " ")
		pending = nil

		if e.containsSkipKeyword(candidate) {
			continue
		}
		if item, ok := buildItem(candidate, &price); ok {
			items = append(items, item)
		}
	}

	return items
}

// ExtractUnpriced is the fallback for receipts where OCR detached every price
// from its digits. It works line by line with no buffering and never attaches
// a price.
func (e *Extractor) ExtractUnpriced(text string) []Item {
	var items []Item

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if len(line) < 3 {
			continue
		}

		lower := strings.ToLower(line)
		if matchesAny(e.skipPatterns, lower) {
			continue
		}
		if priceOnlyLine.MatchString(line) {
			continue
		}

		clean := trailingPrice.ReplaceAllString(line, "")
		clean = categoryMarker.ReplaceAllString(clean, "")
		clean = leadingCode.ReplaceAllString(clean, "")
		clean = strings.TrimSpace(clean)
		if len(clean) < 2 {
			continue
		}

		name, qty := splitQuantity(clean)
		if digitsAndNoise.MatchString(name) {
			continue
		}

		items = append(items, Item{Name: TitleCase(name), Quantity: qty})
	}

	return items
}

// buildItem cleans a candidate name, splits off a leading quantity token and
// emits an item when enough of a name is left.
func buildItem(candidate string, price *float64) (Item, bool) {
	name := leadingCode.ReplaceAllString(candidate, "")
	name = noiseChars.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	name, qty := splitQuantity(name)
	if len(name) <= 3 {
		return Item{}, false
	}

	return Item{Name: TitleCase(name), Quantity: qty, Price: price}, true
}

// splitQuantity parses a leading "<n> [x|X|@]" token; quantity defaults to 1.
func splitQuantity(name string) (string, int) {
	if m := quantityToken.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
			return strings.TrimSpace(m[2]), n
		}
	}
	return name, 1
}

func (e *Extractor) containsSkipKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, k := range e.skipKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func (e *Extractor) isJunkLine(line string) bool {
	return e.containsSkipKeyword(line) ||
		datePattern.MatchString(line) ||
		timePattern.MatchString(line)
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// TitleCase normalizes an item name to title case.
func TitleCase(s string) string {
	return cases.Title(language.English).String(s)
}
