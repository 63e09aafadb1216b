// Package labelscan extracts per-100g nutrition from the text of a food
// label. Results are best effort and must be validated like manual input.
package labelscan

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

// SodiumPerSaltMg converts grams of salt to milligrams of sodium.
const SodiumPerSaltMg = 393

const WarnNotPer100g = "Detected text may not be per 100g. Please verify values manually."

const number = `([0-9]+(?:[.,][0-9]+)?)`

var (
	per100Pattern = regexp.MustCompile(`(per|je)\s*100\s*g`)

	kcalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:energy|energie)[^\n\r]{0,40}?` + number + `\s*kcal`),
		regexp.MustCompile(number + `\s*kcal`),
	}
	fatPatterns     = grams(`(?:fat|fett)`)
	carbPatterns    = grams(`(?:carbohydrates?|kohlenhydrate)`)
	proteinPatterns = grams(`(?:protein|eiwei(?:ß|ss))`)
	sugarPatterns   = grams(`(?:sugars?|zucker)`)
	fiberPatterns   = grams(`(?:fiber|fibre|ballaststoffe?)`)
	saltPatterns    = grams(`(?:salt|salz)`)
	sodiumPatterns  = []*regexp.Regexp{
		regexp.MustCompile(`(?:sodium|natrium)\s*[:\-]?\s*` + number + `\s*mg`),
	}

	nonNumeric = regexp.MustCompile(`[^0-9.]+`)
)

func grams(label string) []*regexp.Regexp {
	return []*regexp.Regexp{regexp.MustCompile(label + `\s*[:\-]?\s*` + number + `\s*g`)}
}

type Macros struct {
	Kcal100g *float64 `json:"kcal100g"`
	P100g    *float64 `json:"p100g"`
	C100g    *float64 `json:"c100g"`
	F100g    *float64 `json:"f100g"`
}

type Micros struct {
	SugarG   *float64 `json:"sugar_g"`
	FiberG   *float64 `json:"fiber_g"`
	SodiumMg *float64 `json:"sodium_mg"`
	SaltG    *float64 `json:"salt_g"`
}

type Result struct {
	Macros   Macros   `json:"macros"`
	Micros   Micros   `json:"micros"`
	Warnings []string `json:"warnings"`
}

// ParseText reads label text in English or German. Values it cannot find
// stay nil.
func ParseText(text string) Result {
	lower := strings.ToLower(text)
	res := Result{Warnings: []string{}}
	if !per100Pattern.MatchString(lower) {
		res.Warnings = append(res.Warnings, WarnNotPer100g)
	}

	res.Macros = Macros{
		Kcal100g: extractFirst(lower, kcalPatterns),
		F100g:    extractFirst(lower, fatPatterns),
		C100g:    extractFirst(lower, carbPatterns),
		P100g:    extractFirst(lower, proteinPatterns),
	}
	salt := extractFirst(lower, saltPatterns)
	sodium := extractFirst(lower, sodiumPatterns)
	if sodium == nil && salt != nil {
		v := model.RoundTo(*salt*SodiumPerSaltMg, 2)
		sodium = &v
	}
	res.Micros = Micros{
		SugarG:   extractFirst(lower, sugarPatterns),
		FiberG:   extractFirst(lower, fiberPatterns),
		SodiumMg: sodium,
		SaltG:    salt,
	}
	return res
}

// Per100g returns the parsed macros for storage. Calories are required;
// other missing macros count as zero.
func (r Result) Per100g() (model.Per100g, error) {
	if r.Macros.Kcal100g == nil {
		return model.Per100g{}, &model.ValidationError{Field: "kcal100g", Constraint: "required"}
	}
	p := model.Per100g{
		Kcal: *r.Macros.Kcal100g,
		P:    deref(r.Macros.P100g),
		C:    deref(r.Macros.C100g),
		F:    deref(r.Macros.F100g),
	}
	if err := model.Validate(p); err != nil {
		return model.Per100g{}, err
	}
	return p, nil
}

func extractFirst(text string, patterns []*regexp.Regexp) *float64 {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if v, ok := normalizeNumber(m[1]); ok {
			return &v
		}
	}
	return nil
}

func normalizeNumber(raw string) (float64, bool) {
	cleaned := nonNumeric.ReplaceAllString(strings.Replace(raw, ",", ".", 1), "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || !model.IsFinite(v) {
		return 0, false
	}
	return v, true
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
