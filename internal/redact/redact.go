// Package redact removes personal name fragments from ruling text.
//
// The pipeline is an ordered list of pattern rules applied by a single fold:
// every rule runs one forward substitution pass over the output of the rules
// before it. Keyword and title matching is case-insensitive; the name
// heuristic (capitalized words, Latin script including accented characters)
// is case-sensitive.
package redact

import "regexp"

// Placeholder replaces matched name fragments.
const Placeholder = "NAAM"

// namePart matches one capitalized name word, accented characters included.
const namePart = `[A-ZÀ-ÖØ-öø-ÿ][A-Za-zÀ-ÖØ-öø-ÿ.'` + "`" + `-]+`

// initials matches an optional run of single-letter initials ("J.A. ").
const initials = `(?:(?:[A-Z]\.)+\s*)?`

// Rule pairs a compiled pattern with its replacement template.
type Rule struct {
	Name    string
	pattern *regexp.Regexp
	replace string
}

// Apply runs one forward substitution pass of this rule over text.
func (r Rule) Apply(text string) string {
	return r.pattern.ReplaceAllString(text, r.replace)
}

// rules in application order. The last rule is intentionally greedier than
// the others and is not idempotent when it runs over text the earlier rules
// already rewrote; that behavior is preserved from the original pipeline.
var rules = []Rule{
	{
		// Honorific titles (mr./prof./dr./ir.) followed by a name of 1-3
		// capitalized words, optionally preceded by initials.
		Name: "title",
		pattern: regexp.MustCompile(
			`\b((?i:mr|prof|dr|ir)\.?)\s+` + initials + namePart + `(?:\s+` + namePart + `){0,2}`),
		replace: "${1} " + Placeholder,
	},
	{
		// Party keywords followed by a capitalized name.
		Name: "party",
		pattern: regexp.MustCompile(
			`\b((?i:klager|verweerder))\s+(?:[A-Z]\.)?\s*` + namePart),
		replace: "${1} " + Placeholder,
	},
	{
		// Courtesy address forms followed by a name of 1-3 capitalized words.
		Name: "courtesy",
		pattern: regexp.MustCompile(
			`\b((?i:de\s+heer|mevrouw|mevr\.?))\s+` + initials + namePart + `(?:\s+` + namePart + `){0,2}`),
		replace: "${1} " + Placeholder,
	},
	{
		// Authorized representative: swallow up to five word-like tokens
		// after the keyword, regardless of casing.
		Name: "representative",
		pattern: regexp.MustCompile(
			`((?i:gemachtigde)[^\n]{0,10}(?:(?i:mr)\.\s*)?)((?:[A-Za-zÀ-ÖØ-öø-ÿ.'` + "`" + `-]+\s*){1,5})`),
		replace: "${1}" + Placeholder,
	},
}

// Redact applies every rule in order and returns the rewritten text. It is
// pure and total: any input, including the empty string, yields a result.
func Redact(text string) string {
	if text == "" {
		return text
	}
	for _, r := range rules {
		text = r.Apply(text)
	}
	return text
}

// Rules exposes the pipeline in application order, for inspection.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
