package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

// Spellings that dataframe and spreadsheet exports use for a missing cell.
// None of them can be a real name or identifier.
var nullMarkers = map[string]struct{}{
	"nan":    {},
	"<na>":   {},
	"#n/a":   {},
	"\\n":    {},
	"<null>": {},
}

// Words that mean "missing" in an identifier column but are legitimate
// text elsewhere (an organization named "None", a city field "N/A").
var missingWords = map[string]struct{}{
	"none": {},
	"null": {},
	"n/a":  {},
	"nat":  {},
}

func StringPtr(v string) *string {
	return &v
}

// NullIfBlank converts a raw cell into the canonical nullable form.
func NullIfBlank(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	if _, ok := nullMarkers[strings.ToLower(trimmed)]; ok {
		return nil
	}
	return &trimmed
}

// NullIfMissing is NullIfBlank that also drops missingWords. Use it for
// identifier cells only.
func NullIfMissing(v string) *string {
	p := NullIfBlank(v)
	if p == nil {
		return nil
	}
	if _, ok := missingWords[strings.ToLower(*p)]; ok {
		return nil
	}
	return p
}

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// NormalizeSpaces collapses runs of whitespace, including non-breaking spaces.
func NormalizeSpaces(input string) string {
	input = strings.ReplaceAll(input, "\u00A0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ContainsFold reports whether needle occurs in s ignoring case.
func ContainsFold(s, needle string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
}
