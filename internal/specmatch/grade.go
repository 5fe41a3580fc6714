package specmatch

import (
	"regexp"
	"strings"
)

// gradePrefixes are stripped, repeatedly, from the front of an option before
// looking for a grade number.
var gradePrefixes = []string{"stainless steel", "grade", "ss"}

// gradeSuffixes are stripped from the end when separated by a space
// ("304 SS", "316 grade").
var gradeSuffixes = []string{" stainless steel", " grade", " ss"}

var gradeRe = regexp.MustCompile(`^(\d{3})(?:\s?([a-z]))?(?:$|[^0-9a-z.])(.*)$`)

// gradeContext lists the words that may follow an unprefixed grade number.
// Anything else ("100 kg", "230 volt") makes the number a plain quantity.
var gradeContext = map[string]bool{
	"sheet":  true,
	"sheets": true,
	"plate":  true,
	"coil":   true,
	"pipe":   true,
	"ss":     true,
}

// Grade extracts a canonical material grade token such as "304" or "304L".
// Without a grade prefix the number must stand alone or be followed by a
// product word ("304 sheet"), so "304 mm" and "100 kg" are not grades.
func Grade(s string) string {
	s = cleanOption(s)
	prefixed := false
	for {
		trimmed := false
		for _, p := range gradePrefixes {
			if rest, ok := strings.CutPrefix(s, p); ok {
				s = strings.TrimLeft(rest, " -:")
				prefixed, trimmed = true, true
			}
		}
		if !trimmed {
			break
		}
	}
	for _, suf := range gradeSuffixes {
		s = strings.TrimSuffix(s, suf)
	}

	if !prefixed && HasExplicitUnit(s) {
		return ""
	}

	m := gradeRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	if rest := strings.TrimSpace(m[3]); !prefixed && rest != "" && !gradeContext[rest] {
		return ""
	}
	return strings.ToUpper(m[1] + m[2])
}
