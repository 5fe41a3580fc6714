package specmatch

import (
	"regexp"
	"strconv"
	"strings"
)

// Measurement is a length normalized to millimeters. A single value is
// stored as the degenerate range [v, v].
type Measurement struct {
	MinMM    float64 `json:"min_mm"`
	MaxMM    float64 `json:"max_mm"`
	Range    bool    `json:"range"`
	Inferred bool    `json:"inferred"` // unit omitted and read as mm
}

// Contains reports whether v lies within the measurement's bounds.
func (m Measurement) Contains(v float64) bool {
	return m.MinMM <= v && v <= m.MaxMM
}

// Overlaps reports whether two measurements share any value.
func (m Measurement) Overlaps(o Measurement) bool {
	return !(m.MaxMM < o.MinMM || o.MaxMM < m.MinMM)
}

type unit struct {
	token string
	mm    float64
}

// units is ordered longest token first within each family so the scanner
// never stops at a shorter prefix ("m" before "mm").
var units = []unit{
	{"millimeters", 1},
	{"millimetres", 1},
	{"millimeter", 1},
	{"millimetre", 1},
	{"mm", 1},
	{"centimeters", 10},
	{"centimetres", 10},
	{"centimeter", 10},
	{"centimetre", 10},
	{"cm", 10},
	{"meters", 1000},
	{"metres", 1000},
	{"meter", 1000},
	{"metre", 1000},
	{"mtr", 1000},
	{"inches", 25.4},
	{"inch", 25.4},
	{"in", 25.4},
	{`"`, 25.4},
	{"feet", 304.8},
	{"foot", 304.8},
	{"ft", 304.8},
	{"'", 304.8},
	{"m", 1000},
}

var (
	numberRe    = regexp.MustCompile(`^(\d+(?:[.,]\d+)?|\.\d+)`)
	fractionRe  = regexp.MustCompile(`^(?:(\d+) )?(\d+) ?/ ?(\d+)`)
	thousandsRe = regexp.MustCompile(`(\d),(\d{3})(?:$|[^\d])`)
)

type quantity struct {
	value  float64
	factor float64 // 0 when no unit was written
}

// ParseMeasurement reads a length or length range from s. Unitless values
// are read as millimeters only when nothing else follows them and they are
// below the policy's inference threshold. A written unit may be followed by
// descriptive words ("2 mm thick") but not by a second dimension ("4 x 8 ft").
func (p Policy) ParseMeasurement(s string) (Measurement, bool) {
	p = p.withDefaults()
	s = stripThousands(cleanOption(s))

	first, rest, ok := scanQuantity(s)
	if !ok {
		return Measurement{}, false
	}

	second, hasRange := quantity{}, false
	if after, ok := scanRangeSeparator(rest); ok {
		if q, tail, ok := scanQuantity(after); ok {
			second, hasRange, rest = q, true, tail
		}
	}

	written := first.factor != 0 || (hasRange && second.factor != 0)
	if !trailingOK(rest, written) {
		return Measurement{}, false
	}

	if !hasRange {
		if first.factor == 0 {
			if first.value >= p.UnitInferenceMaxMM {
				return Measurement{}, false
			}
			return Measurement{MinMM: first.value, MaxMM: first.value, Inferred: true}, true
		}
		v := first.value * first.factor
		return Measurement{MinMM: v, MaxMM: v}, true
	}

	// A unit written on one side only applies to both.
	inferred := false
	switch {
	case first.factor == 0 && second.factor == 0:
		if max(first.value, second.value) >= p.UnitInferenceMaxMM {
			return Measurement{}, false
		}
		first.factor, second.factor, inferred = 1, 1, true
	case first.factor == 0:
		first.factor = second.factor
	case second.factor == 0:
		second.factor = first.factor
	}

	lo, hi := first.value*first.factor, second.value*second.factor
	if lo > hi {
		lo, hi = hi, lo
	}
	return Measurement{MinMM: lo, MaxMM: hi, Range: true, Inferred: inferred}, true
}

// HasExplicitUnit reports whether s starts with a number followed by a
// recognized length unit.
func HasExplicitUnit(s string) bool {
	q, _, ok := scanQuantity(stripThousands(cleanOption(s)))
	return ok && q.factor != 0
}

func scanQuantity(s string) (quantity, string, bool) {
	s = strings.TrimLeft(s, " ")
	v, n, ok := scanNumber(s)
	if !ok {
		return quantity{}, s, false
	}
	rest := strings.TrimLeft(s[n:], " ")

	for _, u := range units {
		if !strings.HasPrefix(rest, u.token) {
			continue
		}
		tail := rest[len(u.token):]
		if isLetter(u.token[0]) && tail != "" && isLetter(tail[0]) {
			continue
		}
		return quantity{value: v, factor: u.mm}, tail, true
	}
	return quantity{value: v}, rest, true
}

// scanNumber reads a decimal ("1.5", "1,5"), a fraction ("3/4") or a mixed
// number ("1 1/2") from the start of s and returns its value and length.
func scanNumber(s string) (float64, int, bool) {
	if m := fractionRe.FindStringSubmatch(s); m != nil {
		num, _ := strconv.ParseFloat(m[2], 64)
		den, _ := strconv.ParseFloat(m[3], 64)
		if den == 0 {
			return 0, 0, false
		}
		v := num / den
		if m[1] != "" {
			whole, _ := strconv.ParseFloat(m[1], 64)
			v += whole
		}
		return v, len(m[0]), true
	}

	num := numberRe.FindString(s)
	if num == "" {
		return 0, 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(num, ",", ".", 1), 64)
	if err != nil {
		return 0, 0, false
	}
	return v, len(num), true
}

// trailingOK reports whether the text left after a quantity still allows
// reading it as a single measurement. Without a written unit nothing may
// follow. With one, only words may follow, and never a dimension separator.
func trailingOK(rest string, written bool) bool {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return true
	}
	if !written || !isLetter(rest[0]) {
		return false
	}
	word := strings.Fields(rest)[0]
	if word == "x" || word == "by" {
		return false
	}
	return !(rest[0] == 'x' && len(rest) > 1 && isDigit(rest[1]))
}

func scanRangeSeparator(s string) (string, bool) {
	s = strings.TrimLeft(s, " ")
	switch {
	case strings.HasPrefix(s, "-"):
		return s[1:], true
	case strings.HasPrefix(s, "to"):
		tail := s[2:]
		if tail == "" || isLetter(tail[0]) {
			return "", false
		}
		return tail, true
	}
	return "", false
}

func stripThousands(s string) string {
	for thousandsRe.MatchString(s) {
		loc := thousandsRe.FindStringSubmatchIndex(s)
		// Drop the comma between the two captured groups.
		s = s[:loc[3]] + s[loc[4]:]
	}
	return s
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
