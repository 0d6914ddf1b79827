package extraction

import (
	"math"
	"strconv"
	"strings"

	"github.com/medscan/medscan-api/internal/model"
)

// ParseNumber parses a locale-formatted number, accepting a decimal comma.
// Only finite values are accepted.
func ParseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseRange parses a reference range. Supported forms, tried in order, are
// "a-b", "<x" and ">x"; anything else leaves both bounds unset.
func ParseRange(s string) model.ReferenceRange {
	s = strings.TrimSpace(s)

	switch {
	case s == "":
	case strings.Contains(s, "-") && !strings.HasPrefix(s, "<") && !strings.HasPrefix(s, ">"):
		parts := strings.Split(s, "-")
		if len(parts) != 2 {
			break
		}
		lo, okLo := ParseNumber(parts[0])
		hi, okHi := ParseNumber(parts[1])
		if okLo && okHi {
			return model.ReferenceRange{Min: &lo, Max: &hi}
		}
	case strings.HasPrefix(s, "<"):
		if v, ok := ParseNumber(strings.TrimLeft(s[1:], "= ")); ok {
			return model.ReferenceRange{Max: &v}
		}
	case strings.HasPrefix(s, ">"):
		if v, ok := ParseNumber(strings.TrimLeft(s[1:], "= ")); ok {
			return model.ReferenceRange{Min: &v}
		}
	}

	return model.ReferenceRange{}
}
