package importer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// amountJunkRe strips currency symbols, thousands separators, and
	// other decoration, leaving digits, dots, and minus signs.
	amountJunkRe = regexp.MustCompile(`[^0-9.\-]`)

	// currencyPrefixRe removes spelled-out currency markers whose dot
	// would otherwise survive the junk pass, as in "Rs. 500".
	currencyPrefixRe = regexp.MustCompile(`(?i)^(rs\.?|inr|₹)\s*`)
)

// ParseAmount parses a locale-liberal signed amount string. Accepted
// forms include "500", "-500.50", "(-) 500", "(500)" (both negative),
// and "₹1,250.50". Empty input yields 0. Anything that does not
// reduce to a number is an error the caller surfaces as a row-level
// failure; ParseAmount itself never panics.
func ParseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}

	neg := false
	if strings.Contains(s, "(-)") {
		neg = true
		s = strings.ReplaceAll(s, "(-)", "")
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	s = currencyPrefixRe.ReplaceAllString(strings.TrimSpace(s), "")
	s = amountJunkRe.ReplaceAllString(s, "")
	if s == "" || s == "-" || s == "." {
		return 0, eris.Errorf("unparseable amount %q", raw)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Errorf("unparseable amount %q", raw)
	}

	if neg && v > 0 {
		v = -v
	}
	return v, nil
}
