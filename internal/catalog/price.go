package catalog

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var reLeadingFloat = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)

// ParsePrice converts a price cell to cents. Brazilian grouping ("1.234,56") is
// recognised when a comma follows the last period or no period is present; otherwise
// the text is read as-is up to the first character that cannot continue a number.
// Empty, zero and unparseable input yield 0.
func ParsePrice(s string) int64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	v := b.String()
	if v == "" {
		return 0
	}

	lastComma := strings.LastIndex(v, ",")
	lastPeriod := strings.LastIndex(v, ".")
	if lastComma > lastPeriod || lastPeriod < 0 {
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	}

	num := reLeadingFloat.FindString(v)
	if num == "" {
		return 0
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Floor(f*100 + 0.5))
}

// FormatPrice renders cents as "R$ 1.234,56".
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	return "R$ " + sign + grouped.String() + "," + leftPad2(cents%100)
}

func leftPad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
