package phase

import (
	"strings"
	"unicode"
)

// NormalizePair uppercases a symbol and inserts the slash for six-letter
// forms: "eurusd", "EUR_USD" and "eur-usd" all become "EUR/USD".
func NormalizePair(pair string) string {
	p := strings.ToUpper(strings.TrimSpace(pair))
	p = strings.NewReplacer("_", "/", "-", "/", " ", "").Replace(p)
	if !strings.Contains(p, "/") && len(p) == 6 && isLetters(p) {
		p = p[:3] + "/" + p[3:]
	}
	return p
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
