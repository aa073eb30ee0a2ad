package recon

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// durationPattern matches the service duration embedded in free text, e.g.
// "洗剪吹 60分鐘". The text format is brittle; keep extraction behind
// ExtractMinutes so the matchers never touch the pattern directly.
var durationPattern = regexp.MustCompile(`(\d+)分鐘`)

// ExtractMinutes pulls a duration in minutes out of service or product text.
// It returns nil when the text carries no recognizable duration.
func ExtractMinutes(text string) *int {
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// normalizeDesigner strips ASCII and full-width spaces and lower-cases, the
// same normalization applied to store names.
func normalizeDesigner(s string) string {
	s = strings.ReplaceAll(s, "　", "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToLower(s)
}

// posDesignerRaw returns the designer name embedded in a POS product text:
// the substring before the first comma. Exports use ASCII and full-width
// commas interchangeably.
func posDesignerRaw(productName string) string {
	cut := len(productName)
	if i := strings.Index(productName, ","); i >= 0 && i < cut {
		cut = i
	}
	if i := strings.Index(productName, "，"); i >= 0 && i < cut {
		cut = i
	}
	return strings.TrimSpace(productName[:cut])
}

// posDesigner returns the normalized POS-side designer name.
func posDesigner(productName string) string {
	return normalizeDesigner(posDesignerRaw(productName))
}

// absGap returns the absolute time distance between two instants.
func absGap(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d
}
