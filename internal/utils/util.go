package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var mdReplacer = strings.NewReplacer("*", "\\*", "_", "\\_", "`", "\\`", "~", "\\~", "|", "\\|")

func EscapeMd(s string) string {
	return mdReplacer.Replace(s)
}

// PrettyTime renders seconds as m:ss or h:mm:ss. Zero or negative means
// unknown (live streams) and renders as "LIVE".
func PrettyTime(sec int) string {
	if sec <= 0 {
		return "LIVE"
	}
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Truncate cuts s to at most max runes, ending with an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
