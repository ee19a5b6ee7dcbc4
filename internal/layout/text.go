package layout

import (
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/font"
)

const (
	fontRegular = "Helvetica"
	fontBold    = "Helvetica-Bold"
	fontMono    = "Courier"
)

// style is the font of a run of text
type style struct {
	font  string
	size  int
	color string
}

func (s style) lineHeight() float64 {
	return float64(s.size) * 1.3
}

// textWidth measures s with the core font metrics. Runes outside Latin-1
// have no metrics and are measured as a wide glyph.
func textWidth(s string, st style) float64 {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r > 0xFF {
			r = 'W'
		}
		b.WriteRune(r)
	}
	return font.TextWidth(b.String(), st.font, st.size)
}

// wrap splits text into lines no wider than width. Words longer than a
// line are broken between runes.
func wrap(text string, st style, width float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		line := ""
		for _, w := range words {
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if textWidth(candidate, st) <= width {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
			for utf8.RuneCountInString(w) > 1 && textWidth(w, st) > width {
				cut := fit(w, st, width)
				lines = append(lines, w[:cut])
				w = w[cut:]
			}
			line = w
		}
		lines = append(lines, line)
	}
	return lines
}

// fit returns the byte length of the longest rune prefix of w that fits in
// width, at least one rune
func fit(w string, st style, width float64) int {
	end := 0
	for i, r := range w {
		next := i + utf8.RuneLen(r)
		if end > 0 && textWidth(w[:next], st) > width {
			break
		}
		end = next
	}
	return end
}
