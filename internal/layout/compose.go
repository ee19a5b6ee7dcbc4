package layout

import (
	"strconv"
	"strings"

	"github.com/rezonia/fattura-renderer/internal/render"
)

// A4 portrait in points
const (
	pageWidth    = 595.0
	pageHeight   = 842.0
	margin       = 30.0
	contentWidth = pageWidth - 2*margin

	bandHeight = 15.0
	cellPad    = 3.0
	blockGap   = 10.0
)

const white = "#ffffff"

// sheet is one physical page. Coordinates passed to its methods are
// measured from the top edge, the PDF spec flips them.
type sheet struct {
	Texts []textItem
	Boxes []boxItem
}

func (s *sheet) text(value string, x, top float64, st style) {
	if value == "" {
		return
	}
	for _, run := range placeholderRuns(value) {
		s.Texts = append(s.Texts, textItem{
			Value: escapePercent(run),
			Pos:   [2]float64{round(x), round(pageHeight - top - float64(st.size))},
			Font:  fontSpec{Name: st.font, Size: st.size, Color: st.color},
		})
		x += textWidth(run, st)
	}
}

// placeholderRuns cuts value after every '%' followed by p, P, t or v.
// pdfcpu expands those pairs even when the '%' is doubled, so such a pair
// must never share a text item.
func placeholderRuns(value string) []string {
	var runs []string
	start := 0
	for i := 0; i < len(value)-1; i++ {
		if value[i] == '%' && strings.IndexByte("pPtv", value[i+1]) >= 0 {
			runs = append(runs, value[start:i+1])
			start = i + 1
		}
	}
	return append(runs, value[start:])
}

// escapePercent writes each run of n '%' as n+1, which pdfcpu reads back as
// n literal '%'
func escapePercent(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	for i := 0; i < len(s); i++ {
		b.WriteByte(s[i])
		if s[i] == '%' && (i+1 == len(s) || s[i+1] != '%') {
			b.WriteByte('%')
		}
	}
	return b.String()
}

func (s *sheet) textRight(value string, right, top float64, st style) {
	s.text(value, right-textWidth(value, st), top, st)
}

func (s *sheet) textCenter(value string, center, top float64, st style) {
	s.text(value, center-textWidth(value, st)/2, top, st)
}

func (s *sheet) box(x, top, width, height float64, fill string) {
	s.Boxes = append(s.Boxes, boxItem{
		Pos:       [2]float64{round(x), round(pageHeight - top - height)},
		Width:     round(width),
		Height:    round(height),
		FillColor: fill,
	})
}

// composer flows the blocks of the logical pages onto physical sheets
type composer struct {
	sheets []*sheet
	cur    *sheet
	y      float64
	page   *render.Page
}

// compose lays out every logical page. A page always starts on a new sheet
// and spills onto further sheets when its content does not fit.
func compose(pages []render.Page) []*sheet {
	c := &composer{}
	for i := range pages {
		c.page = &pages[i]
		c.newSheet()
		c.header()
		c.parties()
		if c.page.Cause != nil {
			c.rule()
			c.title(c.page.Cause.Title)
			c.paragraph(c.page.Cause.Text, c.style(fontRegular, 10, c.page.Colors.Text))
		}
		c.rule()
		c.title(c.page.Lines.Title)
		c.table(&c.page.Lines)
		if c.page.Attachments != nil {
			c.y += blockGap
			c.title(c.page.Attachments.Title)
			c.table(c.page.Attachments)
		}
		c.footer()
	}
	return c.sheets
}

func (c *composer) style(font string, size int, color string) style {
	return style{font: font, size: size, color: color}
}

func (c *composer) bottom() float64 {
	return pageHeight - margin
}

func (c *composer) newSheet() {
	c.cur = &sheet{}
	c.sheets = append(c.sheets, c.cur)
	c.y = margin

	c.cur.box(0, 0, pageWidth, bandHeight, c.page.Colors.Primary)
	if c.page.Attribution != "" {
		st := c.style(fontRegular, 8, c.page.Colors.FooterText)
		c.cur.textCenter(c.page.Attribution, pageWidth/2, pageHeight-margin+8, st)
	}
}

// ensure moves to a new sheet when height does not fit below the cursor
func (c *composer) ensure(height float64) bool {
	if c.y+height <= c.bottom() {
		return false
	}
	c.newSheet()
	return true
}

func (c *composer) header() {
	colors := c.page.Colors
	title := c.style(fontBold, 14, colors.Text)
	c.cur.text(c.page.Title, margin, c.y, title)

	label := c.style(fontRegular, 11, colors.Text)
	top := c.y
	for _, e := range c.page.Summary {
		c.cur.textRight(e.Label+": "+e.Value, pageWidth-margin, top, label)
		top += label.lineHeight()
	}

	c.y = max(c.y+title.lineHeight(), top) + blockGap
}

type styledLine struct {
	text string
	st   style
}

func (c *composer) partyLines(p render.Party, width float64) []styledLine {
	colors := c.page.Colors
	role := c.style(fontBold, 10, colors.Text)
	name := c.style(fontRegular, 12, colors.Primary)
	detail := c.style(fontRegular, 9, colors.LighterText)

	lines := []styledLine{{p.Role, role}}
	for _, l := range wrap(p.Name, name, width) {
		lines = append(lines, styledLine{l, name})
	}
	for _, d := range p.Details {
		for _, l := range wrap(d, detail, width) {
			lines = append(lines, styledLine{l, detail})
		}
	}
	return lines
}

func height(lines []styledLine) float64 {
	h := 0.0
	for _, l := range lines {
		h += l.st.lineHeight()
	}
	return h
}

func (c *composer) parties() {
	colWidth := contentWidth / 2
	for _, row := range c.page.Parties {
		blocks := make([][]styledLine, len(row))
		rowHeight := 0.0
		for i, p := range row {
			blocks[i] = c.partyLines(p, colWidth-blockGap)
			rowHeight = max(rowHeight, height(blocks[i]))
		}

		c.ensure(rowHeight)
		for i, lines := range blocks {
			x := margin + float64(i)*colWidth
			top := c.y
			for _, l := range lines {
				c.cur.text(l.text, x, top, l.st)
				top += l.st.lineHeight()
			}
		}
		c.y += rowHeight + blockGap
	}
}

func (c *composer) rule() {
	c.ensure(2 * blockGap)
	c.cur.box(margin, c.y+blockGap/2, contentWidth, 1, c.page.Colors.TableHeader)
	c.y += 1.5 * blockGap
}

// title keeps a section title on the same sheet as the first rows below it
func (c *composer) title(text string) {
	st := c.style(fontBold, 14, c.page.Colors.Text)
	c.ensure(st.lineHeight() + 3*c.style(fontRegular, 9, "").lineHeight())
	c.cur.text(text, margin, c.y, st)
	c.y += st.lineHeight() + 4
}

func (c *composer) paragraph(text string, st style) {
	for _, l := range wrap(text, st, contentWidth) {
		c.ensure(st.lineHeight())
		c.cur.text(l, margin, c.y, st)
		c.y += st.lineHeight()
	}
}

func (c *composer) table(t *render.Table) {
	colors := c.page.Colors
	head := c.style(fontBold, 9, colors.Text)
	cell := c.style(fontRegular, 9, colors.Text)
	mono := c.style(fontMono, 9, colors.Text)

	widths := make([]float64, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = col.Width * contentWidth
	}

	headerHeight := head.lineHeight() + 2*cellPad
	drawHeader := func() {
		c.cur.box(margin, c.y, contentWidth, headerHeight, colors.TableHeader)
		x := margin
		for i, col := range t.Columns {
			c.cell(col.Title, col.Align, x, widths[i], c.y+cellPad, head)
			x += widths[i]
		}
		c.y += headerHeight
	}

	c.ensure(headerHeight + cell.lineHeight() + 2*cellPad)
	drawHeader()

	for _, row := range t.Rows {
		cells := make([][]string, len(t.Columns))
		lines := 1
		for i := range t.Columns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			st := cell
			if t.Columns[i].Align == render.AlignRight {
				st = mono
			}
			cells[i] = wrap(value, st, widths[i]-2*cellPad)
			lines = max(lines, len(cells[i]))
		}

		rowHeight := float64(lines)*cell.lineHeight() + 2*cellPad
		if c.ensure(rowHeight) {
			drawHeader()
		}

		x := margin
		for i, col := range t.Columns {
			st := cell
			if col.Align == render.AlignRight {
				st = mono
			}
			top := c.y + cellPad
			for _, l := range cells[i] {
				c.cell(l, col.Align, x, widths[i], top, st)
				top += st.lineHeight()
			}
			x += widths[i]
		}
		c.y += rowHeight
		c.cur.box(margin, c.y-0.5, contentWidth, 0.5, colors.LighterGray)
	}
}

func (c *composer) cell(value string, align render.Align, x, width, top float64, st style) {
	switch align {
	case render.AlignRight:
		c.cur.textRight(value, x+width-cellPad, top, st)
	case render.AlignCenter:
		c.cur.textCenter(value, x+width/2, top, st)
	default:
		c.cur.text(value, x+cellPad, top, st)
	}
}

// footer draws stamp duty, payment and recap at the bottom of the last
// sheet of the page, starting a new sheet when the body reaches that area.
func (c *composer) footer() {
	colors := c.page.Colors
	colWidth := contentWidth / 2
	heading := c.style(fontBold, 12, colors.Text)
	body := c.style(fontRegular, 10, colors.LighterText)

	var left []styledLine
	if s := c.page.StampDuty; s != nil {
		left = append(left, styledLine{s.Title, heading}, styledLine{s.Text, body})
	}
	if p := c.page.Payment; p != nil {
		left = append(left, styledLine{p.Title, heading})
		for _, e := range p.Entries {
			for _, l := range wrap(e.Label+": "+e.Value, body, colWidth-blockGap) {
				left = append(left, styledLine{l, body})
			}
		}
	}

	recapLabel := c.style(fontRegular, 10, white)
	recapValue := c.style(fontMono, 10, white)
	totalLabel := c.style(fontBold, 12, white)
	totalValue := c.style(fontMono, 21, white)
	recapHeight := 12 + 2*recapLabel.lineHeight() + 4 + totalValue.lineHeight() + 14

	footerHeight := max(height(left), recapHeight)
	if c.y+blockGap+footerHeight > c.bottom() {
		c.newSheet()
	}
	top := c.bottom() - footerHeight

	y := top + footerHeight - height(left)
	for _, l := range left {
		c.cur.text(l.text, margin, y, l.st)
		y += l.st.lineHeight()
	}

	x := margin + colWidth
	right := pageWidth - margin - blockGap
	y = top + footerHeight - recapHeight
	c.cur.box(x, y, colWidth, recapHeight, colors.Primary)

	recap := c.page.Recap
	y += 12
	for _, e := range []render.Entry{recap.Taxable, recap.Tax} {
		c.cur.text(e.Label, x+blockGap, y, recapLabel)
		c.cur.textRight(e.Value, right, y, recapValue)
		y += recapLabel.lineHeight()
	}
	y += 4
	c.cur.text(recap.Total.Label, x+blockGap, y+float64(totalValue.size-totalLabel.size), totalLabel)
	c.cur.textRight(recap.Total.Value, right, y, totalValue)
}

// round keeps two decimals so the generated content stream stays compact
func round(f float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 2, 64), 64)
	return v
}
