package render

import "github.com/rezonia/fattura-renderer/internal/model"

// Align is the horizontal alignment of a table cell
type Align int

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
)

// Document is the output of the renderer: one page per installment plus
// whatever display inputs had to be substituted.
type Document struct {
	Pages     []Page                 `json:"pages"`
	Fallbacks []model.RenderFallback `json:"fallbacks,omitempty"`
}

// Page describes one installment. All values are preformatted strings, the
// layout engine only places them.
type Page struct {
	Key     string     `json:"key"`
	Title   string     `json:"title"`
	Summary []Entry    `json:"summary"`
	Parties []PartyRow `json:"parties"`

	Cause       *TextBlock `json:"cause,omitempty"`
	Lines       Table      `json:"lines"`
	Attachments *Table     `json:"attachments,omitempty"`

	StampDuty *TextBlock    `json:"stampDuty,omitempty"`
	Payment   *PaymentBlock `json:"payment,omitempty"`
	Recap     Recap         `json:"recap"`

	// Attribution is empty when the footer is disabled
	Attribution string `json:"attribution,omitempty"`
	Colors      Colors `json:"colors"`
}

// Entry is a label with its value
type Entry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// PartyRow holds at most two party blocks rendered side by side
type PartyRow []Party

// Party is the block of one company
type Party struct {
	Role    string   `json:"role"`
	Name    string   `json:"name"`
	Details []string `json:"details"`
}

// TextBlock is a titled paragraph
type TextBlock struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Column is a table column. Width is a fraction of the content width.
type Column struct {
	Title string  `json:"title"`
	Width float64 `json:"width"`
	Align Align   `json:"align"`
}

// Table is a titled grid of preformatted cells
type Table struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// PaymentBlock lists the payment details of an installment
type PaymentBlock struct {
	Title   string  `json:"title"`
	Entries []Entry `json:"entries"`
}

// Recap is the totals box anchored at the bottom of the page
type Recap struct {
	Taxable Entry `json:"taxable"`
	Tax     Entry `json:"tax"`
	Total   Entry `json:"total"`
}
