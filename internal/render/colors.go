package render

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rezonia/fattura-renderer/internal/model"
)

// Colors is the theme of a rendered document. Every role holds a
// "#rrggbb" value; an empty role in an override keeps the default.
type Colors struct {
	Primary     string `json:"primary,omitempty" mapstructure:"primary" validate:"omitempty,hexcolor"`
	Text        string `json:"text,omitempty" mapstructure:"text" validate:"omitempty,hexcolor"`
	LighterText string `json:"lighterText,omitempty" mapstructure:"lighter_text" validate:"omitempty,hexcolor"`
	FooterText  string `json:"footerText,omitempty" mapstructure:"footer_text" validate:"omitempty,hexcolor"`
	LighterGray string `json:"lighterGray,omitempty" mapstructure:"lighter_gray" validate:"omitempty,hexcolor"`
	TableHeader string `json:"tableHeader,omitempty" mapstructure:"table_header" validate:"omitempty,hexcolor"`
}

// DefaultColors returns the built-in theme
func DefaultColors() Colors {
	return Colors{
		Primary:     "#6699cc",
		Text:        "#033243",
		LighterText: "#476976",
		FooterText:  "#8ca1a9",
		LighterGray: "#e8eced",
		TableHeader: "#d1d9dc",
	}
}

var colorValidator = validator.New()

// MergeColors lays override on top of the defaults. Overrides that are not
// valid hex colors are dropped and reported.
func MergeColors(override Colors) (Colors, []model.RenderFallback) {
	merged := DefaultColors()
	var fallbacks []model.RenderFallback

	roles := []struct {
		value string
		dst   *string
	}{
		{override.Primary, &merged.Primary},
		{override.Text, &merged.Text},
		{override.LighterText, &merged.LighterText},
		{override.FooterText, &merged.FooterText},
		{override.LighterGray, &merged.LighterGray},
		{override.TableHeader, &merged.TableHeader},
	}

	for _, role := range roles {
		value := strings.TrimSpace(role.value)
		if value == "" {
			continue
		}
		if err := colorValidator.Var(value, "hexcolor"); err != nil {
			fallbacks = append(fallbacks, model.RenderFallback{
				Kind:      model.FallbackColor,
				Requested: value,
				Used:      *role.dst,
			})
			continue
		}
		*role.dst = normalizeHex(value)
	}

	return merged, fallbacks
}

// normalizeHex expands "#abc" to "#aabbcc" and lowercases the result.
// An alpha channel is dropped.
func normalizeHex(s string) string {
	s = strings.ToLower(s)
	switch len(s) {
	case 4, 5:
		return "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	case 9:
		return s[:7]
	}
	return s
}
