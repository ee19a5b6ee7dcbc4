package render

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when no locale is configured or the requested one
// is not supported
const DefaultLocale = "it"

//go:embed translations/*.yaml
var translationFS embed.FS

// Catalog holds the localized strings of one locale
type Catalog struct {
	Tag            language.Tag      `yaml:"-"`
	DateLayout     string            `yaml:"dateLayout"`
	RegionLayouts  map[string]string `yaml:"regionDateLayouts"`
	Labels         map[string]string `yaml:"labels"`
	PaymentMethods map[string]string `yaml:"paymentMethods"`
}

// DateLayoutFor returns the date layout for tag, preferring a layout
// registered for its explicit region
func (c *Catalog) DateLayoutFor(tag language.Tag) string {
	if region, conf := tag.Region(); conf == language.Exact {
		if layout, ok := c.RegionLayouts[region.String()]; ok {
			return layout
		}
	}
	if c.DateLayout == "" {
		return "02/01/2006"
	}
	return c.DateLayout
}

// Label returns the translation of key, or key itself when missing
func (c *Catalog) Label(key string) string {
	if s, ok := c.Labels[key]; ok {
		return s
	}
	return key
}

// PaymentMethod translates a ModalitaPagamento code, keeping unknown codes as is
func (c *Catalog) PaymentMethod(code string) string {
	if s, ok := c.PaymentMethods[code]; ok {
		return s
	}
	return code
}

type catalogSet struct {
	catalogs []*Catalog
	matcher  language.Matcher
}

var (
	loadOnce  sync.Once
	loaded    *catalogSet
	loadError error
)

// catalogs parses the embedded translations once. The default locale is
// always first so that the matcher falls back to it.
func catalogs() (*catalogSet, error) {
	loadOnce.Do(func() {
		loaded, loadError = loadCatalogs()
	})
	return loaded, loadError
}

func loadCatalogs() (*catalogSet, error) {
	entries, err := translationFS.ReadDir("translations")
	if err != nil {
		return nil, fmt.Errorf("failed to read translations: %w", err)
	}

	set := &catalogSet{}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("invalid translation file %s: %w", entry.Name(), err)
		}

		data, err := translationFS.ReadFile(path.Join("translations", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		c := &Catalog{}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		c.Tag = tag

		if name == DefaultLocale {
			set.catalogs = append([]*Catalog{c}, set.catalogs...)
		} else {
			set.catalogs = append(set.catalogs, c)
		}
	}

	if len(set.catalogs) == 0 || set.catalogs[0].Tag.String() != DefaultLocale {
		return nil, fmt.Errorf("missing %s translation", DefaultLocale)
	}

	tags := make([]language.Tag, len(set.catalogs))
	for i, c := range set.catalogs {
		tags[i] = c.Tag
	}
	set.matcher = language.NewMatcher(tags)
	return set, nil
}

// SupportedLocales lists the locales with a translation catalog
func SupportedLocales() []string {
	set, err := catalogs()
	if err != nil {
		return nil
	}
	out := make([]string, len(set.catalogs))
	for i, c := range set.catalogs {
		out[i] = c.Tag.String()
	}
	return out
}

// ResolveLocale picks the catalog for a BCP-47 locale string. The second
// return value reports whether the request was honoured; an empty locale
// selects the default and counts as honoured.
func ResolveLocale(locale string) (*Catalog, bool) {
	c, _, ok := resolveLocale(locale)
	return c, ok
}

// resolveLocale also returns the tag that drives number and date
// formatting: the requested tag when a catalog matches it, otherwise the
// tag of the chosen catalog.
func resolveLocale(locale string) (*Catalog, language.Tag, bool) {
	set, err := catalogs()
	if err != nil {
		// the catalogs are embedded, a failure here is a build defect
		panic(err)
	}
	def := set.catalogs[0]

	locale = strings.TrimSpace(locale)
	if locale == "" {
		return def, def.Tag, true
	}

	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return def, def.Tag, false
	}

	_, index, confidence := set.matcher.Match(tag)
	if confidence == language.No {
		return def, def.Tag, false
	}
	return set.catalogs[index], tag, true
}
