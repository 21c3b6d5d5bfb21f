// Package i18n provides localized messages for envelope formatting. Catalogs
// are flat YAML files embedded at build time; lookups never fail, falling
// back to the base language and finally to the key itself.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Translator resolves message keys to localized strings.
type Translator interface {
	// T returns the message for key in lang, falling back to the base
	// language ("en-US" -> "en"), then to the default catalog, then the key.
	T(key, lang string) string
}

type catalogs struct {
	byLang      map[string]map[string]string
	defaultLang string
}

// Load parses the embedded catalogs. defaultLang is the catalog used when a
// requested language has no entry at all.
func Load(defaultLang string) (Translator, error) {
	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("read embedded locales: %w", err)
	}

	c := &catalogs{
		byLang:      make(map[string]map[string]string, len(entries)),
		defaultLang: defaultLang,
	}
	for _, e := range entries {
		name := e.Name()
		lang := strings.TrimSuffix(name, path.Ext(name))
		raw, err := localeFS.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		c.byLang[lang] = flat
	}

	if _, ok := c.byLang[defaultLang]; !ok {
		return nil, fmt.Errorf("default locale %q has no catalog", defaultLang)
	}
	return c, nil
}

// flatten turns nested YAML maps into dotted keys: errors.internal etc.
func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		case string:
			out[key] = t
		default:
			out[key] = fmt.Sprint(t)
		}
	}
}

func (c *catalogs) T(key, lang string) string {
	if m, ok := c.byLang[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	// region-tagged lang falls back to its base: en-US -> en
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		if m, ok := c.byLang[lang[:i]]; ok {
			if s, ok := m[key]; ok {
				return s
			}
		}
	}
	if m, ok := c.byLang[c.defaultLang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	return key
}

// Langs returns the set of loaded catalog languages, for startup logging.
func (c *catalogs) Langs() []string {
	out := make([]string, 0, len(c.byLang))
	for l := range c.byLang {
		out = append(out, l)
	}
	return out
}
