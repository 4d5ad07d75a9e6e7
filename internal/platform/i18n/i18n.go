// Package i18n loads the embedded locale catalogs and resolves the language
// used to render pages and flash messages.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the fallback for keys missing from other catalogs.
const BaseLocale = "en-US"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds every loaded locale and the matcher over them.
type Bundle struct {
	builder   *catalog.Builder
	supported []language.Tag
	matcher   language.Matcher
	keys      map[string]map[string]struct{}
}

// Load parses the embedded catalogs.
func Load() (*Bundle, error) {
	return LoadFS(embeddedLocales)
}

// LoadFS parses every locales/*.yaml file in fsys.
func LoadFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale catalogs found")
	}
	sort.Strings(paths)

	base := language.MustParse(BaseLocale)
	b := &Bundle{
		builder: catalog.NewBuilder(catalog.Fallback(base)),
		keys:    make(map[string]map[string]struct{}),
	}

	// The base locale goes first so the matcher falls back to it.
	b.supported = append(b.supported, base)

	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}

		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		if err := b.add(path, file); err != nil {
			return nil, err
		}
	}

	if _, ok := b.keys[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}

	b.matcher = language.NewMatcher(b.supported)
	return b, nil
}

func (b *Bundle) add(path string, file catalogFile) error {
	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", path)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("catalog %s: parse locale %q: %w", path, locale, err)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages map is required", path)
	}
	if _, exists := b.keys[locale]; exists {
		return fmt.Errorf("catalog %s: locale %q defined twice", path, locale)
	}

	keys := make(map[string]struct{}, len(file.Messages))
	for key, value := range file.Messages {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", path)
		}
		if err := b.builder.SetString(tag, key, value); err != nil {
			return fmt.Errorf("catalog %s: set %q: %w", path, key, err)
		}
		keys[key] = struct{}{}
	}
	b.keys[locale] = keys

	if locale != BaseLocale {
		b.supported = append(b.supported, tag)
	}
	return nil
}

// Supported returns the loaded locales, base locale first.
func (b *Bundle) Supported() []language.Tag {
	out := make([]language.Tag, len(b.supported))
	copy(out, b.supported)
	return out
}

// Has reports whether locale defines key.
func (b *Bundle) Has(locale, key string) bool {
	_, ok := b.keys[locale][key]
	return ok
}

// Match picks the best supported locale for the given preferences, which
// may be BCP 47 tags or raw Accept-Language header values. Empty and
// unparsable preferences are skipped.
func (b *Bundle) Match(preferences ...string) language.Tag {
	var tags []language.Tag
	for _, pref := range preferences {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(pref)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return b.supported[0]
	}
	_, index, confidence := b.matcher.Match(tags...)
	if confidence == language.No {
		return b.supported[0]
	}
	return b.supported[index]
}

// Printer returns a message printer for tag backed by this bundle.
func (b *Bundle) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(b.builder))
}

// Translate formats key for tag.
func (b *Bundle) Translate(tag language.Tag, key string, args ...any) string {
	return b.Printer(tag).Sprintf(key, args...)
}
