// Package i18n loads the bot's reply catalogs from embedded YAML files.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var LocalesFS embed.FS

const DefaultLang = "en"

// Catalog maps a key to its alternative lines.
type Catalog struct {
	lines map[string][]string
}

// Load reads locales/<lang>.yaml from fsys.
func Load(fsys fs.FS, lang string) (*Catalog, error) {
	name := path.Join("locales", lang+".yaml")
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", name, err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var lines map[string][]string
	if err := yaml.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &Catalog{lines: lines}, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded English catalog. It panics when the embedded
// file does not parse, which only a broken build can cause.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(LocalesFS, DefaultLang)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Lines returns the alternatives for key, or nil.
func (c *Catalog) Lines(key string) []string {
	if c == nil {
		return nil
	}
	return c.lines[key]
}
