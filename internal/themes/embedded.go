package themes

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultName is the theme used when none is configured
const DefaultName = "dracula"

//go:embed themes/*.toml
var embeddedThemes embed.FS

// Loader resolves themes by name. Lookup order:
//  1. <UserDir>/<name>.toml (user override)
//  2. embedded themes/<name>.toml
//  3. GetDefaultTheme() for "dracula"
type Loader struct {
	// UserDir holds user themes; empty disables overrides
	UserDir string
}

// Get loads a theme by name
func (l Loader) Get(name string) (*Theme, error) {
	if name == "" {
		name = DefaultName
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, goerr.New("invalid theme name", goerr.V("name", name))
	}

	if l.UserDir != "" {
		path := filepath.Join(l.UserDir, name+".toml")
		theme, err := LoadTheme(path)
		if err == nil {
			return theme, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	data, err := embeddedThemes.ReadFile("themes/" + name + ".toml")
	if err == nil {
		theme, err := parseTheme(data)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse embedded theme", goerr.V("name", name))
		}
		return theme, nil
	}

	if name != DefaultName {
		return nil, goerr.New("theme not found", goerr.V("name", name))
	}
	return GetDefaultTheme(), nil
}

// List returns the embedded theme names followed by user themes, sorted
// within each group and without duplicates
func (l Loader) List() []string {
	seen := make(map[string]bool)
	var names []string

	collect := func(entries []fs.DirEntry) {
		var group []string
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ".toml")
			if !seen[name] {
				seen[name] = true
				group = append(group, name)
			}
		}
		slices.Sort(group)
		names = append(names, group...)
	}

	entries, _ := fs.ReadDir(embeddedThemes, "themes")
	collect(entries)

	if l.UserDir != "" {
		userEntries, _ := os.ReadDir(l.UserDir)
		collect(userEntries)
	}
	return names
}

// DisplayName returns the human-readable name for a theme slug
func (l Loader) DisplayName(slug string) string {
	t, err := l.Get(slug)
	if err == nil && t.Meta.Name != "" {
		return t.Meta.Name
	}
	return slug
}
