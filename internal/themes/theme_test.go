package themes_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hearth-chat/hearth/internal/themes"
	"github.com/m-mizutani/gt"
)

func TestLoader_Embedded(t *testing.T) {
	var l themes.Loader

	theme, err := l.Get("nord")
	gt.NoError(t, err).Required()
	gt.V(t, theme.Meta.Name).Equal("Nord")
	gt.V(t, theme.Meta.CodeStyle).Equal("nord")
	gt.V(t, theme.Semantic.ChatMentionBg).Equal("#5E81AC")

	theme, err = l.Get("")
	gt.NoError(t, err).Required()
	gt.V(t, theme.Meta.Name).Equal("Dracula")

	_, err = l.Get("missing")
	gt.Error(t, err)

	_, err = l.Get("../etc/passwd")
	gt.Error(t, err)

	gt.A(t, l.List()).Equal([]string{"dracula", "gruvbox", "nord"})
}

func TestLoader_UserOverride(t *testing.T) {
	dir := t.TempDir()
	l := themes.Loader{UserDir: dir}

	override := "[meta]\nname = \"My Nord\"\n\n[colors]\nbackground = \"#000000\"\n"
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "nord.toml"), []byte(override), 0600)).Required()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "paper.toml"), []byte("[meta]\nname = \"Paper\"\n"), 0600)).Required()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("[meta\n"), 0600)).Required()

	theme, err := l.Get("nord")
	gt.NoError(t, err).Required()
	gt.V(t, theme.Meta.Name).Equal("My Nord")
	gt.V(t, theme.Colors.Background).Equal("#000000")
	// unset keys keep the built-in values
	gt.V(t, theme.Colors.Foreground).Equal("#F8F8F2")

	gt.V(t, l.DisplayName("paper")).Equal("Paper")
	gt.V(t, l.DisplayName("nope")).Equal("nope")

	_, err = l.Get("broken")
	gt.Error(t, err)

	gt.A(t, l.List()).Equal([]string{"dracula", "gruvbox", "nord", "broken", "paper"})
}

func TestBuildStyles(t *testing.T) {
	styles := themes.GetDefaultTheme().BuildStyles()
	gt.V(t, styles.Markup.CodeTheme).Equal("dracula")
	gt.True(t, styles.Markup.Bold.GetBold())
	gt.True(t, styles.Markup.MentionSelf.GetBold())
}
