package install

import (
	"fmt"
	"strings"
)

// DesktopEntry is the metadata registered with the desktop environment's
// application menu.
//
// Reference: https://specifications.freedesktop.org/desktop-entry-spec/latest/
type DesktopEntry struct {
	// Name is the menu display name.
	Name string
	// Comment is the tooltip line.
	Comment string
	// Exec is the command line to launch.
	Exec string
	// Icon is the icon name looked up in the icon theme.
	Icon string
	// Terminal reports whether the application runs in a terminal.
	Terminal bool
	// Categories are freedesktop menu categories.
	Categories []string
	// Keywords aid desktop search.
	Keywords []string
}

// Render produces the .desktop file content.
func (e DesktopEntry) Render() string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")

	writeField := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s=%s\n", key, value)
		}
	}
	writeList := func(key string, values []string) {
		// Desktop entry list values end with a ';' separator.
		if len(values) > 0 {
			fmt.Fprintf(&b, "%s=%s;\n", key, strings.Join(values, ";"))
		}
	}

	writeField("Name", e.Name)
	writeField("Comment", e.Comment)
	writeField("Exec", e.Exec)
	writeField("Icon", e.Icon)
	fmt.Fprintf(&b, "Terminal=%v\n", e.Terminal)
	writeList("Categories", e.Categories)
	writeList("Keywords", e.Keywords)
	return b.String()
}
