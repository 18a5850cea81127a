package markup

import "html"

// Escape replaces the HTML metacharacters & < > " ' with their entities.
// Renderers call it exactly once, on output, for every piece of
// user-supplied text.
func Escape(s string) string {
	return html.EscapeString(s)
}
