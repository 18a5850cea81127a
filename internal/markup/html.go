package markup

import "strings"

// Render converts message content into HTML. Text is escaped once, when it
// is written; markup produced here is never re-scanned.
func Render(content string, opts Options) string {
	doc := parse(tokenize(content, opts.Inline), opts.Inline)

	r := &htmlRenderer{opts: opts}
	r.renderNodes(doc.Children)
	return r.buf.String()
}

type htmlRenderer struct {
	opts Options
	buf  strings.Builder
}

func (r *htmlRenderer) renderNodes(nodes []node) {
	for _, n := range nodes {
		r.renderNode(n)
	}
}

func (r *htmlRenderer) wrap(openTag, closeTag string, children []node) {
	r.buf.WriteString(openTag)
	r.renderNodes(children)
	r.buf.WriteString(closeTag)
}

func (r *htmlRenderer) renderNode(n node) {
	switch n := n.(type) {
	case *textNode:
		r.buf.WriteString(Escape(n.Content))

	case *styleNode:
		switch n.Kind {
		case nodeBold:
			r.wrap("<strong>", "</strong>", n.Children)
		case nodeItalic:
			r.wrap("<em>", "</em>", n.Children)
		case nodeStrikethrough:
			r.wrap("<s>", "</s>", n.Children)
		case nodeSpoiler:
			r.wrap(`<span class="spoiler">`, "</span>", n.Children)
		}

	case *inlineCodeNode:
		r.buf.WriteString("<code>" + Escape(n.Content) + "</code>")

	case *codeBlockNode:
		if n.Lang != "" {
			r.buf.WriteString(`<pre><code class="language-` + Escape(n.Lang) + `">`)
		} else {
			r.buf.WriteString("<pre><code>")
		}
		r.buf.WriteString(Escape(n.Content))
		r.buf.WriteString("</code></pre>")

	case *linkNode:
		r.buf.WriteString(`<a href="` + Escape(n.URL) + `" target="_blank" rel="noopener noreferrer">`)
		r.buf.WriteString(Escape(n.Text))
		r.buf.WriteString("</a>")

	case *userMentionNode:
		class := "mention mention-user"
		if n.UserID == r.opts.CurrentUserID {
			class += " mention-me"
		}
		r.buf.WriteString(`<span class="` + class + `" data-user-id="` + n.UserID.String() + `">@`)
		r.buf.WriteString(Escape(r.opts.Lookup.UserName(n.UserID)))
		r.buf.WriteString("</span>")

	case *roleMentionNode:
		name, color := r.opts.Lookup.Role(n.RoleID)
		r.buf.WriteString(`<span class="mention mention-role" data-role-id="` + n.RoleID.String() + `"`)
		if color != "" {
			r.buf.WriteString(` style="color: ` + color + `"`)
		}
		r.buf.WriteString(">@" + Escape(name) + "</span>")

	case *channelMentionNode:
		r.buf.WriteString(`<span class="mention mention-channel" data-channel-id="` + n.ChannelID.String() + `">#`)
		r.buf.WriteString(Escape(r.opts.Lookup.ChannelName(n.ChannelID)))
		r.buf.WriteString("</span>")

	case *specialMentionNode:
		r.buf.WriteString(`<span class="mention mention-` + n.MentionType + `">@` + n.MentionType + "</span>")

	case *emojiNode:
		r.buf.WriteString(`<span class="emoji" data-emoji-name="` + Escape(n.Name) + `" data-emoji-id="` + n.ID.String() + `"`)
		if n.Animated {
			r.buf.WriteString(` data-animated="true"`)
		}
		r.buf.WriteString(">:" + Escape(n.Name) + ":</span>")

	case *blockquoteNode:
		r.wrap("<blockquote>", "</blockquote>", n.Children)

	case *lineBreakNode:
		r.buf.WriteString("<br>")
	}
}
