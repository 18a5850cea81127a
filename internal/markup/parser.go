package markup

import "strings"

var styleDelimiters = map[string]nodeType{
	"~~": nodeStrikethrough,
	"||": nodeSpoiler,
}

// parse converts tokens into a tree. Emphasis never crosses a line break.
// In block mode consecutive "> " lines merge into one blockquote and other
// line breaks become lineBreak nodes; inline mode keeps them as text.
func parse(tokens []token, inline bool) *documentNode {
	doc := &documentNode{}
	var quote *blockquoteNode
	prevQuote := false

	for i, line := range splitLines(tokens) {
		if !inline && len(line) > 0 && line[0].Type == tokenQuote {
			if quote == nil {
				quote = &blockquoteNode{}
				doc.Children = append(doc.Children, quote)
			} else {
				quote.Children = append(quote.Children, &lineBreakNode{})
			}
			for _, n := range parseInline(line[1:]) {
				quote.Children = appendNode(quote.Children, n)
			}
			prevQuote = true
			continue
		}

		quote = nil
		if i > 0 && !prevQuote {
			if inline {
				doc.Children = appendNode(doc.Children, &textNode{Content: "\n"})
			} else {
				doc.Children = append(doc.Children, &lineBreakNode{})
			}
		}
		prevQuote = false
		for _, n := range parseInline(line) {
			doc.Children = appendNode(doc.Children, n)
		}
	}
	return doc
}

func splitLines(tokens []token) [][]token {
	lines := [][]token{nil}
	for _, tok := range tokens {
		if tok.Type == tokenNewline {
			lines = append(lines, nil)
			continue
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], tok)
	}
	return lines
}

type frame struct {
	delim string // "~~" or "||", or the character of an emphasis run
	// count is the number of unmatched characters left in an emphasis run
	count    int
	children []node
}

func (f *frame) source() string {
	if f.count > 0 {
		return strings.Repeat(f.delim, f.count)
	}
	return f.delim
}

func isEmphasisRun(delim string) bool {
	return delim[0] == '*' || delim[0] == '_'
}

// parseInline pairs delimiters with an explicit stack. A closer matches the
// nearest open frame with the same delimiter; frames above it were never
// closed and fall back to literal text.
func parseInline(tokens []token) []node {
	stack := []*frame{{}}
	top := func() *frame { return stack[len(stack)-1] }

	for _, tok := range tokens {
		if tok.Type != tokenDelim {
			top().children = appendNode(top().children, leafNode(tok))
			continue
		}
		if isEmphasisRun(tok.Value) {
			stack = parseRun(stack, tok)
			continue
		}

		if tok.CanClose {
			if i := findOpener(stack, tok.Value); i > 0 {
				for len(stack)-1 > i {
					stack = unwind(stack)
				}
				f := top()
				stack = stack[:len(stack)-1]
				top().children = append(top().children, &styleNode{
					Kind:     styleDelimiters[tok.Value],
					Children: f.children,
				})
				continue
			}
		}

		if tok.CanOpen {
			stack = append(stack, &frame{delim: tok.Value})
			continue
		}
		top().children = appendNode(top().children, &textNode{Content: tok.Value})
	}

	for len(stack) > 1 {
		stack = unwind(stack)
	}
	return stack[0].children
}

// parseRun matches a run of * or _ against open runs of the same character,
// innermost characters first. Each match takes two characters (bold) when
// both runs have at least two left, except that two odd runs match a single
// character (italic) first. Characters left over open a new run or stay
// literal.
func parseRun(stack []*frame, tok token) []*frame {
	char := tok.Value[:1]
	left := len(tok.Value)

	for tok.CanClose && left > 0 {
		i := findRunOpener(stack, char, left)
		if i == 0 {
			break
		}
		for len(stack)-1 > i {
			stack = unwind(stack)
		}

		f := stack[i]
		use, kind := 1, nodeItalic
		if f.count >= 2 && left >= 2 && (f.count%2 == 0 || left%2 == 0) {
			use, kind = 2, nodeBold
		}
		f.children = []node{&styleNode{Kind: kind, Children: f.children}}
		f.count -= use
		left -= use

		if f.count == 0 {
			stack = stack[:i]
			parent := stack[i-1]
			for _, n := range f.children {
				parent.children = appendNode(parent.children, n)
			}
		}
	}

	if left == 0 {
		return stack
	}
	if tok.CanOpen {
		return append(stack, &frame{delim: char, count: left})
	}
	parent := stack[len(stack)-1]
	parent.children = appendNode(parent.children, &textNode{Content: strings.Repeat(char, left)})
	return stack
}

// findRunOpener returns the stack index of the open run to close with a
// closing run of n characters: one of the same length when there is one,
// otherwise the nearest. It returns 0 when there is none.
func findRunOpener(stack []*frame, char string, n int) int {
	nearest := 0
	for i := len(stack) - 1; i > 0; i-- {
		f := stack[i]
		if f.count == 0 || f.delim != char {
			continue
		}
		if len(f.children) == 0 && i == len(stack)-1 {
			continue
		}
		if f.count == n {
			return i
		}
		if nearest == 0 {
			nearest = i
		}
	}
	return nearest
}

// findOpener returns the stack index of the nearest frame opened by delim,
// or 0 when there is none. A frame with nothing inside cannot be closed.
func findOpener(stack []*frame, delim string) int {
	for i := len(stack) - 1; i > 0; i-- {
		if stack[i].count > 0 || stack[i].delim != delim {
			continue
		}
		if len(stack[i].children) == 0 && i == len(stack)-1 {
			return 0
		}
		return i
	}
	return 0
}

// unwind pops the top frame and folds it back into its parent as text.
func unwind(stack []*frame) []*frame {
	f := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	parent := stack[len(stack)-1]
	parent.children = appendNode(parent.children, &textNode{Content: f.source()})
	for _, n := range f.children {
		parent.children = appendNode(parent.children, n)
	}
	return stack
}

func leafNode(tok token) node {
	switch tok.Type {
	case tokenCodeBlock:
		return &codeBlockNode{Lang: tok.Lang, Content: tok.Content}
	case tokenInlineCode:
		return &inlineCodeNode{Content: tok.Content}
	case tokenLink:
		return &linkNode{URL: tok.URL, Text: tok.Content}
	case tokenAutolink:
		return &linkNode{URL: tok.URL, Text: tok.URL, Auto: true}
	case tokenUserMention:
		return &userMentionNode{UserID: tok.ID}
	case tokenRoleMention:
		return &roleMentionNode{RoleID: tok.ID}
	case tokenChannelMention:
		return &channelMentionNode{ChannelID: tok.ID}
	case tokenEveryone:
		return &specialMentionNode{MentionType: "everyone"}
	case tokenHere:
		return &specialMentionNode{MentionType: "here"}
	case tokenEmoji:
		return &emojiNode{Name: tok.Name, ID: tok.ID, Animated: tok.Animated}
	default:
		return &textNode{Content: tok.Value}
	}
}
