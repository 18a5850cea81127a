package markup

import "github.com/google/uuid"

// node represents an element of the parsed content tree
type node interface {
	Type() nodeType
}

type nodeType int

const (
	nodeDocument nodeType = iota
	nodeText
	nodeBold
	nodeItalic
	nodeStrikethrough
	nodeSpoiler
	nodeInlineCode
	nodeCodeBlock
	nodeLink
	nodeUserMention
	nodeRoleMention
	nodeChannelMention
	nodeSpecialMention
	nodeEmoji
	nodeBlockquote
	nodeLineBreak
)

type documentNode struct {
	Children []node
}

func (n *documentNode) Type() nodeType { return nodeDocument }

type textNode struct {
	Content string
}

func (n *textNode) Type() nodeType { return nodeText }

// styleNode is an emphasis container: bold, italic, strikethrough or spoiler.
type styleNode struct {
	Kind     nodeType
	Children []node
}

func (n *styleNode) Type() nodeType { return n.Kind }

type inlineCodeNode struct {
	Content string
}

func (n *inlineCodeNode) Type() nodeType { return nodeInlineCode }

type codeBlockNode struct {
	Lang    string
	Content string
}

func (n *codeBlockNode) Type() nodeType { return nodeCodeBlock }

type linkNode struct {
	URL  string
	Text string
	Auto bool // bare URL rather than [text](url)
}

func (n *linkNode) Type() nodeType { return nodeLink }

type userMentionNode struct {
	UserID uuid.UUID
}

func (n *userMentionNode) Type() nodeType { return nodeUserMention }

type roleMentionNode struct {
	RoleID uuid.UUID
}

func (n *roleMentionNode) Type() nodeType { return nodeRoleMention }

type channelMentionNode struct {
	ChannelID uuid.UUID
}

func (n *channelMentionNode) Type() nodeType { return nodeChannelMention }

type specialMentionNode struct {
	MentionType string // "everyone" or "here"
}

func (n *specialMentionNode) Type() nodeType { return nodeSpecialMention }

type emojiNode struct {
	Name     string
	ID       uuid.UUID
	Animated bool
}

func (n *emojiNode) Type() nodeType { return nodeEmoji }

type blockquoteNode struct {
	Children []node
}

func (n *blockquoteNode) Type() nodeType { return nodeBlockquote }

type lineBreakNode struct{}

func (n *lineBreakNode) Type() nodeType { return nodeLineBreak }

// appendNode adds n to children, merging adjacent text.
func appendNode(children []node, n node) []node {
	if t, ok := n.(*textNode); ok && len(children) > 0 {
		if last, ok := children[len(children)-1].(*textNode); ok {
			last.Content += t.Content
			return children
		}
	}
	return append(children, n)
}
