package markup

import "github.com/google/uuid"

// SpanKind identifies the variant of a Span
type SpanKind int

const (
	SpanText SpanKind = iota
	SpanUser
	SpanRole
	SpanChannel
	SpanEveryone
	SpanHere
)

func (k SpanKind) String() string {
	switch k {
	case SpanText:
		return "text"
	case SpanUser:
		return "user"
	case SpanRole:
		return "role"
	case SpanChannel:
		return "channel"
	case SpanEveryone:
		return "everyone"
	case SpanHere:
		return "here"
	default:
		return "unknown"
	}
}

// Span is one typed fragment of message content. Raw, Start and End give
// the exact source region; joining Raw over all spans rebuilds the input.
type Span struct {
	Kind SpanKind
	// Text is the display text: the source text for SpanText, or the label
	// with its sigil ("@alex", "#general") for mentions.
	Text string
	// Name is the resolved label without a sigil.
	Name string
	Raw  string

	Start int
	End   int

	UserID    uuid.UUID
	RoleID    uuid.UUID
	ChannelID uuid.UUID

	// IsCurrentUser is set for mentions that notify the viewer.
	IsCurrentUser bool
	// Color is "#RRGGBB" for colored role mentions.
	Color string
}

// Spans splits content into text and resolved mention spans, left to right
// and non-overlapping. Mentions inside code or links stay text.
func Spans(content string, opts Options) []Span {
	var spans []Span
	for _, tok := range tokenize(content, true) {
		span, ok := mentionSpan(tok, opts)
		if ok {
			spans = append(spans, span)
			continue
		}
		if n := len(spans); n > 0 && spans[n-1].Kind == SpanText {
			last := &spans[n-1]
			last.End = tok.End
			last.Raw = content[last.Start:last.End]
			last.Text = last.Raw
			continue
		}
		spans = append(spans, Span{
			Kind:  SpanText,
			Text:  tok.Value,
			Raw:   tok.Value,
			Start: tok.Start,
			End:   tok.End,
		})
	}
	return spans
}

func mentionSpan(tok token, opts Options) (Span, bool) {
	span := Span{Raw: tok.Value, Start: tok.Start, End: tok.End}

	switch tok.Type {
	case tokenUserMention:
		span.Kind = SpanUser
		span.UserID = tok.ID
		span.Name = opts.Lookup.UserName(tok.ID)
		span.Text = "@" + span.Name
		span.IsCurrentUser = tok.ID == opts.CurrentUserID

	case tokenRoleMention:
		span.Kind = SpanRole
		span.RoleID = tok.ID
		span.Name, span.Color = opts.Lookup.Role(tok.ID)
		span.Text = "@" + span.Name

	case tokenChannelMention:
		span.Kind = SpanChannel
		span.ChannelID = tok.ID
		span.Name = opts.Lookup.ChannelName(tok.ID)
		span.Text = "#" + span.Name

	case tokenEveryone:
		span.Kind = SpanEveryone
		span.Name = "everyone"
		span.Text = "@everyone"
		span.IsCurrentUser = true

	case tokenHere:
		span.Kind = SpanHere
		span.Name = "here"
		span.Text = "@here"
		span.IsCurrentUser = true

	default:
		return Span{}, false
	}
	return span, true
}

// Mentions lists the distinct users and roles referenced by content and
// whether it notifies everyone (@everyone or @here).
func Mentions(content string) (users, roles []uuid.UUID, everyone bool) {
	seen := make(map[uuid.UUID]bool)
	for _, s := range Spans(content, Options{}) {
		switch s.Kind {
		case SpanUser:
			if !seen[s.UserID] {
				seen[s.UserID] = true
				users = append(users, s.UserID)
			}
		case SpanRole:
			if !seen[s.RoleID] {
				seen[s.RoleID] = true
				roles = append(roles, s.RoleID)
			}
		case SpanEveryone, SpanHere:
			everyone = true
		}
	}
	return users, roles, everyone
}
