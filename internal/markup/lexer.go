package markup

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// token represents a lexical token. Tokens produced by tokenize are
// contiguous and together cover the whole input.
type token struct {
	Type  tokenType
	Value string // exact source text
	Start int
	End   int

	Content  string // code body or link text
	Lang     string
	URL      string
	ID       uuid.UUID
	Name     string
	Animated bool

	CanOpen  bool
	CanClose bool
}

type tokenType int

const (
	tokenText tokenType = iota
	tokenCodeBlock
	tokenInlineCode
	tokenLink
	tokenAutolink
	tokenUserMention
	tokenRoleMention
	tokenChannelMention
	tokenEveryone
	tokenHere
	tokenEmoji
	tokenDelim
	tokenNewline
	tokenQuote
)

// idPattern is the only identifier grammar accepted inside mention and
// emoji tokens: a lowercase canonical UUID.
const idPattern = `[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`

// rule claims every match of re that does not overlap an earlier claim.
// build receives absolute submatch indices and may reject a match.
type rule struct {
	re    *regexp.Regexp
	build func(input string, m []int) (token, bool)
}

// rules are applied in priority order. Anything claimed by an earlier rule
// is invisible to later ones.
var rules = []rule{
	{regexp.MustCompile("(?s)```(?:([A-Za-z0-9_+#.-]+)\\n)?(.*?)```"), buildCodeBlock},
	{regexp.MustCompile("``(.+?)``|`([^`]+)`"), buildInlineCode},
	{regexp.MustCompile(`\[([^\[\]\n]+)\]\(([^()\s]+)\)`), buildLink},
	{regexp.MustCompile(`<https?://[^\s<>]+>|https?://[^\s<>]+`), buildAutolink},
	{regexp.MustCompile(`<@!?(` + idPattern + `)>|<@&(` + idPattern + `)>|<#(` + idPattern + `)>|@everyone|@here`), buildMention},
	{regexp.MustCompile(`<(a?):([A-Za-z0-9_]{2,32}):(` + idPattern + `)>`), buildEmoji},
}

// tokenize breaks the input into tokens. Rules claim byte ranges first; the
// unclaimed gaps are then scanned for emphasis delimiters, newlines and, in
// block mode, blockquote markers.
func tokenize(input string, inline bool) []token {
	var claims claimSet
	var tokens []token

	for _, r := range rules {
		for _, gap := range claims.gaps(len(input)) {
			for _, m := range r.re.FindAllStringSubmatchIndex(input[gap.start:gap.end], -1) {
				for i := range m {
					if m[i] >= 0 {
						m[i] += gap.start
					}
				}
				tok, ok := r.build(input, m)
				if !ok || !claims.claim(tok.Start, tok.End) {
					continue
				}
				tokens = append(tokens, tok)
			}
		}
	}

	for _, gap := range claims.gaps(len(input)) {
		tokens = append(tokens, lexGap(input, gap.start, gap.end, inline)...)
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Start < tokens[j].Start })
	return tokens
}

func group(input string, m []int, n int) (string, bool) {
	if 2*n+1 >= len(m) || m[2*n] < 0 {
		return "", false
	}
	return input[m[2*n]:m[2*n+1]], true
}

func newToken(t tokenType, input string, start, end int) token {
	return token{Type: t, Value: input[start:end], Start: start, End: end}
}

func buildCodeBlock(input string, m []int) (token, bool) {
	body, _ := group(input, m, 2)
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimSuffix(body, "\n")
	if strings.TrimSpace(body) == "" {
		return token{}, false
	}
	tok := newToken(tokenCodeBlock, input, m[0], m[1])
	tok.Lang, _ = group(input, m, 1)
	tok.Content = body
	return tok, true
}

func buildInlineCode(input string, m []int) (token, bool) {
	body, ok := group(input, m, 1)
	if !ok {
		body, _ = group(input, m, 2)
	}
	tok := newToken(tokenInlineCode, input, m[0], m[1])
	tok.Content = body
	return tok, true
}

// buildLink accepts only http and https targets. Any other scheme is
// claimed as literal text so the source shows verbatim.
func buildLink(input string, m []int) (token, bool) {
	text, _ := group(input, m, 1)
	target, _ := group(input, m, 2)
	if !isWebURL(target) {
		return newToken(tokenText, input, m[0], m[1]), true
	}
	tok := newToken(tokenLink, input, m[0], m[1])
	tok.Content = text
	tok.URL = target
	return tok, true
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

func buildMention(input string, m []int) (token, bool) {
	kinds := []tokenType{tokenUserMention, tokenRoleMention, tokenChannelMention}
	for i, kind := range kinds {
		if raw, ok := group(input, m, i+1); ok {
			tok := newToken(kind, input, m[0], m[1])
			tok.ID = uuid.MustParse(raw)
			return tok, true
		}
	}

	// @everyone and @here must stand alone, e.g. not inside an address.
	if m[0] > 0 {
		if r, _ := utf8.DecodeLastRuneInString(input[:m[0]]); isWordRune(r) {
			return token{}, false
		}
	}
	if m[1] < len(input) {
		if r, _ := utf8.DecodeRuneInString(input[m[1]:]); isWordRune(r) {
			return token{}, false
		}
	}
	if input[m[0]:m[1]] == "@everyone" {
		return newToken(tokenEveryone, input, m[0], m[1]), true
	}
	return newToken(tokenHere, input, m[0], m[1]), true
}

func buildEmoji(input string, m []int) (token, bool) {
	tok := newToken(tokenEmoji, input, m[0], m[1])
	animated, _ := group(input, m, 1)
	tok.Animated = animated == "a"
	tok.Name, _ = group(input, m, 2)
	raw, _ := group(input, m, 3)
	tok.ID = uuid.MustParse(raw)
	return tok, true
}

// buildAutolink links a bare URL. The <https://...> form keeps its brackets
// inside the token and the URL is used as is.
func buildAutolink(input string, m []int) (token, bool) {
	if raw := input[m[0]:m[1]]; raw[0] == '<' {
		link := raw[1 : len(raw)-1]
		if !isWebURL(link) {
			return token{}, false
		}
		tok := newToken(tokenAutolink, input, m[0], m[1])
		tok.URL = link
		return tok, true
	}

	link := trimURL(input[m[0]:m[1]])
	if !isWebURL(link) {
		return token{}, false
	}
	tok := newToken(tokenAutolink, input, m[0], m[0]+len(link))
	tok.URL = link
	return tok, true
}

// trimURL drops trailing sentence punctuation. A closing parenthesis is
// kept when it balances one inside the URL.
func trimURL(s string) string {
	for len(s) > 0 {
		last := s[len(s)-1]
		switch {
		case strings.IndexByte(".,:;!?\"'", last) >= 0:
			s = s[:len(s)-1]
		case last == ')' && strings.Count(s, "(") < strings.Count(s, ")"):
			s = s[:len(s)-1]
		default:
			return s
		}
	}
	return s
}

// lexGap scans an unclaimed range for the characters that carry structure
// outside of the claimed tokens.
func lexGap(input string, start, end int, inline bool) []token {
	var tokens []token
	textStart := start
	flush := func(at int) {
		if at > textStart {
			tokens = append(tokens, newToken(tokenText, input, textStart, at))
		}
	}

	for i := start; i < end; {
		c := input[i]
		switch {
		case c == '\n':
			flush(i)
			tokens = append(tokens, newToken(tokenNewline, input, i, i+1))
			i++
			textStart = i

		case !inline && c == '>' && atLineStart(input, i) && i+1 < end && input[i+1] == ' ':
			flush(i)
			tokens = append(tokens, newToken(tokenQuote, input, i, i+2))
			i += 2
			textStart = i

		case c == '*' || c == '_' || c == '~' || c == '|':
			j := i
			for j < end && input[j] == c {
				j++
			}
			flush(i)
			tokens = append(tokens, lexDelimiterRun(input, i, j)...)
			i = j
			textStart = i

		default:
			i++
		}
	}
	flush(end)
	return tokens
}

func atLineStart(input string, i int) bool {
	return i == 0 || input[i-1] == '\n'
}

// lexDelimiterRun turns a run of one delimiter character into tokens the
// parser can pair. Whether the run may open or close is decided by its
// neighbours; an underscore additionally needs a non-alphanumeric boundary
// so that snake_case stays literal.
func lexDelimiterRun(input string, start, end int) []token {
	c := input[start]
	prev, next := ' ', ' '
	if start > 0 {
		prev, _ = utf8.DecodeLastRuneInString(input[:start])
	}
	if end < len(input) {
		next, _ = utf8.DecodeRuneInString(input[end:])
	}

	canOpen := !unicode.IsSpace(next)
	canClose := !unicode.IsSpace(prev)
	if c == '_' {
		canOpen = canOpen && !isAlnum(prev)
		canClose = canClose && !isAlnum(next)
	}
	if !canOpen && !canClose {
		return []token{newToken(tokenText, input, start, end)}
	}

	if c == '*' || c == '_' {
		// Emphasis runs stay whole; the parser splits them against the
		// closing run.
		tok := newToken(tokenDelim, input, start, end)
		tok.CanOpen = canOpen
		tok.CanClose = canClose
		return []token{tok}
	}

	// ~ and | only pair up; a lone character is literal.
	var sizes []int
	n := end - start
	for ; n >= 2; n -= 2 {
		sizes = append(sizes, 2)
	}
	if n == 1 {
		if canOpen && !canClose {
			sizes = append([]int{-1}, sizes...)
		} else {
			sizes = append(sizes, -1)
		}
	}

	tokens := make([]token, 0, len(sizes))
	pos := start
	for _, size := range sizes {
		if size < 0 {
			tokens = append(tokens, newToken(tokenText, input, pos, pos+1))
			pos++
			continue
		}
		tok := newToken(tokenDelim, input, pos, pos+size)
		tok.CanOpen = canOpen
		tok.CanClose = canClose
		tokens = append(tokens, tok)
		pos += size
	}
	return tokens
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isWordRune(r rune) bool {
	return isAlnum(r) || r == '_'
}
