package markup_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/markup"
	"github.com/m-mizutani/gt"
)

var (
	alexID    = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	samID     = uuid.MustParse("55555555-5555-5555-5555-555555555555")
	modsID    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	plainRole = uuid.MustParse("66666666-6666-6666-6666-666666666666")
	generalID = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	emojiID   = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	missingID = uuid.MustParse("99999999-9999-9999-9999-999999999999")
)

func testLookup() markup.Lookup {
	return markup.Lookup{
		Users: map[uuid.UUID]markup.UserInfo{
			alexID: {Username: "alex"},
			samID:  {Username: "sam", DisplayName: "Sam <3"},
		},
		Roles: map[uuid.UUID]markup.RoleInfo{
			modsID:    {Name: "mods", Color: 0xFF0000},
			plainRole: {Name: "readers"},
		},
		Channels: map[uuid.UUID]string{
			generalID: "general",
		},
	}
}

func TestEscape(t *testing.T) {
	gt.V(t, markup.Escape(`a < b & c > "d" 'e'`)).Equal("a &lt; b &amp; c &gt; &#34;d&#34; &#39;e&#39;")
	gt.V(t, markup.Escape("nothing to do")).Equal("nothing to do")
}

func TestRender_Markdown(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Plain text is only escaped",
			input:    "just some plain text, with punctuation!?",
			expected: "just some plain text, with punctuation!?",
		},
		{
			name:     "Metacharacters are escaped once",
			input:    `1 < 2 & "quotes" 'single'`,
			expected: "1 &lt; 2 &amp; &#34;quotes&#34; &#39;single&#39;",
		},
		{
			name:     "Bold",
			input:    "hello **world**",
			expected: "hello <strong>world</strong>",
		},
		{
			name:     "Bold with underscores",
			input:    "__loud__",
			expected: "<strong>loud</strong>",
		},
		{
			name:     "Italic",
			input:    "*soft* and _quiet_",
			expected: "<em>soft</em> and <em>quiet</em>",
		},
		{
			name:     "Strikethrough",
			input:    "~~gone~~",
			expected: "<s>gone</s>",
		},
		{
			name:     "Spoiler",
			input:    "||secret||",
			expected: `<span class="spoiler">secret</span>`,
		},
		{
			name:     "Italic nested in bold",
			input:    "**bold *it* bold**",
			expected: "<strong>bold <em>it</em> bold</strong>",
		},
		{
			name:     "Bold italic run",
			input:    "***both***",
			expected: "<strong><em>both</em></strong>",
		},
		{
			name:     "Triple run closed by bold then italic",
			input:    "***a**b*",
			expected: "<em><strong>a</strong>b</em>",
		},
		{
			name:     "Triple run closed by italic then bold",
			input:    "***a*b**",
			expected: "<strong><em>a</em>b</strong>",
		},
		{
			name:     "Bold run closed by a single star",
			input:    "**a*",
			expected: "*<em>a</em>",
		},
		{
			name:     "Spoiler around bold",
			input:    "||**x**||",
			expected: `<span class="spoiler"><strong>x</strong></span>`,
		},
		{
			name:     "Unterminated opener stays literal",
			input:    "a **b",
			expected: "a **b",
		},
		{
			name:     "Trailing marker stays literal",
			input:    "trailing **",
			expected: "trailing **",
		},
		{
			name:     "Empty emphasis stays literal",
			input:    "a****b",
			expected: "a****b",
		},
		{
			name:     "Single tilde is literal",
			input:    "~about~ 5",
			expected: "~about~ 5",
		},
		{
			name:     "Underscores inside words are literal",
			input:    "snake_case_name",
			expected: "snake_case_name",
		},
		{
			name:     "Inner opener without closer falls back to text",
			input:    "*a **b* c",
			expected: "<em>a **b</em> c",
		},
		{
			name:     "Inline code protects its content",
			input:    "`**not bold** <tag>`",
			expected: "<code>**not bold** &lt;tag&gt;</code>",
		},
		{
			name:     "Double backtick code",
			input:    "``a ` b``",
			expected: "<code>a ` b</code>",
		},
		{
			name:     "Fenced code with language",
			input:    "```go\nfmt.Println(\"<hi>\")\n```",
			expected: `<pre><code class="language-go">fmt.Println(&#34;&lt;hi&gt;&#34;)</code></pre>`,
		},
		{
			name:     "Fenced code without language",
			input:    "```\n**x** <@11111111-1111-1111-1111-111111111111>\n```",
			expected: "<pre><code>**x** &lt;@11111111-1111-1111-1111-111111111111&gt;</code></pre>",
		},
		{
			name:     "Link",
			input:    "[docs](https://example.com/a?b=1&c=2)",
			expected: `<a href="https://example.com/a?b=1&amp;c=2" target="_blank" rel="noopener noreferrer">docs</a>`,
		},
		{
			name:     "Link with unsupported scheme is verbatim",
			input:    "[x](ftp://example.com/file)",
			expected: "[x](ftp://example.com/file)",
		},
		{
			name:     "Script link is verbatim",
			input:    "[click](javascript:void)",
			expected: "[click](javascript:void)",
		},
		{
			name:     "Autolink trims trailing punctuation",
			input:    "see https://example.com/path.",
			expected: `see <a href="https://example.com/path" target="_blank" rel="noopener noreferrer">https://example.com/path</a>.`,
		},
		{
			name:     "Autolink keeps balanced parenthesis",
			input:    "https://en.wikipedia.org/wiki/Go_(language)",
			expected: `<a href="https://en.wikipedia.org/wiki/Go_(language)" target="_blank" rel="noopener noreferrer">https://en.wikipedia.org/wiki/Go_(language)</a>`,
		},
		{
			name:     "Bracketed autolink",
			input:    "see <https://example.com>",
			expected: `see <a href="https://example.com" target="_blank" rel="noopener noreferrer">https://example.com</a>`,
		},
		{
			name:     "Mention text inside a URL is part of the link",
			input:    "x https://example.com/@here y",
			expected: `x <a href="https://example.com/@here" target="_blank" rel="noopener noreferrer">https://example.com/@here</a> y`,
		},
		{
			name:     "URL inside code is not linked",
			input:    "`https://example.com`",
			expected: "<code>https://example.com</code>",
		},
		{
			name:     "Newlines become breaks",
			input:    "a\nb",
			expected: "a<br>b",
		},
		{
			name:     "Consecutive quote lines merge",
			input:    "> one\n> two\nafter",
			expected: "<blockquote>one<br>two</blockquote>after",
		},
		{
			name:     "Quote marker needs a space",
			input:    ">no",
			expected: "&gt;no",
		},
		{
			name:     "Quote after text",
			input:    "intro\n> **quoted**",
			expected: "intro<blockquote><strong>quoted</strong></blockquote>",
		},
		{
			name:     "Emphasis does not cross lines",
			input:    "**a\nb**",
			expected: "**a<br>b**",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.V(t, markup.Render(tc.input, markup.Options{})).Equal(tc.expected)
		})
	}
}

func TestRender_InlineMode(t *testing.T) {
	opts := markup.Options{Inline: true}

	gt.V(t, markup.Render("> one\ntwo", opts)).Equal("&gt; one\ntwo")
	gt.V(t, markup.Render("**a**\n_b_", opts)).Equal("<strong>a</strong>\n<em>b</em>")
}

func TestRender_Mentions(t *testing.T) {
	opts := markup.Options{Lookup: testLookup(), CurrentUserID: samID}

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Known user by username",
			input:    "<@" + alexID.String() + ">",
			expected: `<span class="mention mention-user" data-user-id="` + alexID.String() + `">@alex</span>`,
		},
		{
			name:     "Nickname form and current user with escaped display name",
			input:    "<@!" + samID.String() + ">",
			expected: `<span class="mention mention-user mention-me" data-user-id="` + samID.String() + `">@Sam &lt;3</span>`,
		},
		{
			name:     "Unknown user",
			input:    "hi <@" + missingID.String() + ">",
			expected: `hi <span class="mention mention-user" data-user-id="` + missingID.String() + `">@Unknown User</span>`,
		},
		{
			name:     "Colored role",
			input:    "<@&" + modsID.String() + ">",
			expected: `<span class="mention mention-role" data-role-id="` + modsID.String() + `" style="color: #FF0000">@mods</span>`,
		},
		{
			name:     "Role without color",
			input:    "<@&" + plainRole.String() + ">",
			expected: `<span class="mention mention-role" data-role-id="` + plainRole.String() + `">@readers</span>`,
		},
		{
			name:     "Unknown role",
			input:    "<@&" + missingID.String() + ">",
			expected: `<span class="mention mention-role" data-role-id="` + missingID.String() + `">@Unknown Role</span>`,
		},
		{
			name:     "Known channel",
			input:    "<#" + generalID.String() + ">",
			expected: `<span class="mention mention-channel" data-channel-id="` + generalID.String() + `">#general</span>`,
		},
		{
			name:     "Unknown channel",
			input:    "<#" + missingID.String() + ">",
			expected: `<span class="mention mention-channel" data-channel-id="` + missingID.String() + `">#channel</span>`,
		},
		{
			name:     "Everyone",
			input:    "@everyone check this",
			expected: `<span class="mention mention-everyone">@everyone</span> check this`,
		},
		{
			name:     "Here",
			input:    "ping @here!",
			expected: `ping <span class="mention mention-here">@here</span>!`,
		},
		{
			name:     "Here inside an address is text",
			input:    "mail bob@here.example",
			expected: "mail bob@here.example",
		},
		{
			name:     "Digit ids are not mentions",
			input:    "<@123456>",
			expected: "&lt;@123456&gt;",
		},
		{
			name:     "Mention inside bold",
			input:    "**<@" + alexID.String() + ">**",
			expected: `<strong><span class="mention mention-user" data-user-id="` + alexID.String() + `">@alex</span></strong>`,
		},
		{
			name:     "Animated emoji",
			input:    "<a:party_parrot:" + emojiID.String() + ">",
			expected: `<span class="emoji" data-emoji-name="party_parrot" data-emoji-id="` + emojiID.String() + `" data-animated="true">:party_parrot:</span>`,
		},
		{
			name:     "Static emoji",
			input:    "<:wave:" + emojiID.String() + ">",
			expected: `<span class="emoji" data-emoji-name="wave" data-emoji-id="` + emojiID.String() + `">:wave:</span>`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.V(t, markup.Render(tc.input, opts)).Equal(tc.expected)
		})
	}
}

func TestRender_LinkIsNotWrappedTwice(t *testing.T) {
	out := markup.Render("[site](https://a.example/x) and https://b.example", markup.Options{})
	gt.V(t, strings.Count(out, "<a ")).Equal(2)
	gt.V(t, strings.Count(out, "</a>")).Equal(2)
	gt.S(t, out).Contains(">site</a>")
}
