// Package deeplink parses hearth:// URLs.
//
// Supported forms:
//
//	hearth://chat/:userId
//	hearth://room/:roomId
//	hearth://channel/:channelId
//	hearth://server/:serverId[/:channelId]
//	hearth://invite/:code[?server=:serverId]
//	hearth://settings[/:section]
//	hearth://call/:callId
package deeplink

import (
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Scheme is the URL prefix handled by this package
const Scheme = "hearth://"

// Action names
const (
	ActionChat     = "chat"
	ActionRoom     = "room"
	ActionChannel  = "channel"
	ActionServer   = "server"
	ActionInvite   = "invite"
	ActionSettings = "settings"
	ActionCall     = "call"
)

// Link is a parsed deep link
type Link struct {
	Action string            `json:"action"`
	Target string            `json:"target,omitempty"` // "" when absent
	Params map[string]string `json:"params"`
}

// Parse parses a hearth:// URL. It returns false for any other scheme or
// an empty path. Query keys and values are percent-decoded; for
// server/:id/:channel the third segment is stored as the "channel" param.
func Parse(raw string) (Link, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, Scheme) {
		return Link{}, false
	}

	path, query, _ := strings.Cut(raw[len(Scheme):], "?")
	params := map[string]string{}
	if query != "" {
		for _, pair := range strings.Split(query, "&") {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			params[unescape(key)] = unescape(value)
		}
	}

	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return Link{}, false
	}

	link := Link{Action: segments[0], Params: params}
	if len(segments) > 1 {
		link.Target = segments[1]
	}
	if link.Action == ActionServer && len(segments) > 2 {
		link.Params["channel"] = segments[2]
	}
	return link, true
}

func unescape(s string) string {
	v, err := url.PathUnescape(s)
	if err != nil {
		return ""
	}
	return v
}

// String formats the link back into a URL
func (l Link) String() string {
	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteString(l.Action)
	if l.Target != "" {
		b.WriteString("/" + l.Target)
	}

	keys := make([]string, 0, len(l.Params))
	for k := range l.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i == 0 {
			b.WriteString("?")
		} else {
			b.WriteString("&")
		}
		b.WriteString(url.PathEscape(k) + "=" + url.PathEscape(l.Params[k]))
	}
	return b.String()
}

// ServerChannel returns the server and channel a link navigates to. Either
// may be uuid.Nil when the link does not name it or it is not a valid id.
func (l Link) ServerChannel() (server, channel uuid.UUID) {
	switch l.Action {
	case ActionServer:
		server = parseID(l.Target)
		channel = parseID(l.Params["channel"])
	case ActionChannel:
		channel = parseID(l.Target)
	case ActionInvite:
		server = parseID(l.Params["server"])
	}
	return server, channel
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
