package deeplink_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/deeplink"
	"github.com/m-mizutani/gt"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		action string
		target string
		params map[string]string
	}{
		{name: "chat", input: "hearth://chat/user123", action: "chat", target: "user123"},
		{name: "room", input: "hearth://room/abc-def-ghi", action: "room", target: "abc-def-ghi"},
		{name: "channel", input: "hearth://channel/chan-123", action: "channel", target: "chan-123"},
		{name: "server", input: "hearth://server/server-456", action: "server", target: "server-456"},
		{
			name: "server and channel", input: "hearth://server/server-456/chan-789",
			action: "server", target: "server-456", params: map[string]string{"channel": "chan-789"},
		},
		{
			name: "invite", input: "hearth://invite/ABCD1234?ref=email",
			action: "invite", target: "ABCD1234", params: map[string]string{"ref": "email"},
		},
		{
			name: "invite with server", input: "hearth://invite/XYZ789?server=server-123",
			action: "invite", target: "XYZ789", params: map[string]string{"server": "server-123"},
		},
		{name: "settings", input: "hearth://settings", action: "settings"},
		{name: "settings section", input: "hearth://settings/notifications", action: "settings", target: "notifications"},
		{name: "call", input: "hearth://call/call-abc-123", action: "call", target: "call-abc-123"},
		{
			name: "decoded query", input: "  hearth://invite/X?note=hello%20world&flag&a%26b=c  ",
			action: "invite", target: "X", params: map[string]string{"note": "hello world", "a&b": "c"},
		},
		{name: "extra slashes", input: "hearth:///chat//u1/", action: "chat", target: "u1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			link, ok := deeplink.Parse(tc.input)
			gt.True(t, ok)
			gt.V(t, link.Action).Equal(tc.action)
			gt.V(t, link.Target).Equal(tc.target)
			if tc.params == nil {
				tc.params = map[string]string{}
			}
			gt.V(t, link.Params).Equal(tc.params)
		})
	}
}

func TestParse_NotALink(t *testing.T) {
	for _, input := range []string{"", "https://example.com", "hearth://", "hearth://?x=1", "HEARTH://chat/u"} {
		_, ok := deeplink.Parse(input)
		gt.False(t, ok)
	}
}

func TestLink_String(t *testing.T) {
	link, ok := deeplink.Parse("hearth://invite/XYZ?server=s%201&ref=mail")
	gt.True(t, ok)
	gt.V(t, link.String()).Equal("hearth://invite/XYZ?ref=mail&server=s%201")
}

func TestLink_ServerChannel(t *testing.T) {
	server := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	channel := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	link, _ := deeplink.Parse("hearth://server/" + server.String() + "/" + channel.String())
	s, c := link.ServerChannel()
	gt.V(t, s).Equal(server)
	gt.V(t, c).Equal(channel)

	link, _ = deeplink.Parse("hearth://channel/" + channel.String())
	s, c = link.ServerChannel()
	gt.V(t, s).Equal(uuid.Nil)
	gt.V(t, c).Equal(channel)

	link, _ = deeplink.Parse("hearth://server/not-a-uuid")
	s, _ = link.ServerChannel()
	gt.V(t, s).Equal(uuid.Nil)
}
