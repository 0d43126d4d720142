package responder

import (
    "context"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/Restitutor/TZBot4TS/pkg/tzbot"
)

const seedDoc = `
ips:
  203.0.113.7: Europe/Berlin
users:
  - id: "42"
    uuid: 2B0F6AD2-4F9B-4A4F-9D39-2D2A7A9B1C11
    timezone: Asia/Tokyo
`

func TestLoadSeed(t *testing.T) {
    d := NewDirectory()
    require.NoError(t, d.LoadSeed(strings.NewReader(seedDoc)))

    ctx := context.Background()
    resp := d.Handle(ctx, &Request{RequestType: tzbot.RequestTimezoneFromIP, Data: map[string]any{"ip": "203.0.113.7"}})
    assert.Equal(t, "Europe/Berlin", resp.Message.String())

    resp = d.Handle(ctx, &Request{RequestType: tzbot.RequestUserIDFromUUID, Data: map[string]any{"uuid": testUUID}})
    assert.Equal(t, 200, resp.Code)
    assert.Equal(t, "42", resp.Message.String())

    resp = d.Handle(ctx, &Request{RequestType: tzbot.RequestTimezoneFromUserID, Data: map[string]any{"userId": "42"}})
    assert.Equal(t, "Asia/Tokyo", resp.Message.String())

    st := d.Stats()
    assert.Equal(t, uint64(3), st.Hits)
    assert.Equal(t, uint64(0), st.Misses)
}

func TestLoadSeedRejectsBadEntries(t *testing.T) {
    cases := map[string]string{
        "bad ip":        "ips:\n  not-an-ip: UTC\n",
        "bad uuid":      "users:\n  - id: \"1\"\n    uuid: nope\n    timezone: UTC\n",
        "empty user id": "users:\n  - id: \"\"\n    uuid: " + testUUID + "\n    timezone: UTC\n",
        "unknown field": "hosts: {}\n",
    }
    for name, doc := range cases {
        t.Run(name, func(t *testing.T) {
            assert.Error(t, NewDirectory().LoadSeed(strings.NewReader(doc)))
        })
    }
}

func TestLoadSeedEmpty(t *testing.T) {
    require.NoError(t, NewDirectory().LoadSeed(strings.NewReader("")))
}

func TestNumericUserIDLookup(t *testing.T) {
    const big = "1152921504606846976" // 1<<60, exact in float64
    d := NewDirectory().AddUser(big, testUUID, "UTC").AddUser("42", "6f1c2e1a-0b7d-4c1e-9a57-3f0d3a9a2b10", "Asia/Tokyo")
    ctx := context.Background()

    // JSON-decoded numbers arrive as float64, msgpack ones as integers
    for _, id := range []any{float64(1 << 60), int64(1 << 60), uint64(1 << 60)} {
        resp := d.Handle(ctx, &Request{RequestType: tzbot.RequestTimezoneFromUserID, Data: map[string]any{"userId": id}})
        assert.Equal(t, 200, resp.Code, "%T", id)
        assert.Equal(t, "UTC", resp.Message.String())
    }
    resp := d.Handle(ctx, &Request{RequestType: tzbot.RequestUUIDFromUserID, Data: map[string]any{"userId": float64(42)}})
    assert.Equal(t, "6f1c2e1a-0b7d-4c1e-9a57-3f0d3a9a2b10", resp.Message.String())
}
