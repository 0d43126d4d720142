package protocol

import (
    "bytes"
    "testing"

    "github.com/stretchr/testify/require"

    "github.com/Restitutor/TZBot4TS/pkg/crypto/aescbc"
    "github.com/Restitutor/TZBot4TS/pkg/pipeline"
)

type lookup struct {
    RequestType string         `json:"requestType"`
    APIKey      string         `json:"apiKey"`
    Data        map[string]any `json:"data"`
}

func newFramer(t *testing.T, key []byte) *Framer {
    t.Helper()
    var opts pipeline.Options
    if key != nil {
        c, err := aescbc.New(key)
        require.NoError(t, err)
        opts.Cipher = c
    }
    p, err := pipeline.New(opts)
    require.NoError(t, err)
    return NewFramer(p)
}

func TestFramerRoundtrip(t *testing.T) {
    fr := newFramer(t, nil)
    in := lookup{RequestType: "TIMEZONE_FROM_UUID", APIKey: "abc", Data: map[string]any{"uuid": "2b0f6ad2-4f9b-4a4f-9d39-2d2a7a9b1c11"}}
    for _, flags := range [][]Flag{
        nil,
        {FlagMsgpack},
        {FlagGunzip},
        {FlagGunzip, FlagMsgpack},
        {FlagMsgpack, FlagGunzip, FlagMsgpack},
    } {
        dg, err := fr.Encode(in, flags...)
        require.NoError(t, err)
        var out lookup
        h, err := fr.Decode(dg, &out)
        require.NoError(t, err)
        require.Equal(t, DedupFlags(flags...), h.Flags)
        require.Equal(t, in, out)
    }
}

func TestFramerHeaderOrderFollowsCaller(t *testing.T) {
    fr := newFramer(t, nil)
    a, err := fr.Encode(map[string]int{"code": 200}, FlagMsgpack, FlagGunzip)
    require.NoError(t, err)
    b, err := fr.Encode(map[string]int{"code": 200}, FlagGunzip, FlagMsgpack)
    require.NoError(t, err)
    require.Equal(t, []byte{'t', 'z', 5, 'p', 'g'}, a[:5])
    require.Equal(t, []byte{'t', 'z', 5, 'g', 'p'}, b[:5])
    // transform order is fixed, so the bodies decode identically
    var x, y map[string]int
    _, err = fr.Decode(a, &x)
    require.NoError(t, err)
    _, err = fr.Decode(b, &y)
    require.NoError(t, err)
    require.Equal(t, x, y)
}

func TestFramerDuplicateFlagsCollapse(t *testing.T) {
    fr := newFramer(t, bytes.Repeat([]byte{9}, aescbc.KeySize))
    dg, err := fr.Encode(map[string]string{"requestType": "PING"}, FlagEncrypt, FlagEncrypt, FlagGunzip)
    require.NoError(t, err)
    require.Equal(t, byte(5), dg[2])
    require.Equal(t, []byte{'e', 'g'}, dg[3:5])

    var out map[string]string
    h, err := fr.Decode(dg, &out)
    require.NoError(t, err)
    require.Equal(t, FlagSet{FlagEncrypt, FlagGunzip}, h.Flags)
    require.Equal(t, "PING", out["requestType"])
}

func TestFramerEncryptWithoutKey(t *testing.T) {
    fr := newFramer(t, nil)
    dg, err := fr.Encode(map[string]string{"requestType": "PING"}, FlagGunzip, FlagEncrypt)
    require.ErrorIs(t, err, ErrEncryptionUnavailable)
    require.Nil(t, dg)
}

func TestFramerDecodeEncryptedWithoutKey(t *testing.T) {
    sender := newFramer(t, bytes.Repeat([]byte{3}, aescbc.KeySize))
    dg, err := sender.Encode(map[string]int{"code": 200}, FlagEncrypt)
    require.NoError(t, err)

    var out map[string]int
    _, err = newFramer(t, nil).Decode(dg, &out)
    require.ErrorIs(t, err, ErrMalformedDatagram)
    require.ErrorIs(t, err, ErrEncryptionUnavailable)
}

func TestFramerDecodeMalformed(t *testing.T) {
    fr := newFramer(t, bytes.Repeat([]byte{3}, aescbc.KeySize))
    cases := map[string]struct {
        in    []byte
        cause error
    }{
        "two bytes":         {[]byte{'t', 'z'}, nil},
        "wrong magic":       {[]byte("xx\x03{}"), nil},
        "length overflow":   {[]byte{'t', 'z', 9, 'g'}, nil},
        "unknown flag":      {[]byte("tz\x04x{}"), ErrUnknownFlag},
        "not gzip":          {[]byte("tz\x04g{}"), pipeline.ErrDecompress},
        "bad json":          {[]byte("tz\x03{nope"), pipeline.ErrDeserialize},
        "bad msgpack":       {[]byte("tz\x04p\xc1"), pipeline.ErrDeserialize},
        "truncated cipher":  {[]byte("tz\x04eabc"), pipeline.ErrDecrypt},
    }
    for name, tc := range cases {
        t.Run(name, func(t *testing.T) {
            var out map[string]any
            _, err := fr.Decode(tc.in, &out)
            require.ErrorIs(t, err, ErrMalformedDatagram)
            if tc.cause != nil {
                require.ErrorIs(t, err, tc.cause)
            }
        })
    }
}
