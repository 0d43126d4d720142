package pipeline

import (
    "bytes"
    "errors"
    "testing"

    "github.com/stretchr/testify/require"

    "github.com/Restitutor/TZBot4TS/pkg/crypto/aescbc"
)

type payload struct {
    RequestType string `json:"requestType"`
    APIKey      string `json:"apiKey"`
    Data        struct {
        IP string `json:"ip"`
    } `json:"data"`
}

func newPipeline(t *testing.T, withCipher bool) *Pipeline {
    t.Helper()
    var opts Options
    if withCipher {
        c, err := aescbc.New(bytes.Repeat([]byte{1}, aescbc.KeySize))
        require.NoError(t, err)
        opts.Cipher = c
    }
    p, err := New(opts)
    require.NoError(t, err)
    return p
}

func samplePayload() payload {
    var in payload
    in.RequestType = "TIMEZONE_FROM_IP"
    in.APIKey = "k"
    in.Data.IP = "203.0.113.7"
    return in
}

func TestRoundtripAllCombinations(t *testing.T) {
    p := newPipeline(t, true)
    in := samplePayload()
    for _, tr := range []Transforms{
        {},
        {Msgpack: true},
        {Gunzip: true},
        {Encrypt: true},
        {Msgpack: true, Gunzip: true},
        {Msgpack: true, Encrypt: true},
        {Gunzip: true, Encrypt: true},
        {Msgpack: true, Gunzip: true, Encrypt: true},
    } {
        b, err := p.Apply(in, tr)
        require.NoError(t, err, "%+v", tr)
        var out payload
        require.NoError(t, p.Revert(b, tr, &out), "%+v", tr)
        require.Equal(t, in, out, "%+v", tr)
    }
}

func TestApplyDefaultIsJSONText(t *testing.T) {
    p := newPipeline(t, false)
    b, err := p.Apply(samplePayload(), Transforms{})
    require.NoError(t, err)
    require.JSONEq(t, `{"requestType":"TIMEZONE_FROM_IP","apiKey":"k","data":{"ip":"203.0.113.7"}}`, string(b))
}

func TestApplyGzipMagic(t *testing.T) {
    p := newPipeline(t, false)
    b, err := p.Apply(samplePayload(), Transforms{Gunzip: true})
    require.NoError(t, err)
    require.Equal(t, []byte{0x1f, 0x8b}, b[:2])
}

func TestEncryptWithoutCipher(t *testing.T) {
    p := newPipeline(t, false)
    require.False(t, p.CanEncrypt())
    _, err := p.Apply(samplePayload(), Transforms{Encrypt: true})
    require.ErrorIs(t, err, ErrNoCipher)
    require.ErrorIs(t, p.Revert([]byte("x"), Transforms{Encrypt: true}, &payload{}), ErrNoCipher)
}

func TestRevertDistinctErrors(t *testing.T) {
    p := newPipeline(t, true)
    var out payload

    err := p.Revert([]byte("not gzip at all"), Transforms{Gunzip: true}, &out)
    require.ErrorIs(t, err, ErrDecompress)
    require.False(t, errors.Is(err, ErrDeserialize))

    err = p.Revert([]byte("{broken"), Transforms{}, &out)
    require.ErrorIs(t, err, ErrDeserialize)

    err = p.Revert([]byte{0xc1}, Transforms{Msgpack: true}, &out)
    require.ErrorIs(t, err, ErrDeserialize)

    err = p.Revert([]byte("short"), Transforms{Encrypt: true}, &out)
    require.ErrorIs(t, err, ErrDecrypt)
    require.ErrorIs(t, err, aescbc.ErrDecrypt)
}

func TestRevertRejectsOversizedInflate(t *testing.T) {
    src, err := New(Options{})
    require.NoError(t, err)
    big := map[string]string{"pad": string(bytes.Repeat([]byte{'a'}, 4096))}
    b, err := src.Apply(big, Transforms{Gunzip: true})
    require.NoError(t, err)

    small, err := New(Options{MaxDecompressed: 1024})
    require.NoError(t, err)
    var out map[string]string
    require.ErrorIs(t, small.Revert(b, Transforms{Gunzip: true}, &out), ErrDecompress)
}

func TestInvalidGzipLevel(t *testing.T) {
    _, err := New(Options{GzipLevel: 42})
    require.Error(t, err)
}
