package protocol

import (
    "errors"
    "fmt"

    "github.com/Restitutor/TZBot4TS/pkg/pipeline"
)

// Framer turns values into datagrams and back: header plus transformed body.
type Framer struct {
    p *pipeline.Pipeline
}

func NewFramer(p *pipeline.Pipeline) *Framer { return &Framer{p: p} }

// CanEncrypt reports whether FlagEncrypt can be honored.
func (f *Framer) CanEncrypt() bool { return f.p.CanEncrypt() }

func transformsFor(flags FlagSet) pipeline.Transforms {
    return pipeline.Transforms{
        Msgpack: flags.Has(FlagMsgpack),
        Gunzip:  flags.Has(FlagGunzip),
        Encrypt: flags.Has(FlagEncrypt),
    }
}

// Encode serializes v under the requested flags. Duplicate flags collapse to
// their first occurrence. Requesting FlagEncrypt without a key fails with
// ErrEncryptionUnavailable; nothing is produced in that case.
func (f *Framer) Encode(v any, flags ...Flag) ([]byte, error) {
    b := NewHeaderBuilder()
    for _, fl := range flags {
        b.Add(fl)
    }
    h, err := b.Header()
    if err != nil { return nil, err }
    if h.Flags.Has(FlagEncrypt) && !f.p.CanEncrypt() {
        return nil, ErrEncryptionUnavailable
    }
    hdr, err := h.MarshalBinary()
    if err != nil { return nil, err }
    body, err := f.p.Apply(v, transformsFor(h.Flags))
    if err != nil { return nil, err }
    out := make([]byte, 0, len(hdr)+len(body))
    out = append(out, hdr...)
    return append(out, body...), nil
}

// Decode validates the header of datagram and decodes its body into v.
// Every failure wraps ErrMalformedDatagram; the specific cause (pipeline
// stage error, ErrUnknownFlag, ErrEncryptionUnavailable) stays reachable
// through errors.Is.
func (f *Framer) Decode(datagram []byte, v any) (Header, error) {
    h, body, err := ParseHeader(datagram)
    if err != nil { return Header{}, err }
    if h.Flags.Has(FlagEncrypt) && !f.p.CanEncrypt() {
        return h, fmt.Errorf("%w: %w", ErrMalformedDatagram, ErrEncryptionUnavailable)
    }
    if err := f.p.Revert(body, transformsFor(h.Flags), v); err != nil {
        if errors.Is(err, ErrMalformedDatagram) { return h, err }
        return h, fmt.Errorf("%w: %w", ErrMalformedDatagram, err)
    }
    return h, nil
}
