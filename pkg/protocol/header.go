package protocol

import (
    "fmt"
)

// Header layout (variable length, single bytes, no endianness):
//
//  0        Magic 't'
//  1        Magic 'z'
//  2        HeaderLen u8 = 3 + flag count
//  3 ..N-1  one byte per flag, first-occurrence order
//  N ..     transformed payload
const (
    minHeaderSize = 3
    magic0        = 't'
    magic1        = 'z'
    maxFlags      = 255 - minHeaderSize
)

// Header is a parsed, validated header.
type Header struct {
    Flags FlagSet
}

// Len is the encoded header length in bytes.
func (h Header) Len() int { return minHeaderSize + len(h.Flags) }

// HeaderBuilder appends validated flags and yields the finished header bytes.
// Duplicate flags are ignored.
type HeaderBuilder struct {
    flags FlagSet
    err   error
}

func NewHeaderBuilder() *HeaderBuilder { return &HeaderBuilder{} }

// Add appends f unless it is already present. Unknown flags poison the builder.
func (b *HeaderBuilder) Add(f Flag) *HeaderBuilder {
    if b.err != nil { return b }
    if !f.Valid() {
        b.err = fmt.Errorf("%w: %s", ErrUnknownFlag, f)
        return b
    }
    if b.flags.Has(f) { return b }
    if len(b.flags) >= maxFlags {
        b.err = fmt.Errorf("too many flags: %d", len(b.flags)+1)
        return b
    }
    b.flags = append(b.flags, f)
    return b
}

// Header returns the header described so far.
func (b *HeaderBuilder) Header() (Header, error) {
    if b.err != nil { return Header{}, b.err }
    return Header{Flags: append(FlagSet(nil), b.flags...)}, nil
}

// Bytes returns a fresh copy of the encoded header.
func (b *HeaderBuilder) Bytes() ([]byte, error) {
    h, err := b.Header()
    if err != nil { return nil, err }
    return h.MarshalBinary()
}

// MarshalBinary encodes the header.
func (h Header) MarshalBinary() ([]byte, error) {
    if len(h.Flags) > maxFlags {
        return nil, fmt.Errorf("too many flags: %d", len(h.Flags))
    }
    buf := make([]byte, 0, h.Len())
    buf = append(buf, magic0, magic1, byte(h.Len()))
    for _, f := range h.Flags {
        if !f.Valid() {
            return nil, fmt.Errorf("%w: %s", ErrUnknownFlag, f)
        }
        buf = append(buf, byte(f))
    }
    return buf, nil
}

// ParseHeader validates the header at the start of datagram and returns it
// together with the remaining body. Any unknown flag byte rejects the whole
// datagram.
func ParseHeader(datagram []byte) (Header, []byte, error) {
    if len(datagram) < minHeaderSize {
        return Header{}, nil, fmt.Errorf("%w: short header (%d bytes)", ErrMalformedDatagram, len(datagram))
    }
    if datagram[0] != magic0 || datagram[1] != magic1 {
        return Header{}, nil, fmt.Errorf("%w: bad magic 0x%02x%02x", ErrMalformedDatagram, datagram[0], datagram[1])
    }
    n := int(datagram[2])
    if n < minHeaderSize {
        return Header{}, nil, fmt.Errorf("%w: header length %d", ErrMalformedDatagram, n)
    }
    if n > len(datagram) {
        return Header{}, nil, fmt.Errorf("%w: header length %d exceeds datagram (%d bytes)", ErrMalformedDatagram, n, len(datagram))
    }
    flags := make(FlagSet, 0, n-minHeaderSize)
    for _, b := range datagram[minHeaderSize:n] {
        f, ok := ParseFlag(b)
        if !ok {
            return Header{}, nil, fmt.Errorf("%w: %w 0x%02x", ErrMalformedDatagram, ErrUnknownFlag, b)
        }
        flags = append(flags, f)
    }
    return Header{Flags: flags}, datagram[n:], nil
}
