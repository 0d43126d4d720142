// Package pipeline applies the optional payload transforms in their fixed
// protocol order: serialize, compress, encrypt on the way out and the exact
// mirror on the way in. Which transforms run is selected per message; the
// order never changes.
package pipeline

import (
    "bytes"
    stderrors "errors"
    "io"

    "github.com/klauspost/compress/gzip"
    "github.com/pkg/errors"

    "github.com/Restitutor/TZBot4TS/pkg/protocol/codec"
)

// DefaultMaxDecompressed bounds inflated payload size.
const DefaultMaxDecompressed = 1 << 20

var (
    ErrSerialize   = stderrors.New("serialize failed")
    ErrCompress    = stderrors.New("compress failed")
    ErrEncrypt     = stderrors.New("encrypt failed")
    ErrDecrypt     = stderrors.New("decrypt failed")
    ErrDecompress  = stderrors.New("decompress failed")
    ErrDeserialize = stderrors.New("deserialize failed")
    // ErrNoCipher is returned when Encrypt is selected on a pipeline without a cipher.
    ErrNoCipher = stderrors.New("no cipher configured")
)

// Cipher is the symmetric cipher contract: Encrypt output carries its own IV.
type Cipher interface {
    Encrypt(plaintext []byte) ([]byte, error)
    Decrypt(data []byte) ([]byte, error)
}

// Transforms selects which stages run.
type Transforms struct {
    Msgpack bool
    Gunzip  bool
    Encrypt bool
}

// Options tunes a Pipeline. Zero values pick defaults.
type Options struct {
    // Cipher may be nil; Encrypt is then unavailable.
    Cipher Cipher
    // GzipLevel as accepted by gzip.NewWriterLevel. Zero means gzip.DefaultCompression.
    GzipLevel int
    // MaxDecompressed caps the inflated body. Zero means DefaultMaxDecompressed.
    MaxDecompressed int64
}

// Pipeline is safe for concurrent use once constructed.
type Pipeline struct {
    text       codec.Codec
    binary     codec.Codec
    cipher     Cipher
    gzipLevel  int
    maxInflate int64
}

func New(opts Options) (*Pipeline, error) {
    p := &Pipeline{
        text:       codec.JSON(),
        binary:     codec.Msgpack(),
        cipher:     opts.Cipher,
        gzipLevel:  opts.GzipLevel,
        maxInflate: opts.MaxDecompressed,
    }
    if p.gzipLevel == 0 { p.gzipLevel = gzip.DefaultCompression }
    if p.gzipLevel < gzip.HuffmanOnly || p.gzipLevel > gzip.BestCompression {
        return nil, errors.Errorf("invalid gzip level %d", p.gzipLevel)
    }
    if p.maxInflate <= 0 { p.maxInflate = DefaultMaxDecompressed }
    return p, nil
}

// CanEncrypt reports whether a cipher is configured.
func (p *Pipeline) CanEncrypt() bool { return p.cipher != nil }

// Apply runs the send-side stages on v.
func (p *Pipeline) Apply(v any, t Transforms) ([]byte, error) {
    if t.Encrypt && p.cipher == nil {
        return nil, ErrNoCipher
    }
    c := p.text
    if t.Msgpack { c = p.binary }
    b, err := c.Marshal(v)
    if err != nil {
        return nil, stage(ErrSerialize, err, c.ContentType())
    }
    if t.Gunzip {
        if b, err = p.compress(b); err != nil {
            return nil, stage(ErrCompress, err, "gzip")
        }
    }
    if t.Encrypt {
        if b, err = p.cipher.Encrypt(b); err != nil {
            return nil, stage(ErrEncrypt, err, "cipher")
        }
    }
    return b, nil
}

// Revert runs the receive-side stages on body and decodes into v. On error v
// must be treated as garbage.
func (p *Pipeline) Revert(body []byte, t Transforms, v any) error {
    if t.Encrypt && p.cipher == nil {
        return ErrNoCipher
    }
    var err error
    if t.Encrypt {
        if body, err = p.cipher.Decrypt(body); err != nil {
            return stage(ErrDecrypt, err, "cipher")
        }
    }
    if t.Gunzip {
        if body, err = p.decompress(body); err != nil {
            return stage(ErrDecompress, err, "gzip")
        }
    }
    c := p.text
    if t.Msgpack { c = p.binary }
    if err := c.Unmarshal(body, v); err != nil {
        return stage(ErrDeserialize, err, c.ContentType())
    }
    return nil
}

func (p *Pipeline) compress(b []byte) ([]byte, error) {
    var buf bytes.Buffer
    zw, err := gzip.NewWriterLevel(&buf, p.gzipLevel)
    if err != nil { return nil, err }
    if _, err := zw.Write(b); err != nil { return nil, err }
    if err := zw.Close(); err != nil { return nil, err }
    return buf.Bytes(), nil
}

func (p *Pipeline) decompress(b []byte) ([]byte, error) {
    zr, err := gzip.NewReader(bytes.NewReader(b))
    if err != nil { return nil, err }
    defer zr.Close()
    out, err := io.ReadAll(io.LimitReader(zr, p.maxInflate+1))
    if err != nil { return nil, err }
    if int64(len(out)) > p.maxInflate {
        return nil, errors.Errorf("inflated payload exceeds %d bytes", p.maxInflate)
    }
    return out, nil
}

// stageError keeps the sentinel reachable through errors.Is while the
// underlying cause stays reachable through errors.Cause / errors.As.
type stageError struct {
    kind  error
    cause error
}

func (e *stageError) Error() string { return e.kind.Error() + ": " + e.cause.Error() }
func (e *stageError) Unwrap() []error { return []error{e.kind, e.cause} }
func (e *stageError) Cause() error { return e.cause }

func stage(kind, cause error, what string) error {
    return &stageError{kind: kind, cause: errors.Wrap(cause, what)}
}
