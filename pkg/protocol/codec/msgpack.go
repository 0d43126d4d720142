package codec

import (
    "bytes"
    "fmt"

    "github.com/vmihailenco/msgpack/v5"
)

type msgpackCodec struct{}

// Msgpack returns a MessagePack codec. Struct fields are keyed by their json
// tag so that both serializations produce the same object shape.
func Msgpack() Codec { return msgpackCodec{} }

func (msgpackCodec) ContentType() string { return ContentMsgpack }

func (msgpackCodec) Marshal(v any) ([]byte, error) {
    var buf bytes.Buffer
    enc := msgpack.NewEncoder(&buf)
    enc.SetCustomStructTag("json")
    if err := enc.Encode(v); err != nil { return nil, err }
    return buf.Bytes(), nil
}

// Unmarshal decodes exactly one value; trailing bytes are an error, as with JSON.
func (msgpackCodec) Unmarshal(data []byte, v any) error {
    r := bytes.NewReader(data)
    dec := msgpack.NewDecoder(r)
    dec.SetCustomStructTag("json")
    if err := dec.Decode(v); err != nil { return err }
    if r.Len() > 0 {
        return fmt.Errorf("msgpack: %d trailing bytes after value", r.Len())
    }
    return nil
}
