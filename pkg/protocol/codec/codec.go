// Package codec holds the two payload serializations the wire format knows
// about: JSON text and MessagePack.
package codec

// Codec defines a simple interface for marshaling typed messages.
type Codec interface {
    ContentType() string
    Marshal(v any) ([]byte, error)
    Unmarshal(data []byte, v any) error
}

const (
    ContentJSON    = "application/json"
    ContentMsgpack = "application/msgpack"
)
