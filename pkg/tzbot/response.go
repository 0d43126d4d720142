package tzbot

import (
    "bytes"
    "encoding/json"
    "errors"
    "fmt"
    "math"
    "strconv"

    "github.com/vmihailenco/msgpack/v5"
)

// Response is the decoded reply to one request.
type Response struct {
    Code    int     `json:"code"`
    Message Message `json:"message"`
}

// IsSuccessful holds when the decimal form of Code is exactly three
// characters long and starts with 2 or 3.
func (r *Response) IsSuccessful() bool {
    s := strconv.Itoa(r.Code)
    return len(s) == 3 && (s[0] == '2' || s[0] == '3')
}

// ErrIncompleteResponse is returned when a reply carries no code.
var ErrIncompleteResponse = errors.New("response has no code")

// responseWire mirrors Response with presence tracking.
type responseWire struct {
    Code    *int     `json:"code"`
    Message *Message `json:"message"`
}

func (w responseWire) into(r *Response) error {
    if w.Code == nil {
        return ErrIncompleteResponse
    }
    *r = Response{Code: *w.Code}
    if w.Message != nil {
        r.Message = *w.Message
    }
    return nil
}

// UnmarshalJSON rejects null and objects without a code. Message may be
// absent.
func (r *Response) UnmarshalJSON(b []byte) error {
    var w responseWire
    if err := json.Unmarshal(b, &w); err != nil {
        return err
    }
    return w.into(r)
}

func (r *Response) DecodeMsgpack(dec *msgpack.Decoder) error {
    var w responseWire
    if err := dec.Decode(&w); err != nil {
        return err
    }
    return w.into(r)
}

func (r *Response) String() string {
    return fmt.Sprintf("%d %s", r.Code, r.Message.String())
}

// Message is either a string or an integer, as the service sends both.
type Message struct {
    text  string
    num   int64
    isNum bool
}

func TextMessage(s string) Message { return Message{text: s} }
func NumberMessage(n int64) Message { return Message{num: n, isNum: true} }

// IsNumber reports whether the service sent an integer.
func (m Message) IsNumber() bool { return m.isNum }

// Int returns the integer value and whether the message was an integer.
func (m Message) Int() (int64, bool) { return m.num, m.isNum }

func (m Message) String() string {
    if m.isNum {
        return strconv.FormatInt(m.num, 10)
    }
    return m.text
}

// Value returns the message as string or int64.
func (m Message) Value() any {
    if m.isNum {
        return m.num
    }
    return m.text
}

func (m Message) MarshalJSON() ([]byte, error) { return json.Marshal(m.Value()) }

// UnmarshalJSON keeps integers exact; they never pass through float64.
func (m *Message) UnmarshalJSON(b []byte) error {
    dec := json.NewDecoder(bytes.NewReader(b))
    dec.UseNumber()
    var v any
    if err := dec.Decode(&v); err != nil {
        return err
    }
    return m.set(v)
}

func (m Message) EncodeMsgpack(enc *msgpack.Encoder) error { return enc.Encode(m.Value()) }

func (m *Message) DecodeMsgpack(dec *msgpack.Decoder) error {
    v, err := dec.DecodeInterface()
    if err != nil {
        return err
    }
    return m.set(v)
}

// MarshalYAML lets the CLI print the plain value.
func (m Message) MarshalYAML() (any, error) { return m.Value(), nil }

func (m *Message) set(v any) error {
    switch x := v.(type) {
    case nil:
        *m = Message{}
    case string:
        *m = TextMessage(x)
    case json.Number:
        n, err := strconv.ParseInt(string(x), 10, 64)
        if err != nil {
            return fmt.Errorf("message: %s is not an int64", x)
        }
        *m = NumberMessage(n)
    case float64:
        if x != math.Trunc(x) || x < -(1<<63) || x >= 1<<63 {
            return fmt.Errorf("message: %v is not an int64", x)
        }
        *m = NumberMessage(int64(x))
    case float32:
        return m.set(float64(x))
    case int:
        *m = NumberMessage(int64(x))
    case int8:
        *m = NumberMessage(int64(x))
    case int16:
        *m = NumberMessage(int64(x))
    case int32:
        *m = NumberMessage(int64(x))
    case int64:
        *m = NumberMessage(x)
    case uint8:
        *m = NumberMessage(int64(x))
    case uint16:
        *m = NumberMessage(int64(x))
    case uint32:
        *m = NumberMessage(int64(x))
    case uint64:
        if x > math.MaxInt64 {
            return fmt.Errorf("message: number %d overflows int64", x)
        }
        *m = NumberMessage(int64(x))
    default:
        return fmt.Errorf("message: expected string or integer, got %T", v)
    }
    return nil
}
