package protocol

import "fmt"

// Flag selects one optional wire transform. On the wire each flag is a
// single ASCII byte following the fixed header prefix.
type Flag byte

const (
    FlagEncrypt Flag = 'e' // payload encrypted with the shared key
    FlagGunzip  Flag = 'g' // payload gzip-compressed
    FlagMsgpack Flag = 'p' // payload serialized as MessagePack instead of JSON
)

// flagTable is the closed byte<->flag mapping. Anything not listed is rejected.
var flagTable = map[byte]Flag{
    byte(FlagEncrypt): FlagEncrypt,
    byte(FlagGunzip):  FlagGunzip,
    byte(FlagMsgpack): FlagMsgpack,
}

// ParseFlag maps a wire byte to its Flag.
func ParseFlag(b byte) (Flag, bool) {
    f, ok := flagTable[b]
    return f, ok
}

// ParseFlagName accepts the long names used on the command line and in config.
func ParseFlagName(name string) (Flag, error) {
    switch name {
    case "encrypt", "e":
        return FlagEncrypt, nil
    case "gunzip", "gzip", "g":
        return FlagGunzip, nil
    case "msgpack", "p":
        return FlagMsgpack, nil
    default:
        return 0, fmt.Errorf("unknown flag %q", name)
    }
}

func (f Flag) Valid() bool {
    _, ok := flagTable[byte(f)]
    return ok
}

func (f Flag) String() string {
    switch f {
    case FlagEncrypt:
        return "encrypt"
    case FlagGunzip:
        return "gunzip"
    case FlagMsgpack:
        return "msgpack"
    default:
        return fmt.Sprintf("flag(0x%02x)", byte(f))
    }
}

// FlagSet is an ordered, duplicate-free list of flags.
type FlagSet []Flag

// DedupFlags drops repeated flags, keeping the first occurrence order.
func DedupFlags(flags ...Flag) FlagSet {
    out := make(FlagSet, 0, len(flags))
    for _, f := range flags {
        if !out.Has(f) {
            out = append(out, f)
        }
    }
    return out
}

func (s FlagSet) Has(f Flag) bool {
    for _, x := range s {
        if x == f {
            return true
        }
    }
    return false
}

func (s FlagSet) Strings() []string {
    out := make([]string, len(s))
    for i, f := range s {
        out[i] = f.String()
    }
    return out
}
