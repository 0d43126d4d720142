package config

import (
    "encoding/base64"
    "fmt"
    "net"
    "os"
    "strconv"
    "strings"

    "github.com/Restitutor/TZBot4TS/pkg/crypto/aescbc"
    "github.com/Restitutor/TZBot4TS/pkg/crypto/kdf"
)

// EncryptionConfig describes where the shared AES-256 key comes from. At
// most one source may be set. The fields live at the top level of the
// document: encryptionKey, encryptionKeyFile, encryptionPassphrase.
type EncryptionConfig struct {
    // Key is either 32 raw characters or "base64:" followed by 32 encoded bytes.
    Key string `mapstructure:"encryptionKey"`
    // KeyFile holds the key in the same formats as Key.
    KeyFile string `mapstructure:"encryptionKeyFile"`
    // Passphrase is stretched with PBKDF2 using Salt.
    Passphrase string `mapstructure:"encryptionPassphrase"`
    Salt       string `mapstructure:"encryptionSalt"`
}

// Enabled reports whether any key source is set.
func (e EncryptionConfig) Enabled() bool {
    return e.Key != "" || e.KeyFile != "" || e.Passphrase != ""
}

// KeyBytes resolves the configured key, or returns nil when encryption is
// not configured.
func (e EncryptionConfig) KeyBytes() ([]byte, error) {
    n := 0
    for _, s := range []string{e.Key, e.KeyFile, e.Passphrase} {
        if s != "" { n++ }
    }
    if n > 1 {
        return nil, fmt.Errorf("%w: set only one of encryptionKey, encryptionKeyFile, encryptionPassphrase", ErrInvalid)
    }
    switch {
    case e.Key != "":
        return parseKey(e.Key, "encryptionKey")
    case e.KeyFile != "":
        b, err := os.ReadFile(e.KeyFile)
        if err != nil {
            return nil, fmt.Errorf("%w: read encryptionKeyFile: %w", ErrInvalid, err)
        }
        return parseKey(strings.TrimRight(string(b), "\r\n"), "encryptionKeyFile")
    case e.Passphrase != "":
        if e.Salt == "" {
            return nil, fmt.Errorf("%w: encryptionSalt is required with encryptionPassphrase", ErrInvalid)
        }
        return kdf.FromPassphrase([]byte(e.Passphrase), []byte(e.Salt)), nil
    default:
        return nil, nil
    }
}

func parseKey(s, field string) ([]byte, error) {
    var key []byte
    if enc, ok := strings.CutPrefix(s, "base64:"); ok {
        b, err := base64.StdEncoding.DecodeString(enc)
        if err != nil {
            return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, field, err)
        }
        key = b
    } else {
        key = []byte(s)
    }
    if len(key) != aescbc.KeySize {
        return nil, fmt.Errorf("%w: %s must be %d bytes, got %d", ErrInvalid, field, aescbc.KeySize, len(key))
    }
    return key, nil
}

func joinHostPort(host string, port int) string {
    return net.JoinHostPort(host, strconv.Itoa(port))
}
