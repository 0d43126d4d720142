// Package aescbc implements the symmetric cipher used for encrypted
// payloads: AES-256 in CBC mode with PKCS#7 padding and a random IV
// prepended to every ciphertext.
package aescbc

import (
    "bytes"
    "crypto/aes"
    "crypto/cipher"
    "crypto/rand"
    "errors"
    "fmt"
    "io"
)

const (
    KeySize = 32
    IVSize  = aes.BlockSize
)

var (
    ErrKeySize = fmt.Errorf("aescbc: key must be %d bytes", KeySize)
    // ErrDecrypt is returned for truncated input, bad block alignment and
    // bad padding. A wrong key almost always shows up as bad padding.
    ErrDecrypt = errors.New("aescbc: decryption failed")
)

// Cipher holds the key. The key never leaves this type.
type Cipher struct {
    block cipher.Block
    rand  io.Reader
}

// New copies key and prepares an AES-256 block cipher.
func New(key []byte) (*Cipher, error) {
    if len(key) != KeySize {
        return nil, ErrKeySize
    }
    k := make([]byte, KeySize)
    copy(k, key)
    block, err := aes.NewCipher(k)
    if err != nil { return nil, err }
    return &Cipher{block: block, rand: rand.Reader}, nil
}

func (c *Cipher) String() string { return "aes-256-cbc(key redacted)" }

// GoString keeps %#v from dumping the expanded key schedule.
func (c *Cipher) GoString() string { return c.String() }

// Encrypt returns IV || CBC(pad(plaintext)). A fresh IV is drawn per call.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
    padded := pad(plaintext)
    out := make([]byte, IVSize+len(padded))
    iv := out[:IVSize]
    if _, err := io.ReadFull(c.rand, iv); err != nil {
        return nil, fmt.Errorf("aescbc: read iv: %w", err)
    }
    cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[IVSize:], padded)
    return out, nil
}

// Decrypt splits the leading IV and reverses Encrypt.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
    if len(data) < IVSize+aes.BlockSize {
        return nil, fmt.Errorf("%w: input too short (%d bytes)", ErrDecrypt, len(data))
    }
    ct := data[IVSize:]
    if len(ct)%aes.BlockSize != 0 {
        return nil, fmt.Errorf("%w: ciphertext not a multiple of the block size", ErrDecrypt)
    }
    pt := make([]byte, len(ct))
    cipher.NewCBCDecrypter(c.block, data[:IVSize]).CryptBlocks(pt, ct)
    return unpad(pt)
}

func pad(b []byte) []byte {
    n := aes.BlockSize - len(b)%aes.BlockSize
    out := make([]byte, len(b), len(b)+n)
    copy(out, b)
    return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
    if len(b) == 0 {
        return nil, fmt.Errorf("%w: empty plaintext", ErrDecrypt)
    }
    n := int(b[len(b)-1])
    if n == 0 || n > aes.BlockSize || n > len(b) {
        return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
    }
    for _, x := range b[len(b)-n:] {
        if int(x) != n {
            return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
        }
    }
    return b[:len(b)-n], nil
}
