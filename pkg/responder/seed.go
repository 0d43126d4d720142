package responder

import (
    "fmt"
    "io"
    "os"

    "gopkg.in/yaml.v3"

    "github.com/Restitutor/TZBot4TS/pkg/tzbot"
)

// Seed is the on-disk form of a Directory.
//
//  ips:
//    203.0.113.7: Europe/Berlin
//  users:
//    - id: "42"
//      uuid: 2b0f6ad2-4f9b-4a4f-9d39-2d2a7a9b1c11
//      timezone: Asia/Tokyo
type Seed struct {
    IPs   map[string]string `yaml:"ips"`
    Users []SeedUser        `yaml:"users"`
}

type SeedUser struct {
    ID       string `yaml:"id"`
    UUID     string `yaml:"uuid"`
    Timezone string `yaml:"timezone"`
}

// LoadSeed decodes a YAML seed from r into d. Entries are validated the same
// way the client validates outgoing requests.
func (d *Directory) LoadSeed(r io.Reader) error {
    var s Seed
    dec := yaml.NewDecoder(r)
    dec.KnownFields(true)
    if err := dec.Decode(&s); err != nil && err != io.EOF {
        return fmt.Errorf("decode seed: %w", err)
    }
    for ip, tz := range s.IPs {
        p, err := tzbot.NewTimezoneFromIP(ip)
        if err != nil { return err }
        d.AddIP(p.IP, tz)
    }
    for i, u := range s.Users {
        id, err := tzbot.ValidateUserID(u.ID)
        if err != nil { return fmt.Errorf("users[%d]: %w", i, err) }
        uid, err := tzbot.NormalizeUUID(u.UUID)
        if err != nil { return fmt.Errorf("users[%d]: %w", i, err) }
        d.AddUser(id, uid, u.Timezone)
    }
    return nil
}

// LoadSeedFile is LoadSeed on the named file.
func (d *Directory) LoadSeedFile(path string) error {
    f, err := os.Open(path)
    if err != nil { return err }
    defer f.Close()
    return d.LoadSeed(f)
}
