package tzbot

import (
    "fmt"
    "net/netip"
    "strings"

    "github.com/google/uuid"
)

// RequestType tags the operation a request asks for.
type RequestType string

const (
    RequestPing               RequestType = "PING"
    RequestTimezoneFromIP     RequestType = "TIMEZONE_FROM_IP"
    RequestTimezoneFromUserID RequestType = "TIMEZONE_FROM_USERID"
    RequestTimezoneFromUUID   RequestType = "TIMEZONE_FROM_UUID"
    RequestUserIDFromUUID     RequestType = "USER_ID_FROM_UUID"
    RequestUUIDFromUserID     RequestType = "UUID_FROM_USER_ID"
)

// Payload is the operation-specific part of a request.
type Payload interface {
    RequestType() RequestType
}

// Request is what goes on the wire. APIKey is filled in by the Client.
type Request struct {
    RequestType RequestType `json:"requestType"`
    APIKey      string      `json:"apiKey"`
    Data        Payload     `json:"data"`
}

// NewRequest wraps p with its type tag and an empty API key.
func NewRequest(p Payload) *Request {
    return &Request{RequestType: p.RequestType(), Data: p}
}

// Ping checks that the service is reachable.
type Ping struct{}

func (Ping) RequestType() RequestType { return RequestPing }

// TimezoneFromIP looks up the timezone of an IPv4 or IPv6 address.
type TimezoneFromIP struct {
    IP string `json:"ip"`
}

func (TimezoneFromIP) RequestType() RequestType { return RequestTimezoneFromIP }

// NewTimezoneFromIP validates ip before building the payload.
func NewTimezoneFromIP(ip string) (TimezoneFromIP, error) {
    addr, err := netip.ParseAddr(strings.TrimSpace(ip))
    if err != nil {
        return TimezoneFromIP{}, fmt.Errorf("invalid ip %q: %w", ip, err)
    }
    return TimezoneFromIP{IP: addr.String()}, nil
}

// TimezoneFromUserID looks up the timezone registered for a user id.
type TimezoneFromUserID struct {
    UserID string `json:"userId"`
}

func (TimezoneFromUserID) RequestType() RequestType { return RequestTimezoneFromUserID }

// TimezoneFromUUID looks up the timezone registered for a UUID.
type TimezoneFromUUID struct {
    UUID string `json:"uuid"`
}

func (TimezoneFromUUID) RequestType() RequestType { return RequestTimezoneFromUUID }

// UserIDFromUUID maps a UUID to its user id.
type UserIDFromUUID struct {
    UUID string `json:"uuid"`
}

func (UserIDFromUUID) RequestType() RequestType { return RequestUserIDFromUUID }

// UUIDFromUserID maps a user id to its UUID.
type UUIDFromUserID struct {
    UserID string `json:"userId"`
}

func (UUIDFromUserID) RequestType() RequestType { return RequestUUIDFromUserID }

// NormalizeUUID parses s in any form google/uuid accepts and returns the
// canonical hyphenated lower-case form.
func NormalizeUUID(s string) (string, error) {
    u, err := uuid.Parse(strings.TrimSpace(s))
    if err != nil {
        return "", fmt.Errorf("invalid uuid %q: %w", s, err)
    }
    return u.String(), nil
}

// ValidateUserID rejects empty user ids.
func ValidateUserID(id string) (string, error) {
    id = strings.TrimSpace(id)
    if id == "" {
        return "", fmt.Errorf("user id must not be empty")
    }
    return id, nil
}
