package protocol

import "errors"

var (
    // ErrEncryptionUnavailable is returned when the encrypt flag is requested
    // (or received) but no key is configured.
    ErrEncryptionUnavailable = errors.New("encryption requested but no encryption key configured")
    // ErrMalformedDatagram covers bad magic, short or inconsistent headers,
    // unknown flags and any failed inbound transform.
    ErrMalformedDatagram = errors.New("malformed datagram")
    // ErrUnknownFlag is wrapped when a flag byte is outside the closed set.
    ErrUnknownFlag = errors.New("unknown flag")
)
