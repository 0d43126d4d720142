package transport

import (
    "errors"
    "net"
    "time"
)

// Kind identifies the link type, mostly for logging.
type Kind int

const (
    KindUnknown Kind = iota
    KindUDP
    KindMem
)

func (k Kind) String() string {
    switch k {
    case KindUDP:
        return "udp"
    case KindMem:
        return "mem"
    default:
        return "unknown"
    }
}

// MaxDatagram is the largest payload a UDP datagram can carry.
const MaxDatagram = 64 * 1024

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// Stats is a point-in-time snapshot of link activity.
type Stats struct {
    EstablishedAt time.Time
    LastSent      time.Time
    LastReceived  time.Time
    Sent          uint64
    Received      uint64
    Dropped       uint64 // inbound datagrams dropped because the queue was full
}

// Conn is a connected datagram link to one remote endpoint. Inbound
// datagrams and asynchronous socket errors are delivered on channels fed by
// a single reader goroutine; both channels are closed when that goroutine
// exits. Send may be called from one goroutine at a time.
type Conn interface {
    Kind() Kind
    // Send transmits b as exactly one datagram.
    Send(b []byte) error
    // Datagrams delivers each inbound datagram as its own slice.
    Datagrams() <-chan []byte
    // Errors delivers receive-side socket errors.
    Errors() <-chan error
    LocalAddr() net.Addr
    RemoteAddr() net.Addr
    Stats() Stats
    Close() error
}

// Packet is one inbound datagram on an unconnected socket.
type Packet struct {
    Data []byte
    Addr net.Addr
}

// PacketListener serves many remotes on one socket.
type PacketListener interface {
    Packets() <-chan Packet
    WriteTo(b []byte, addr net.Addr) error
    Addr() net.Addr
    Close() error
}
