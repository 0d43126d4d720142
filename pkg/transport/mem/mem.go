package mem

import (
    "fmt"
    "net"
    "sync"
    "sync/atomic"
    "time"

    "github.com/Restitutor/TZBot4TS/pkg/transport"
)

var pairSeq atomic.Uint64

// Pair returns two connected in-process endpoints. Datagrams sent on one are
// delivered to the other with UDP-like semantics: a full queue or a closed
// peer drops the datagram silently.
func Pair() (*Conn, *Conn) {
    n := pairSeq.Add(1)
    a := newConn(memAddr(fmt.Sprintf("mem-%d-a", n)))
    b := newConn(memAddr(fmt.Sprintf("mem-%d-b", n)))
    a.peer, b.peer = b, a
    return a, b
}

type memAddr string

func (a memAddr) Network() string { return "mem" }
func (a memAddr) String() string  { return string(a) }

// Conn is one end of a Pair.
type Conn struct {
    mu     sync.Mutex
    addr   memAddr
    peer   *Conn
    rxCh   chan []byte
    errCh  chan error
    closed bool

    establishedAt time.Time
    stats         transport.Stats
}

func newConn(addr memAddr) *Conn {
    return &Conn{
        addr:          addr,
        rxCh:          make(chan []byte, 16),
        errCh:         make(chan error, 1),
        establishedAt: time.Now(),
    }
}

func (c *Conn) Kind() transport.Kind { return transport.KindMem }
func (c *Conn) LocalAddr() net.Addr { return c.addr }
func (c *Conn) RemoteAddr() net.Addr { return c.peer.addr }
func (c *Conn) Datagrams() <-chan []byte { return c.rxCh }
func (c *Conn) Errors() <-chan error { return c.errCh }

func (c *Conn) Send(b []byte) error {
    c.mu.Lock()
    if c.closed {
        c.mu.Unlock()
        return transport.ErrClosed
    }
    c.stats.Sent++
    c.stats.LastSent = time.Now()
    c.mu.Unlock()
    pkt := make([]byte, len(b))
    copy(pkt, b)
    c.peer.deliver(pkt)
    return nil
}

func (c *Conn) deliver(pkt []byte) {
    c.mu.Lock(); defer c.mu.Unlock()
    if c.closed { return }
    select {
    case c.rxCh <- pkt:
        c.stats.Received++
        c.stats.LastReceived = time.Now()
    default:
        c.stats.Dropped++
    }
}

// InjectError delivers err on Errors as if the socket had reported it.
func (c *Conn) InjectError(err error) {
    c.mu.Lock(); defer c.mu.Unlock()
    if c.closed { return }
    select { case c.errCh <- err: default: }
}

func (c *Conn) Stats() transport.Stats {
    c.mu.Lock(); defer c.mu.Unlock()
    s := c.stats
    s.EstablishedAt = c.establishedAt
    return s
}

// Close is idempotent and closes both delivery channels.
func (c *Conn) Close() error {
    c.mu.Lock(); defer c.mu.Unlock()
    if c.closed { return nil }
    c.closed = true
    close(c.rxCh)
    close(c.errCh)
    return nil
}

var _ transport.Conn = (*Conn)(nil)
