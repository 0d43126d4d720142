package udp

import (
    "context"
    "errors"
    "net"
    "sync"
    "sync/atomic"
    "time"

    "github.com/Restitutor/TZBot4TS/pkg/transport"
)

const rxQueue = 16

// Dial resolves address and opens a connected UDP socket. The kernel then
// filters inbound datagrams to those from the remote address.
func Dial(ctx context.Context, address string) (*Conn, error) {
    var d net.Dialer
    c, err := d.DialContext(ctx, "udp", address)
    if err != nil { return nil, err }
    uc, ok := c.(*net.UDPConn)
    if !ok {
        _ = c.Close()
        return nil, errors.New("udp: dialer returned non-UDP conn")
    }
    s := &Conn{
        conn:          uc,
        rxCh:          make(chan []byte, rxQueue),
        errCh:         make(chan error, 1),
        closed:        make(chan struct{}),
        establishedAt: time.Now(),
    }
    go s.recvLoop()
    return s, nil
}

// Conn implements transport.Conn over a connected *net.UDPConn.
type Conn struct {
    conn      *net.UDPConn
    rxCh      chan []byte
    errCh     chan error
    closeOnce sync.Once
    closed    chan struct{}

    establishedAt time.Time
    lastSent      atomic.Int64
    lastReceived  atomic.Int64
    sent          atomic.Uint64
    received      atomic.Uint64
    dropped       atomic.Uint64
}

func (s *Conn) Kind() transport.Kind { return transport.KindUDP }
func (s *Conn) LocalAddr() net.Addr { return s.conn.LocalAddr() }
func (s *Conn) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }
func (s *Conn) Datagrams() <-chan []byte { return s.rxCh }
func (s *Conn) Errors() <-chan error { return s.errCh }

func (s *Conn) Send(b []byte) error {
    select {
    case <-s.closed:
        return transport.ErrClosed
    default:
    }
    if _, err := s.conn.Write(b); err != nil { return err }
    s.lastSent.Store(time.Now().UnixNano())
    s.sent.Add(1)
    return nil
}

func (s *Conn) Stats() transport.Stats {
    return transport.Stats{
        EstablishedAt: s.establishedAt,
        LastSent:      unixNano(s.lastSent.Load()),
        LastReceived:  unixNano(s.lastReceived.Load()),
        Sent:          s.sent.Load(),
        Received:      s.received.Load(),
        Dropped:       s.dropped.Load(),
    }
}

func (s *Conn) recvLoop() {
    defer close(s.errCh)
    defer close(s.rxCh)
    buf := make([]byte, transport.MaxDatagram)
    for {
        n, err := s.conn.Read(buf)
        if err != nil {
            select {
            case <-s.closed:
                return
            default:
            }
            if errors.Is(err, net.ErrClosed) { return }
            // e.g. ECONNREFUSED surfaced from an ICMP port unreachable
            select { case s.errCh <- err: default: }
            continue
        }
        pkt := make([]byte, n)
        copy(pkt, buf[:n])
        s.lastReceived.Store(time.Now().UnixNano())
        s.received.Add(1)
        select {
        case s.rxCh <- pkt:
        default:
            s.dropped.Add(1)
        }
    }
}

// Close is idempotent. The reader goroutine exits and closes both channels.
func (s *Conn) Close() error {
    var err error
    s.closeOnce.Do(func() {
        close(s.closed)
        err = s.conn.Close()
    })
    return err
}

func unixNano(n int64) time.Time {
    if n == 0 { return time.Time{} }
    return time.Unix(0, n)
}

// ---- Listener ----

// Listener is an unconnected UDP socket delivering packets from any remote.
type Listener struct {
    conn      *net.UDPConn
    pktCh     chan transport.Packet
    closeOnce sync.Once
    closeCh   chan struct{}
}

// Listen binds address and starts reading. The listener closes when ctx is done.
func Listen(ctx context.Context, address string) (*Listener, error) {
    laddr, err := net.ResolveUDPAddr("udp", address)
    if err != nil { return nil, err }
    c, err := net.ListenUDP("udp", laddr)
    if err != nil { return nil, err }
    l := &Listener{
        conn:    c,
        pktCh:   make(chan transport.Packet, 64),
        closeCh: make(chan struct{}),
    }
    go l.readLoop()
    go func() {
        select {
        case <-ctx.Done():
            _ = l.Close()
        case <-l.closeCh:
        }
    }()
    return l, nil
}

func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }
func (l *Listener) Packets() <-chan transport.Packet { return l.pktCh }

func (l *Listener) WriteTo(b []byte, addr net.Addr) error {
    _, err := l.conn.WriteTo(b, addr)
    return err
}

func (l *Listener) Close() error {
    var err error
    l.closeOnce.Do(func() {
        close(l.closeCh)
        err = l.conn.Close()
    })
    return err
}

func (l *Listener) readLoop() {
    defer close(l.pktCh)
    buf := make([]byte, transport.MaxDatagram)
    for {
        n, raddr, err := l.conn.ReadFromUDP(buf)
        if err != nil {
            select {
            case <-l.closeCh:
                return
            default:
            }
            if errors.Is(err, net.ErrClosed) { return }
            continue
        }
        pkt := make([]byte, n)
        copy(pkt, buf[:n])
        // drop if the consumer is behind
        select { case l.pktCh <- transport.Packet{Data: pkt, Addr: raddr}: default: }
    }
}

var (
    _ transport.Conn           = (*Conn)(nil)
    _ transport.PacketListener = (*Listener)(nil)
)
