// Package tzbot is a client for the timezone service. Requests travel as
// single UDP datagrams and the reply is whichever datagram arrives next, so
// the client keeps exactly one request in flight and queues the rest.
package tzbot

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    "go.uber.org/zap"

    "github.com/Restitutor/TZBot4TS/pkg/config"
    "github.com/Restitutor/TZBot4TS/pkg/crypto/aescbc"
    "github.com/Restitutor/TZBot4TS/pkg/pipeline"
    "github.com/Restitutor/TZBot4TS/pkg/protocol"
    "github.com/Restitutor/TZBot4TS/pkg/transport"
    "github.com/Restitutor/TZBot4TS/pkg/transport/udp"
)

var (
    // ErrClientClosed is returned by every call after Close, and by a call
    // that was pending when Close ran.
    ErrClientClosed = errors.New("tzbot: client closed")
    // ErrTransport wraps socket-level send and receive failures.
    ErrTransport = errors.New("tzbot: transport error")
)

// Client owns one datagram link and, optionally, the cipher.
type Client struct {
    conn     transport.Conn
    framer   *protocol.Framer
    apiKey   string
    timeout  time.Duration
    defaults protocol.FlagSet
    log      *zap.Logger

    calls     chan *call
    closed    chan struct{}
    done      chan struct{}
    closeOnce sync.Once
}

type call struct {
    ctx   context.Context
    req   *Request
    flags []protocol.Flag
    res   chan result
}

type result struct {
    resp *Response
    err  error
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger. The default is zap.L().
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithTimeout overrides the configured per-call timeout. Zero disables it.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithDefaultFlags replaces the flags used by the convenience methods.
func WithDefaultFlags(flags ...protocol.Flag) Option {
    return func(c *Client) { c.defaults = protocol.DedupFlags(flags...) }
}

// New dials the configured endpoint over UDP.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
    if err := cfg.Validate(); err != nil {
        return nil, err
    }
    conn, err := udp.Dial(ctx, cfg.Endpoint())
    if err != nil {
        return nil, fmt.Errorf("%w: dial %s: %w", ErrTransport, cfg.Endpoint(), err)
    }
    c, err := NewWithConn(conn, cfg, opts...)
    if err != nil {
        _ = conn.Close()
        return nil, err
    }
    return c, nil
}

// NewWithConn builds a Client over an existing link. The Client takes
// ownership of conn and closes it on Close.
func NewWithConn(conn transport.Conn, cfg *config.Config, opts ...Option) (*Client, error) {
    framer, err := NewFramer(cfg)
    if err != nil {
        return nil, err
    }

    c := &Client{
        conn:     conn,
        framer:   framer,
        apiKey:   cfg.APIKey,
        timeout:  cfg.Timeout,
        defaults: defaultFlags(cfg, framer.CanEncrypt()),
        log:      zap.L(),
        calls:    make(chan *call),
        closed:   make(chan struct{}),
        done:     make(chan struct{}),
    }
    for _, o := range opts {
        o(c)
    }
    c.log = c.log.With(zap.String("remote", conn.RemoteAddr().String()), zap.Stringer("link", conn.Kind()))
    go c.worker()
    c.log.Debug("client ready",
        zap.Strings("default_flags", c.defaults.Strings()),
        zap.Bool("encryption", c.framer.CanEncrypt()),
        zap.Duration("timeout", c.timeout))
    return c, nil
}

// NewFramer builds the framer described by cfg: a cipher when key material
// is configured, default gzip level otherwise.
func NewFramer(cfg *config.Config) (*protocol.Framer, error) {
    key, err := cfg.KeyBytes()
    if err != nil {
        return nil, err
    }
    var popts pipeline.Options
    if key != nil {
        ciph, err := aescbc.New(key)
        if err != nil {
            return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
        }
        popts.Cipher = ciph
    }
    p, err := pipeline.New(popts)
    if err != nil {
        return nil, err
    }
    return protocol.NewFramer(p), nil
}

func defaultFlags(cfg *config.Config, haveKey bool) protocol.FlagSet {
    var flags []protocol.Flag
    if cfg.Msgpack {
        flags = append(flags, protocol.FlagMsgpack)
    }
    if cfg.Gunzip {
        flags = append(flags, protocol.FlagGunzip)
    }
    if haveKey {
        flags = append(flags, protocol.FlagEncrypt)
    }
    return protocol.DedupFlags(flags...)
}

// DefaultFlags returns the flags applied by the convenience methods.
func (c *Client) DefaultFlags() protocol.FlagSet { return append(protocol.FlagSet(nil), c.defaults...) }

// Stats reports link counters.
func (c *Client) Stats() transport.Stats { return c.conn.Stats() }

// Send transmits p under flags and waits for the next inbound datagram.
// Calls are served one at a time in arrival order. A reply that cannot be
// decoded yields a nil Response and an error wrapping
// protocol.ErrMalformedDatagram; the Client stays usable.
func (c *Client) Send(ctx context.Context, p Payload, flags ...protocol.Flag) (*Response, error) {
    select {
    case <-c.closed:
        return nil, ErrClientClosed
    default:
    }
    cl := &call{ctx: ctx, req: NewRequest(p), flags: flags, res: make(chan result, 1)}
    select {
    case c.calls <- cl:
    case <-c.closed:
        return nil, ErrClientClosed
    case <-ctx.Done():
        return nil, ctx.Err()
    }
    r := <-cl.res
    return r.resp, r.err
}

func (c *Client) worker() {
    defer close(c.done)
    for {
        select {
        case <-c.closed:
            return
        case cl := <-c.calls:
            resp, err := c.exchange(cl)
            cl.res <- result{resp: resp, err: err}
        }
    }
}

// exchange runs one Idle -> Sent -> Resolved/Failed cycle.
func (c *Client) exchange(cl *call) (*Response, error) {
    ctx := cl.ctx
    if c.timeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, c.timeout)
        defer cancel()
    }
    select {
    case <-c.closed:
        return nil, ErrClientClosed
    default:
    }
    if err := ctx.Err(); err != nil {
        return nil, err
    }

    cl.req.APIKey = c.apiKey
    log := c.log.With(zap.String("request_type", string(cl.req.RequestType)))

    dg, err := c.framer.Encode(cl.req, cl.flags...)
    if err != nil {
        log.Debug("encode failed", zap.Error(err))
        return nil, err
    }

    c.dropStale(log)
    start := time.Now()
    if err := c.conn.Send(dg); err != nil {
        if errors.Is(err, transport.ErrClosed) {
            return nil, ErrClientClosed
        }
        return nil, fmt.Errorf("%w: send: %w", ErrTransport, err)
    }
    log.Debug("request sent", zap.Strings("flags", protocol.DedupFlags(cl.flags...).Strings()), zap.Int("bytes", len(dg)))

    select {
    case in, ok := <-c.conn.Datagrams():
        if !ok {
            return nil, ErrClientClosed
        }
        // a nil body (JSON null, msgpack nil) leaves resp nil
        var resp *Response
        h, err := c.framer.Decode(in, &resp)
        if err == nil && resp == nil {
            err = fmt.Errorf("%w: empty response", protocol.ErrMalformedDatagram)
        }
        if err != nil {
            log.Warn("discarding malformed response", zap.Int("bytes", len(in)), zap.Error(err))
            return nil, err
        }
        log.Debug("response received",
            zap.Int("code", resp.Code),
            zap.Strings("flags", h.Flags.Strings()),
            zap.Duration("rtt", time.Since(start)))
        return resp, nil
    case err, ok := <-c.conn.Errors():
        if !ok {
            return nil, ErrClientClosed
        }
        log.Warn("transport error while waiting for response", zap.Error(err))
        return nil, fmt.Errorf("%w: receive: %w", ErrTransport, err)
    case <-ctx.Done():
        log.Debug("gave up waiting for response", zap.Error(ctx.Err()))
        return nil, fmt.Errorf("waiting for response: %w", ctx.Err())
    case <-c.closed:
        return nil, ErrClientClosed
    }
}

// dropStale discards datagrams and errors that arrived while no call was
// waiting, typically late replies to a call that timed out.
func (c *Client) dropStale(log *zap.Logger) {
    for {
        select {
        case in, ok := <-c.conn.Datagrams():
            if !ok {
                return
            }
            log.Debug("dropping stale datagram", zap.Int("bytes", len(in)))
        case err, ok := <-c.conn.Errors():
            if !ok {
                return
            }
            log.Debug("dropping stale transport error", zap.Error(err))
        default:
            return
        }
    }
}

// Close releases the socket. It is safe to call more than once; a call that
// is waiting fails with ErrClientClosed.
func (c *Client) Close() error {
    var err error
    c.closeOnce.Do(func() {
        close(c.closed)
        err = c.conn.Close()
        <-c.done
        c.log.Debug("client closed")
    })
    return err
}

// Ping sends a PING with the default flags.
func (c *Client) Ping(ctx context.Context) (*Response, error) {
    return c.Send(ctx, Ping{}, c.defaults...)
}

// TimezoneFromIP asks for the timezone of ip.
func (c *Client) TimezoneFromIP(ctx context.Context, ip string) (*Response, error) {
    p, err := NewTimezoneFromIP(ip)
    if err != nil {
        return nil, err
    }
    return c.Send(ctx, p, c.defaults...)
}

// TimezoneFromUserID asks for the timezone registered for userID.
func (c *Client) TimezoneFromUserID(ctx context.Context, userID string) (*Response, error) {
    id, err := ValidateUserID(userID)
    if err != nil {
        return nil, err
    }
    return c.Send(ctx, TimezoneFromUserID{UserID: id}, c.defaults...)
}

// TimezoneFromUUID asks for the timezone registered for id.
func (c *Client) TimezoneFromUUID(ctx context.Context, id string) (*Response, error) {
    u, err := NormalizeUUID(id)
    if err != nil {
        return nil, err
    }
    return c.Send(ctx, TimezoneFromUUID{UUID: u}, c.defaults...)
}

// UserIDFromUUID maps id to a user id.
func (c *Client) UserIDFromUUID(ctx context.Context, id string) (*Response, error) {
    u, err := NormalizeUUID(id)
    if err != nil {
        return nil, err
    }
    return c.Send(ctx, UserIDFromUUID{UUID: u}, c.defaults...)
}

// UUIDFromUserID maps userID to a UUID.
func (c *Client) UUIDFromUserID(ctx context.Context, userID string) (*Response, error) {
    id, err := ValidateUserID(userID)
    if err != nil {
        return nil, err
    }
    return c.Send(ctx, UUIDFromUserID{UserID: id}, c.defaults...)
}
