// Package responder answers tzbot requests on a UDP socket. It backs the
// tzbot-mock command and end-to-end tests of the client.
package responder

import (
    "context"
    "crypto/subtle"

    "github.com/bytedance/gopkg/util/gopool"
    "go.uber.org/zap"

    "github.com/Restitutor/TZBot4TS/pkg/protocol"
    "github.com/Restitutor/TZBot4TS/pkg/transport"
    "github.com/Restitutor/TZBot4TS/pkg/tzbot"
)

// Request is an inbound request as the server sees it.
type Request struct {
    RequestType tzbot.RequestType `json:"requestType"`
    APIKey      string            `json:"apiKey"`
    Data        map[string]any    `json:"data"`
}

// Handler produces the reply for one request.
type Handler interface {
    Handle(ctx context.Context, req *Request) *tzbot.Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) *tzbot.Response

func (f HandlerFunc) Handle(ctx context.Context, req *Request) *tzbot.Response { return f(ctx, req) }

// Server decodes requests, checks the API key and replies with the same flags
// the request used.
type Server struct {
    framer  *protocol.Framer
    handler Handler
    apiKey  string
    log     *zap.Logger
    pool    gopool.Pool
}

type Option func(*Server)

// WithAPIKey rejects requests carrying a different key with 401.
func WithAPIKey(k string) Option { return func(s *Server) { s.apiKey = k } }

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

func New(framer *protocol.Framer, h Handler, opts ...Option) *Server {
    s := &Server{
        framer:  framer,
        handler: h,
        log:     zap.L(),
        pool:    gopool.NewPool("tzbot-responder", 64, gopool.NewConfig()),
    }
    for _, o := range opts {
        o(s)
    }
    return s
}

// Serve handles packets until the listener closes or ctx is done.
func (s *Server) Serve(ctx context.Context, l transport.PacketListener) error {
    s.log.Info("responder listening", zap.Stringer("addr", l.Addr()))
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case pkt, ok := <-l.Packets():
            if !ok {
                return nil
            }
            s.pool.CtxGo(ctx, func() { s.handle(ctx, l, pkt) })
        }
    }
}

func (s *Server) handle(ctx context.Context, l transport.PacketListener, pkt transport.Packet) {
    log := s.log.With(zap.Stringer("from", pkt.Addr))
    var req Request
    h, err := s.framer.Decode(pkt.Data, &req)
    if err != nil {
        // no reply: the sender cannot be trusted to parse one
        log.Warn("dropping malformed request", zap.Error(err))
        return
    }
    var resp *tzbot.Response
    if s.apiKey != "" && subtle.ConstantTimeCompare([]byte(s.apiKey), []byte(req.APIKey)) != 1 {
        resp = &tzbot.Response{Code: 401, Message: tzbot.TextMessage("unauthorized")}
    } else {
        resp = s.handler.Handle(ctx, &req)
    }
    if resp == nil {
        resp = &tzbot.Response{Code: 500, Message: tzbot.TextMessage("no response")}
    }
    out, err := s.framer.Encode(resp, h.Flags...)
    if err != nil {
        log.Error("encode reply", zap.Error(err))
        return
    }
    if err := l.WriteTo(out, pkt.Addr); err != nil {
        log.Warn("write reply", zap.Error(err))
        return
    }
    log.Debug("replied", zap.String("request_type", string(req.RequestType)), zap.Int("code", resp.Code))
}
