package responder

import (
    "context"
    "fmt"
    "strconv"
    "strings"

    "github.com/Restitutor/TZBot4TS/pkg/memkv"
    "github.com/Restitutor/TZBot4TS/pkg/tzbot"
)

// Directory is an in-memory lookup table implementing Handler. Keys are
// namespaced in one store: "ip:", "tz:" (user id), "user:" (uuid -> user id)
// and "uuid:" (user id -> uuid).
type Directory struct {
    kv *memkv.Store
}

const (
    nsIP       = "ip:"
    nsTimezone = "tz:"
    nsUser     = "user:"
    nsUUID     = "uuid:"
)

func NewDirectory() *Directory {
    return &Directory{kv: memkv.New(memkv.Options{})}
}

// AddIP maps ip to a timezone name.
func (d *Directory) AddIP(ip, tz string) *Directory {
    d.kv.Set(nsIP+ip, tz)
    return d
}

// AddUser registers a user id, its UUID and its timezone.
func (d *Directory) AddUser(userID, id, tz string) *Directory {
    id = strings.ToLower(id)
    d.kv.Set(nsTimezone+userID, tz)
    d.kv.Set(nsUser+id, userID)
    d.kv.Set(nsUUID+userID, id)
    return d
}

// Stats reports lookup counters.
func (d *Directory) Stats() memkv.Stats { return d.kv.Stats() }

func (d *Directory) Handle(_ context.Context, req *Request) *tzbot.Response {
    switch req.RequestType {
    case tzbot.RequestPing:
        return ok("pong")
    case tzbot.RequestTimezoneFromIP:
        return d.lookup(nsIP, field(req, "ip"))
    case tzbot.RequestTimezoneFromUserID:
        return d.lookup(nsTimezone, field(req, "userId"))
    case tzbot.RequestTimezoneFromUUID:
        user, found := d.get(nsUser, strings.ToLower(field(req, "uuid")))
        if !found {
            return notFound()
        }
        return d.lookup(nsTimezone, user)
    case tzbot.RequestUserIDFromUUID:
        return d.lookup(nsUser, strings.ToLower(field(req, "uuid")))
    case tzbot.RequestUUIDFromUserID:
        return d.lookup(nsUUID, field(req, "userId"))
    default:
        return &tzbot.Response{Code: 400, Message: tzbot.TextMessage("unknown request type")}
    }
}

func (d *Directory) get(ns, key string) (string, bool) {
    if key == "" {
        return "", false
    }
    return d.kv.Get(ns + key)
}

func (d *Directory) lookup(ns, key string) *tzbot.Response {
    if v, found := d.get(ns, key); found {
        return ok(v)
    }
    return notFound()
}

func field(req *Request, name string) string {
    v, found := req.Data[name]
    if !found || v == nil {
        return ""
    }
    switch x := v.(type) {
    case string:
        return x
    case float64:
        // JSON numbers; integral ids must not turn into exponent form
        return strconv.FormatFloat(x, 'f', -1, 64)
    default:
        return fmt.Sprint(v)
    }
}

func ok(msg string) *tzbot.Response { return &tzbot.Response{Code: 200, Message: tzbot.TextMessage(msg)} }

func notFound() *tzbot.Response {
    return &tzbot.Response{Code: 404, Message: tzbot.TextMessage("not found")}
}
