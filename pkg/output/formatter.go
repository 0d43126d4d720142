// Package output renders service responses for the command line.
package output

import (
    "bytes"
    "encoding/json"
    "fmt"
    "strings"
    "text/tabwriter"
    "time"

    "gopkg.in/yaml.v3"

    "github.com/Restitutor/TZBot4TS/pkg/tzbot"
)

// Result is one answered request as shown to the user.
type Result struct {
    Request    tzbot.RequestType `json:"request" yaml:"request"`
    Flags      []string          `json:"flags" yaml:"flags"`
    Code       int               `json:"code" yaml:"code"`
    Successful bool              `json:"successful" yaml:"successful"`
    Message    tzbot.Message     `json:"message" yaml:"message"`
    RTT        time.Duration     `json:"-" yaml:"-"`
    Elapsed    string            `json:"rtt,omitempty" yaml:"rtt,omitempty"`
}

// NewResult pairs a response with the request that produced it.
func NewResult(rt tzbot.RequestType, flags []string, resp *tzbot.Response, rtt time.Duration) Result {
    if flags == nil { flags = []string{} }
    return Result{
        Request:    rt,
        Flags:      flags,
        Code:       resp.Code,
        Successful: resp.IsSuccessful(),
        Message:    resp.Message,
        RTT:        rtt,
        Elapsed:    elapsed(rtt),
    }
}

func elapsed(d time.Duration) string {
    if d <= 0 { return "" }
    return d.Round(time.Microsecond).String()
}

// Formatter turns a Result into printable text.
type Formatter interface {
    Format(r Result) string
}

// Formats lists the accepted --output values.
var Formats = []string{"table", "json", "yaml", "message"}

// NewFormatter returns a Formatter for format. Unknown or empty values fall
// back to the table layout.
func NewFormatter(format string) Formatter {
    switch strings.ToLower(format) {
    case "json":
        return JSONFormatter{}
    case "yaml", "yml":
        return YAMLFormatter{}
    case "message", "raw":
        return MessageFormatter{}
    default:
        return TableFormatter{}
    }
}

// TableFormatter prints aligned key/value rows.
type TableFormatter struct{}

func (TableFormatter) Format(r Result) string {
    var buf bytes.Buffer
    w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
    fmt.Fprintf(w, "REQUEST:\t%s\n", r.Request)
    if len(r.Flags) > 0 {
        fmt.Fprintf(w, "FLAGS:\t%s\n", strings.Join(r.Flags, ","))
    }
    fmt.Fprintf(w, "CODE:\t%d\n", r.Code)
    fmt.Fprintf(w, "SUCCESSFUL:\t%t\n", r.Successful)
    fmt.Fprintf(w, "MESSAGE:\t%s\n", r.Message)
    if r.Elapsed != "" {
        fmt.Fprintf(w, "RTT:\t%s\n", r.Elapsed)
    }
    w.Flush()
    return buf.String()
}

// JSONFormatter prints indented JSON.
type JSONFormatter struct{}

func (JSONFormatter) Format(r Result) string {
    b, err := json.MarshalIndent(r, "", "  ")
    if err != nil { return fmt.Sprintf("error formatting JSON: %v\n", err) }
    return string(b) + "\n"
}

// YAMLFormatter prints YAML.
type YAMLFormatter struct{}

func (YAMLFormatter) Format(r Result) string {
    b, err := yaml.Marshal(r)
    if err != nil { return fmt.Sprintf("error formatting YAML: %v\n", err) }
    return string(b)
}

// MessageFormatter prints only the message, for scripts.
type MessageFormatter struct{}

func (MessageFormatter) Format(r Result) string { return r.Message.String() + "\n" }
