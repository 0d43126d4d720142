package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Restitutor/TZBot4TS/pkg/config"
	"github.com/Restitutor/TZBot4TS/pkg/protocol"
	"github.com/Restitutor/TZBot4TS/pkg/responder"
	"github.com/Restitutor/TZBot4TS/pkg/transport/udp"
	"github.com/Restitutor/TZBot4TS/pkg/tzbot"
)

const testUUID = "2b0f6ad2-4f9b-4a4f-9d39-2d2a7a9b1c11"

// startResponder runs a responder on loopback and returns a config file
// pointing at it.
func startResponder(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	framer, err := tzbot.NewFramer(&config.Config{})
	require.NoError(t, err)
	dir := responder.NewDirectory().
		AddIP("203.0.113.7", "Europe/Berlin").
		AddUser("42", testUUID, "Asia/Tokyo")

	l, err := udp.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	srv := responder.New(framer, dir, responder.WithLogger(zap.NewNop()))
	go func() { _ = srv.Serve(ctx, l) }()

	body := fmt.Sprintf(`{"address":"127.0.0.1","port":%d,"timeout":"2s","log":{"level":"error"}}`,
		l.Addr().(*net.UDPAddr).Port)
	p := filepath.Join(t.TempDir(), "tzbot.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd.PersistentFlags())
	resetFlags(rootCmd.Flags())
	for _, c := range rootCmd.Commands() {
		resetFlags(c.Flags())
	}
	closeClient()
	t.Cleanup(closeClient)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestPingCommand(t *testing.T) {
	cfgPath := startResponder(t)
	out, err := executeCommand(t, "--config", cfgPath, "ping", "--count", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "pong"))
	assert.Contains(t, out, "PING")
}

func TestTimezoneFromIPJSON(t *testing.T) {
	cfgPath := startResponder(t)
	out, err := executeCommand(t, "--config", cfgPath, "-o", "json", "tz-ip", "203.0.113.7")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Europe/Berlin", doc["message"])
	assert.Equal(t, float64(200), doc["code"])
}

func TestLookupWithWireFlags(t *testing.T) {
	cfgPath := startResponder(t)
	out, err := executeCommand(t, "--config", cfgPath, "--gzip", "--flag", "msgpack", "-o", "message", "tz-user", "42")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", strings.TrimSpace(out))

	out, err = executeCommand(t, "--config", cfgPath, "-o", "message", "userid", strings.ToUpper(testUUID))
	require.NoError(t, err)
	assert.Equal(t, "42", strings.TrimSpace(out))
}

func TestNotFoundIsUnsuccessful(t *testing.T) {
	cfgPath := startResponder(t)
	out, err := executeCommand(t, "--config", cfgPath, "uuid", "7")
	var unsuccessful *unsuccessfulError
	require.True(t, errors.As(err, &unsuccessful))
	assert.Equal(t, 404, unsuccessful.code)
	assert.Contains(t, out, "not found")
}

func TestInvalidArgumentsFailLocally(t *testing.T) {
	cfgPath := startResponder(t)

	_, err := executeCommand(t, "--config", cfgPath, "tz-uuid", "nope")
	assert.ErrorContains(t, err, "invalid uuid")

	_, err = executeCommand(t, "--config", cfgPath, "--flag", "bogus", "ping")
	assert.ErrorContains(t, err, "unknown flag")

	_, err = executeCommand(t, "--config", cfgPath, "--encrypt", "ping")
	assert.ErrorIs(t, err, protocol.ErrEncryptionUnavailable)
}

func TestPortOverrideIsValidated(t *testing.T) {
	cfgPath := startResponder(t)
	_, err := executeCommand(t, "--config", cfgPath, "--port", "70000", "ping")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestPingCountMustBePositive(t *testing.T) {
	cfgPath := startResponder(t)
	for _, n := range []string{"0", "-3"} {
		out, err := executeCommand(t, "--config", cfgPath, "ping", "--count="+n)
		assert.ErrorContains(t, err, "--count must be at least 1", n)
		assert.NotContains(t, out, "pong")
	}
}
