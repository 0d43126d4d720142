package mem

import (
    "errors"
    "testing"

    "github.com/stretchr/testify/require"

    "github.com/Restitutor/TZBot4TS/pkg/transport"
)

func TestPairDelivers(t *testing.T) {
    a, b := Pair()
    defer a.Close()
    defer b.Close()

    buf := []byte("tz\x03{}")
    require.NoError(t, a.Send(buf))
    buf[0] = 'x' // sender may reuse its buffer
    require.Equal(t, []byte("tz\x03{}"), <-b.Datagrams())
    require.Equal(t, uint64(1), a.Stats().Sent)
    require.Equal(t, uint64(1), b.Stats().Received)
    require.Equal(t, a.LocalAddr(), b.RemoteAddr())
}

func TestPairDropsWhenFull(t *testing.T) {
    a, b := Pair()
    for i := 0; i < 20; i++ {
        require.NoError(t, a.Send([]byte{byte(i)}))
    }
    require.Equal(t, uint64(4), b.Stats().Dropped)
}

func TestCloseSemantics(t *testing.T) {
    a, b := Pair()
    require.NoError(t, b.Close())
    require.NoError(t, b.Close())
    // datagrams to a closed peer vanish, like UDP
    require.NoError(t, a.Send([]byte("x")))
    _, ok := <-b.Datagrams()
    require.False(t, ok)

    require.NoError(t, a.Close())
    require.ErrorIs(t, a.Send([]byte("x")), transport.ErrClosed)
}

func TestInjectError(t *testing.T) {
    a, _ := Pair()
    boom := errors.New("boom")
    a.InjectError(boom)
    require.Equal(t, boom, <-a.Errors())
}
