package memkv

import (
    "fmt"
    "sync"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
    s := New(Options{Shards: 4})
    s.Set("ip:203.0.113.7", "Europe/Berlin")
    s.Set("ip:203.0.113.7", "Europe/Paris")

    v, ok := s.Get("ip:203.0.113.7")
    require.True(t, ok)
    assert.Equal(t, "Europe/Paris", v)
    assert.Equal(t, 1, s.Len())

    _, ok = s.Get("ip:198.51.100.1")
    assert.False(t, ok)

    assert.True(t, s.Delete("ip:203.0.113.7"))
    assert.False(t, s.Delete("ip:203.0.113.7"))
    assert.Equal(t, 0, s.Len())

    st := s.Stats()
    assert.Equal(t, Stats{Keys: 0, Sets: 2, Gets: 2, Hits: 1, Misses: 1, Dels: 1}, st)
}

func TestConcurrentAccess(t *testing.T) {
    s := New(Options{})
    var wg sync.WaitGroup
    for w := 0; w < 8; w++ {
        wg.Add(1)
        go func(w int) {
            defer wg.Done()
            for i := 0; i < 500; i++ {
                k := fmt.Sprintf("k%d-%d", w, i)
                s.Set(k, k)
                v, ok := s.Get(k)
                assert.True(t, ok)
                assert.Equal(t, k, v)
            }
        }(w)
    }
    wg.Wait()
    assert.Equal(t, 4000, s.Len())
}

func TestRangeStops(t *testing.T) {
    s := New(Options{})
    for i := 0; i < 10; i++ {
        s.Set(fmt.Sprint(i), "x")
    }
    n := 0
    s.Range(func(_, _ string) bool {
        n++
        return n < 3
    })
    assert.Equal(t, 3, n)
}
