// Package memkv is a sharded, concurrency-safe string map with lookup
// counters. It backs the mock responder's directory.
package memkv

import (
    "sync"
    "sync/atomic"
)

type Options struct {
    Shards int // number of shards, default 64
}

func (o *Options) withDefaults() Options {
    res := *o
    if res.Shards <= 0 {
        res.Shards = 64
    }
    return res
}

type Store struct {
    shards []shard

    mKeys   atomic.Int64
    mSets   atomic.Uint64
    mGets   atomic.Uint64
    mHits   atomic.Uint64
    mMisses atomic.Uint64
    mDels   atomic.Uint64
}

type shard struct {
    mu sync.RWMutex
    m  map[string]string
}

func New(opts Options) *Store {
    opts = opts.withDefaults()
    s := &Store{shards: make([]shard, opts.Shards)}
    for i := range s.shards {
        s.shards[i].m = make(map[string]string)
    }
    return s
}

// FNV-1a 64
func (s *Store) shardFor(key string) *shard {
    var h uint64 = 1469598103934665603
    for i := 0; i < len(key); i++ {
        h ^= uint64(key[i])
        h *= 1099511628211
    }
    return &s.shards[int(h%uint64(len(s.shards)))]
}

// Set stores val under key, replacing any previous value.
func (s *Store) Set(key, val string) {
    sh := s.shardFor(key)
    sh.mu.Lock()
    if _, ok := sh.m[key]; !ok {
        s.mKeys.Add(1)
    }
    sh.m[key] = val
    sh.mu.Unlock()
    s.mSets.Add(1)
}

func (s *Store) Get(key string) (string, bool) {
    s.mGets.Add(1)
    sh := s.shardFor(key)
    sh.mu.RLock()
    v, ok := sh.m[key]
    sh.mu.RUnlock()
    if ok {
        s.mHits.Add(1)
    } else {
        s.mMisses.Add(1)
    }
    return v, ok
}

// Delete reports whether key was present.
func (s *Store) Delete(key string) bool {
    sh := s.shardFor(key)
    sh.mu.Lock()
    _, ok := sh.m[key]
    if ok {
        delete(sh.m, key)
        s.mKeys.Add(-1)
    }
    sh.mu.Unlock()
    if ok {
        s.mDels.Add(1)
    }
    return ok
}

func (s *Store) Len() int { return int(s.mKeys.Load()) }

// Range calls fn for every entry until fn returns false. Shards are visited
// one at a time, so concurrent writers may or may not be observed.
func (s *Store) Range(fn func(key, val string) bool) {
    for i := range s.shards {
        sh := &s.shards[i]
        sh.mu.RLock()
        for k, v := range sh.m {
            if !fn(k, v) {
                sh.mu.RUnlock()
                return
            }
        }
        sh.mu.RUnlock()
    }
}

// Stats is a snapshot of the store counters.
type Stats struct {
    Keys   int
    Sets   uint64
    Gets   uint64
    Hits   uint64
    Misses uint64
    Dels   uint64
}

func (s *Store) Stats() Stats {
    return Stats{
        Keys:   s.Len(),
        Sets:   s.mSets.Load(),
        Gets:   s.mGets.Load(),
        Hits:   s.mHits.Load(),
        Misses: s.mMisses.Load(),
        Dels:   s.mDels.Load(),
    }
}
