package kv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis speaks enough RESP2 for RedisStore: strings with expiry, INCR
// and MULTI/EXEC. It records every command it receives.
type fakeRedis struct {
	ln net.Listener
	wg sync.WaitGroup

	mu       sync.Mutex
	data     map[string]fakeValue
	commands []string
}

type fakeValue struct {
	val       string
	expiresAt time.Time
}

func (v fakeValue) expired(now time.Time) bool {
	return !v.expiresAt.IsZero() && !now.Before(v.expiresAt)
}

func newFakeRedis(t *testing.T) *fakeRedis {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeRedis{ln: ln, data: map[string]fakeValue{}}
	f.wg.Add(1)
	go f.serve()
	t.Cleanup(func() {
		ln.Close()
		f.wg.Wait()
	})
	return f
}

func (f *fakeRedis) serve() {
	defer f.wg.Done()
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.wg.Add(1)
		go f.handle(conn)
	}
}

func (f *fakeRedis) handle(conn net.Conn) {
	defer f.wg.Done()
	defer conn.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	var queued [][]string
	inTx := false

	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		name := strings.ToLower(args[0])

		f.mu.Lock()
		f.commands = append(f.commands, strings.ToLower(strings.Join(args, " ")))
		f.mu.Unlock()

		switch {
		case name == "multi":
			inTx = true
			queued = nil
			w.WriteString("+OK\r\n")
		case name == "exec":
			fmt.Fprintf(w, "*%d\r\n", len(queued))
			for _, q := range queued {
				w.WriteString(f.exec(q))
			}
			inTx = false
			queued = nil
		case inTx:
			queued = append(queued, args)
			w.WriteString("+QUEUED\r\n")
		default:
			w.WriteString(f.exec(args))
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return nil, errors.New("expected array")
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		header, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(header[1:]))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func (f *fakeRedis) exec(args []string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	lookup := func(k string) (fakeValue, bool) {
		v, ok := f.data[k]
		if ok && v.expired(now) {
			delete(f.data, k)
			return fakeValue{}, false
		}
		return v, ok
	}

	switch strings.ToLower(args[0]) {
	case "ping":
		return "+PONG\r\n"
	case "get":
		v, ok := lookup(args[1])
		if !ok {
			return "$-1\r\n"
		}
		return fmt.Sprintf("$%d\r\n%s\r\n", len(v.val), v.val)
	case "set":
		k, val := args[1], args[2]
		var nx bool
		var exp time.Time
		for i := 3; i < len(args); i++ {
			switch strings.ToLower(args[i]) {
			case "nx":
				nx = true
			case "ex":
				s, _ := strconv.Atoi(args[i+1])
				exp = now.Add(time.Duration(s) * time.Second)
				i++
			case "px":
				ms, _ := strconv.Atoi(args[i+1])
				exp = now.Add(time.Duration(ms) * time.Millisecond)
				i++
			}
		}
		if _, ok := lookup(k); ok && nx {
			return "$-1\r\n"
		}
		f.data[k] = fakeValue{val: val, expiresAt: exp}
		return "+OK\r\n"
	case "incr":
		v, _ := lookup(args[1])
		n, _ := strconv.ParseInt(v.val, 10, 64)
		n++
		v.val = strconv.FormatInt(n, 10)
		f.data[args[1]] = v
		return fmt.Sprintf(":%d\r\n", n)
	case "del":
		var n int
		for _, k := range args[1:] {
			if _, ok := lookup(k); ok {
				delete(f.data, k)
				n++
			}
		}
		return fmt.Sprintf(":%d\r\n", n)
	case "pttl":
		v, ok := lookup(args[1])
		switch {
		case !ok:
			return ":-2\r\n"
		case v.expiresAt.IsZero():
			return ":-1\r\n"
		}
		return fmt.Sprintf(":%d\r\n", v.expiresAt.Sub(now).Milliseconds())
	default:
		return fmt.Sprintf("-ERR unknown command '%s'\r\n", args[0])
	}
}

func (f *fakeRedis) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func newTestRedisStore(t *testing.T) (*RedisStore, *redis.Client, *fakeRedis) {
	t.Helper()
	srv := newFakeRedis(t)
	client := redis.NewClient(&redis.Options{
		Addr:             srv.ln.Addr().String(),
		Protocol:         2,
		DisableIndentity: true,
		MaxRetries:       -1,
	})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "test:"), client, srv
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestRedisStore(t)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", val)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_IncrSetsExpiryInTransaction(t *testing.T) {
	ctx := context.Background()
	store, client, srv := newTestRedisStore(t)

	n, err := store.Incr(ctx, "ratelimit:a", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Incr(ctx, "ratelimit:a", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ttl, err := client.PTTL(ctx, "test:ratelimit:a").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	cmds := srv.recorded()
	assert.Contains(t, cmds, "set test:ratelimit:a 0 ex 3600 nx")
	assert.NotContains(t, strings.Join(cmds, "\n"), "expire")

	var tx []string
	for _, c := range cmds {
		if c == "multi" || c == "exec" || strings.HasPrefix(c, "set ") || strings.HasPrefix(c, "incr ") {
			tx = append(tx, strings.Fields(c)[0])
		}
	}
	assert.Equal(t, []string{"multi", "set", "incr", "exec", "multi", "set", "incr", "exec"}, tx)
}

func TestRedisStore_IncrRestartsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestRedisStore(t)

	n, err := store.Incr(ctx, "c", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	time.Sleep(80 * time.Millisecond)

	n, err = store.Incr(ctx, "c", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisStore_IncrWithoutTTL(t *testing.T) {
	ctx := context.Background()
	store, client, srv := newTestRedisStore(t)

	n, err := store.Incr(ctx, "forever", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ttl, err := client.PTTL(ctx, "test:forever").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
	assert.NotContains(t, srv.recorded(), "multi")
}
