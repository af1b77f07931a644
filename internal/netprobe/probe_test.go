package netprobe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialProberOnline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := NewDialProber(ln.Addr().String(), time.Second)
	assert.True(t, p.IsOnline(context.Background()))
}

func TestDialProberOffline(t *testing.T) {
	// Grab a free port and close the listener so nothing answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	p := NewDialProber(addr, 200*time.Millisecond)
	assert.False(t, p.IsOnline(context.Background()))
}

func TestDialProberCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewDialProber("203.0.113.1:53", time.Second)
	assert.False(t, p.IsOnline(ctx))
}

func TestDialProberDefaults(t *testing.T) {
	p := NewDialProber("", 0)
	assert.Equal(t, "8.8.8.8:53", p.addr)
	assert.Equal(t, 3*time.Second, p.timeout)
}

func TestStatic(t *testing.T) {
	assert.True(t, Static(true).IsOnline(context.Background()))
	assert.False(t, Static(false).IsOnline(context.Background()))
}
