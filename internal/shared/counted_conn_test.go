package shared

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountingListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	traffic := &Traffic{}
	cl := CountingListener{Listener: ln, Traffic: traffic}
	defer cl.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := cl.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()
	server := <-accepted
	defer server.Close()

	_, err = server.Write([]byte("2024-01-01T00:00:00z"))
	require.NoError(t, err)
	buf := make([]byte, 20)
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)
	_, err = io.ReadFull(server, buf[:4])
	require.NoError(t, err)

	stats := traffic.Snapshot()
	require.Equal(t, uint64(20), stats.Uplink)
	require.Equal(t, uint64(4), stats.Downlink)
}
