// FILE: internal/shared/counted_conn.go
package shared

import (
	"net"
	"sync/atomic"

	"timecast/internal/shared/types"
)

// Traffic 原子地累计所有连接的上行和下行字节数。
type Traffic struct {
	uplink   atomic.Uint64
	downlink atomic.Uint64
}

func (t *Traffic) Snapshot() types.TrafficStats {
	return types.TrafficStats{
		Uplink:   t.uplink.Load(),
		Downlink: t.downlink.Load(),
	}
}

// CountedConn 是一个 net.Conn 的包装器。Write 计入上行，Read 计入下行。
type CountedConn struct {
	net.Conn
	traffic *Traffic
}

func NewCountedConn(conn net.Conn, traffic *Traffic) *CountedConn {
	return &CountedConn{Conn: conn, traffic: traffic}
}

func (c *CountedConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if n > 0 {
		c.traffic.downlink.Add(uint64(n))
	}
	return n, err
}

func (c *CountedConn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	if n > 0 {
		c.traffic.uplink.Add(uint64(n))
	}
	return n, err
}

// CountingListener wraps every accepted conn in a CountedConn.
type CountingListener struct {
	net.Listener
	Traffic *Traffic
}

func (l CountingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return NewCountedConn(conn, l.Traffic), nil
}
