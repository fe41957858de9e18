//go:build linux

package sockopt

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestControl_ReusePortAllowsSharedBind(t *testing.T) {
	lc := net.ListenConfig{Control: Control(true)}
	first, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer first.Close()

	second, err := lc.Listen(context.Background(), "tcp", first.Addr().String())
	require.NoError(t, err)
	second.Close()
}

func TestControl_WithoutReusePortRejectsSharedBind(t *testing.T) {
	lc := net.ListenConfig{Control: Control(false)}
	first, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer first.Close()

	_, err = lc.Listen(context.Background(), "tcp", first.Addr().String())
	require.Error(t, err)
}
