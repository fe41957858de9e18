package web

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"timecast/internal/stream"
)

func TestHub_RegisterUnregister(t *testing.T) {
	h := NewHub(NewMetrics())
	a := newSession("10.0.0.1:1000", nil)
	b := newSession("10.0.0.2:2000", nil)
	b.StartedAt = a.StartedAt.Add(time.Second)

	h.Register(b)
	h.Register(a)
	require.Equal(t, 2, h.Count())

	snap := h.Snapshot()
	require.Equal(t, []string{a.ID, b.ID}, []string{snap[0].ID, snap[1].ID})

	h.Unregister(a.ID)
	h.Unregister(a.ID)
	require.Equal(t, 1, h.Count())
}

func TestHub_CloseAllCancelsSessions(t *testing.T) {
	h := NewHub(nil)
	var ctxs []context.Context
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		ctxs = append(ctxs, ctx)
		h.Register(newSession(fmt.Sprintf("10.0.0.%d:1", i), cancel))
	}

	h.CloseAll()
	for _, ctx := range ctxs {
		require.ErrorIs(t, ctx.Err(), context.Canceled)
	}
}

func TestEndReason(t *testing.T) {
	require.Equal(t, "initial_read", endReason(fmt.Errorf("%w: eof", stream.ErrInitialRead)))
	require.Equal(t, "send", endReason(fmt.Errorf("%w: broken pipe", stream.ErrSend)))
	require.Equal(t, "peer_gone", endReason(fmt.Errorf("%w: eof", stream.ErrPeerGone)))
	require.Equal(t, "cancelled", endReason(context.Canceled))
	require.Equal(t, "done", endReason(nil))
}
