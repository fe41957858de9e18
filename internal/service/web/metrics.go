package web

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timecast/internal/shared"
	"timecast/internal/stream"
)

const namespace = "timecast"

// Metrics implements stream.Recorder on a private registry, so several
// servers can live in one process.
type Metrics struct {
	registry      *prometheus.Registry
	active        prometheus.Gauge
	sessions      prometheus.Counter
	ended         *prometheus.CounterVec
	framesSent    prometheus.Counter
	longPauses    prometheus.Counter
	heartbeatPong prometheus.Counter
}

var _ stream.Recorder = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of live WebSocket sessions.",
		}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "WebSocket sessions accepted.",
		}),
		ended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "WebSocket sessions ended, by reason.",
		}, []string{"reason"}),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Timestamp frames written.",
		}),
		longPauses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "long_pauses_total",
			Help:      "Long idle pauses entered.",
		}),
		heartbeatPong: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeat_replies_total",
			Help:      "pong replies sent in heartbeat mode.",
		}),
	}
	m.registry.MustRegister(m.active, m.sessions, m.ended, m.framesSent, m.longPauses, m.heartbeatPong)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// registerTraffic exposes the listener byte counters.
func (m *Metrics) registerTraffic(t *shared.Traffic) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Bytes written to accepted connections.",
		}, func() float64 { return float64(t.Snapshot().Uplink) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Bytes read from accepted connections.",
		}, func() float64 { return float64(t.Snapshot().Downlink) }),
	)
}

func (m *Metrics) FrameSent()        { m.framesSent.Inc() }
func (m *Metrics) LongPause()        { m.longPauses.Inc() }
func (m *Metrics) HeartbeatReplied() { m.heartbeatPong.Inc() }

func (m *Metrics) sessionOpened(active int) {
	m.sessions.Inc()
	m.active.Set(float64(active))
}

func (m *Metrics) setActive(active int) { m.active.Set(float64(active)) }

func (m *Metrics) sessionEnded(err error) {
	m.ended.WithLabelValues(endReason(err)).Inc()
}

func endReason(err error) string {
	switch {
	case err == nil:
		return "done"
	case errors.Is(err, stream.ErrInitialRead):
		return "initial_read"
	case errors.Is(err, stream.ErrPeerGone):
		return "peer_gone"
	case errors.Is(err, stream.ErrSend):
		return "send"
	default:
		return "cancelled"
	}
}
