package types

import "time"

// SessionInfo is the public view of one live connection.
type SessionInfo struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	StartedAt  time.Time `json:"started_at"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status            string         `json:"status"`
	ActiveConnections int            `json:"active_connections"`
	Sessions          []*SessionInfo `json:"sessions"`
	Traffic           TrafficStats   `json:"traffic"`
}

// TrafficStats 用于报告流量统计信息
type TrafficStats struct {
	Uplink   uint64 `json:"uplink"`
	Downlink uint64 `json:"downlink"`
}
