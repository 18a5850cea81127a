package client

import (
	"context"
	"net"
	"time"
)

// PingResult contains the result of a server ping
type PingResult struct {
	Success bool
	// Latency is the TCP connect time, or the health request time when
	// the dial could not be timed separately
	Latency   time.Duration
	Version   string
	Clients   int
	Error     string
	Timestamp time.Time
}

// Ping checks that the server accepts connections and answers the health
// endpoint. It never returns nil.
func (a *API) Ping(ctx context.Context, timeout time.Duration) *PingResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	host := a.baseURL.Host
	if a.baseURL.Port() == "" {
		port := "80"
		if a.baseURL.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(a.baseURL.Hostname(), port)
	}

	start := time.Now()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return &PingResult{Error: err.Error(), Timestamp: time.Now()}
	}
	latency := time.Since(start)
	_ = conn.Close()

	health, err := a.Health(ctx)
	if err != nil {
		return &PingResult{Latency: latency, Error: err.Error(), Timestamp: time.Now()}
	}
	return &PingResult{
		Success:   health.Status == "ok",
		Latency:   latency,
		Version:   health.Version,
		Clients:   health.Clients,
		Timestamp: time.Now(),
	}
}
