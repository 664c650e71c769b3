// Package agent implements the invmon agent daemon.
// It samples the local host on a timer and pushes the day's report to the
// server. Every outbound request carries: Authorization: Bearer <token>
package agent

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vesaa/invmon/internal/telemetry"
)

// ReportPath is the server route agents push to.
const ReportPath = "/api/v1/cpu-performance/save-cpu-data"

// Client pushes reports to one server.
type Client struct {
	client *resty.Client
}

// NewClient targets addr, e.g. "192.168.1.1:7050" or "https://inv.example".
// An empty token sends no Authorization header.
func NewClient(addr, token string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	client := resty.New()
	client.SetBaseURL(addr)
	client.SetTimeout(10 * time.Second)
	if token != "" {
		client.SetAuthToken(token)
	}
	return &Client{client: client}
}

// Push sends one report.
func (c *Client) Push(ctx context.Context, report telemetry.Report) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(report).
		Post(ReportPath)
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return fmt.Errorf("server rejected token (401), check --token or agent_token in config")
	case resp.IsError():
		return fmt.Errorf("server returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// Run samples every interval and pushes each reading until ctx is done.
// Failed pushes are logged and dropped; the next tick sends a fresh report.
func Run(ctx context.Context, c *Client, sampler *telemetry.Sampler, interval time.Duration) error {
	if interval <= 0 {
		interval = telemetry.DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[agent] reporting %s every %s. Press Ctrl+C to stop.", sampler.ProductID, interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := tick(ctx, c, sampler); err != nil {
				log.Printf("[agent] report dropped: %v", err)
			}
		}
	}
}

func tick(ctx context.Context, c *Client, sampler *telemetry.Sampler) error {
	r, _, err := sampler.Collect()
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	return c.Push(ctx, telemetry.NewReport(r))
}
