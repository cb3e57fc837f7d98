package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Embed colors per phase (decimal color values).
const (
	colorPre       = 0xFFC107 // amber
	colorSpawn     = 0xF44336 // red
	colorCatchup   = 0x9E9E9E // grey
	colorHeartbeat = 0x4CAF50 // green
)

// DiscordPayload is the webhook request body.
type DiscordPayload struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed is a single rich embed.
type DiscordEmbed struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color,omitempty"`
	Footer      *DiscordFooter `json:"footer,omitempty"`
}

// DiscordFooter is the embed footer line.
type DiscordFooter struct {
	Text string `json:"text,omitempty"`
}

// DiscordSender posts deliveries to a Discord-compatible webhook URL. A
// shared limiter keeps the engine under the platform's webhook rate limit
// even when many bosses come up in the same tick.
type DiscordSender struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewDiscordSender creates a webhook sender. Returns nil when url is empty
// (messaging disabled); callers go through Sender-typed fields so the nil
// check happens once, at wiring time.
func NewDiscordSender(url string, perSec float64, burst int) *DiscordSender {
	if url == "" {
		return nil
	}
	if perSec <= 0 {
		perSec = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &DiscordSender{
		url:     url,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
	}
}

// Send posts one delivery. A non-2xx response maps to a DeliveryError:
// 429 and 5xx are retryable, other 4xx are permanent.
func (s *DiscordSender) Send(ctx context.Context, d Delivery) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return &DeliveryError{Retryable: true, Err: err}
	}

	payload := DiscordPayload{
		Username: "Bosstrack",
		Content:  buildContent(d),
		Embeds: []DiscordEmbed{{
			Title:       d.BossName,
			Description: d.Message,
			Color:       phaseColor(d.Phase),
			Footer:      &DiscordFooter{Text: fmt.Sprintf("bosstrack | %s | delivery %s", d.Phase, d.ID)},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &DeliveryError{Retryable: false, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Retryable: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &DeliveryError{Retryable: true, Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	return ClassifyStatus(resp.StatusCode, respBody)
}

// ClassifyStatus maps a webhook HTTP status to nil or a DeliveryError.
// Discord returns 204 No Content on success.
func ClassifyStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests || status >= 500:
		return &DeliveryError{Retryable: true, Err: fmt.Errorf("webhook status %d: %s", status, truncate(body))}
	default:
		return &DeliveryError{Retryable: false, Err: fmt.Errorf("webhook status %d: %s", status, truncate(body))}
	}
}

func buildContent(d Delivery) string {
	if len(d.Audience) == 0 {
		return d.Message
	}
	mentions := make([]string, 0, len(d.Audience))
	for _, uid := range d.Audience {
		mentions = append(mentions, fmt.Sprintf("<@%d>", uid))
	}
	return strings.Join(mentions, " ") + " — " + d.Message
}

func phaseColor(phase string) int {
	switch phase {
	case PhasePre:
		return colorPre
	case PhaseSpawn:
		return colorSpawn
	case PhaseCatchup:
		return colorCatchup
	default:
		return colorHeartbeat
	}
}

func truncate(body []byte) string {
	const max = 200
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
