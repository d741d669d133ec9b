// Package webhook delivers schedule alerts and events to outgoing webhooks.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/events"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
)

// EventTypeAlert is the event type of alert payloads.
const EventTypeAlert = "schedule.alert"

const (
	signatureHeader = "X-Cadence-Signature"
	userAgent       = "Cadence-Webhook/1.0"
	sendTimeout     = 10 * time.Second
)

const (
	defaultAttempts = 3
	defaultDelay    = time.Second
)

// target is a configured endpoint with its resolved retry policy.
type target struct {
	events.WebhookEndpoint
	policy retry.Config
}

func newTarget(ep events.WebhookEndpoint) target {
	t := target{WebhookEndpoint: ep, policy: retry.Config{
		MaxAttempts:   ep.MaxRetries,
		InitialDelay:  ep.RetryDelay,
		BackoffPolicy: retry.BackoffExponential,
	}}
	if t.policy.MaxAttempts <= 0 {
		t.policy.MaxAttempts = defaultAttempts
	}
	if t.policy.InitialDelay <= 0 {
		t.policy.InitialDelay = defaultDelay
	}
	return t
}

// Notifier posts payloads to webhooks in the background. Call Wait
// before the process exits.
type Notifier struct {
	targets     []target
	client      *http.Client
	deadLetters *DeadLetterStore
	logger      *slog.Logger
	wg          sync.WaitGroup
}

// NewNotifier returns a notifier for endpoints. deadLetters and logger may
// be nil.
func NewNotifier(endpoints []events.WebhookEndpoint, deadLetters *DeadLetterStore, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	targets := make([]target, len(endpoints))
	for i, ep := range endpoints {
		targets[i] = newTarget(ep)
	}
	return &Notifier{
		targets:     targets,
		client:      &http.Client{},
		deadLetters: deadLetters,
		logger:      logger,
	}
}

// Payload is the JSON body sent to webhook endpoints.
type Payload struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Alert is the data of a schedule.alert payload.
type Alert struct {
	Level   events.NotificationLevel `json:"level"`
	Title   string                   `json:"title"`
	Message string                   `json:"message"`
}

// Notify sends an alert to every endpoint subscribed to schedule.alert.
// It satisfies events.Notifier.
func (n *Notifier) Notify(ctx context.Context, level events.NotificationLevel, title, message string) error {
	return n.publish(ctx, Payload{
		EventType: EventTypeAlert,
		Timestamp: time.Now(),
		Data:      Alert{Level: level, Title: title, Message: message},
	})
}

// NotifyEvent forwards a recorded event to the matching endpoints.
func (n *Notifier) NotifyEvent(ctx context.Context, event *events.BaseEvent) error {
	return n.publish(ctx, Payload{
		EventType: event.Type,
		Timestamp: event.Timestamp,
		Data:      event,
	})
}

// Registration forwards every dispatched event to the webhooks.
func (n *Notifier) Registration() events.HandlerRegistration {
	return events.HandlerRegistration{
		Name: "WebhookNotifier",
		Handler: func(ctx context.Context, event events.DomainEvent) error {
			rec, ok := event.(events.Recorder)
			if !ok {
				return nil
			}
			return n.NotifyEvent(ctx, rec.Record())
		},
		EventTypes: []string{events.Wildcard},
	}
}

func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Redeliver posts a dead letter once more, signed with the webhook's
// current secret.
func (n *Notifier) Redeliver(ctx context.Context, dl events.DeadLetter) error {
	for _, t := range n.targets {
		switch {
		case t.Name != dl.WebhookName:
			continue
		case !t.Enabled:
			return fmt.Errorf("webhook %q is disabled", t.Name)
		}
		return n.post(ctx, t.WebhookEndpoint, []byte(dl.Payload))
	}
	return fmt.Errorf("webhook %q is no longer configured", dl.WebhookName)
}

func (n *Notifier) publish(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	for _, t := range n.targets {
		if !t.Matches(payload.EventType) {
			continue
		}
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.deliver(ctx, t, payload.EventType, body)
		}()
	}
	return nil
}

// deliver retries post with the target's policy and records a dead letter
// once the attempts run out.
func (n *Notifier) deliver(ctx context.Context, t target, eventType string, body []byte) {
	_, err := retry.New[struct{}](t.policy).Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, n.post(ctx, t.WebhookEndpoint, body)
	})
	if err == nil {
		n.logger.Debug("webhook delivered", "webhook", t.Name, "event_type", eventType)
		return
	}

	n.logger.Warn("webhook delivery failed", "webhook", t.Name, "attempts", t.policy.MaxAttempts, "error", err)
	if n.deadLetters == nil {
		return
	}
	letter := events.DeadLetter{
		Timestamp:   time.Now(),
		WebhookName: t.Name,
		URL:         t.URL,
		EventType:   eventType,
		Payload:     string(body),
		Error:       err.Error(),
		Attempts:    t.policy.MaxAttempts,
	}
	if err := n.deadLetters.Append(letter); err != nil {
		n.logger.Error("dead letter append failed", "webhook", t.Name, "error", err)
	}
}

// post makes a single signed POST, bounded by sendTimeout.
func (n *Notifier) post(ctx context.Context, ep events.WebhookEndpoint, body []byte) error {
	limit := timeout.New[struct{}](timeout.Config{DefaultTimeout: sendTimeout})
	_, err := limit.Execute(ctx, sendTimeout, func(ctx context.Context) (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if ep.Secret != "" {
			req.Header.Set(signatureHeader, Sign(body, ep.Secret))
		}

		resp, err := n.client.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("post %s: %w", ep.Name, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode >= 300 {
			return struct{}{}, fmt.Errorf("webhook %s answered %d", ep.Name, resp.StatusCode)
		}
		return struct{}{}, nil
	})
	return err
}

// Sign returns the X-Cadence-Signature value for payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
