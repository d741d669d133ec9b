package events

import "time"

// WebhookEndpoint configures a single outgoing schedule alert webhook.
type WebhookEndpoint struct {
	Name         string        `yaml:"name" json:"name" mapstructure:"name"`
	URL          string        `yaml:"url" json:"url" mapstructure:"url"`
	Secret       string        `yaml:"secret,omitempty" json:"secret,omitempty" mapstructure:"secret"`
	EventFilters []string      `yaml:"event_filters,omitempty" json:"event_filters,omitempty" mapstructure:"event_filters"` // empty = all events
	MaxRetries   int           `yaml:"max_retries,omitempty" json:"max_retries,omitempty" mapstructure:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty" mapstructure:"retry_delay"`
	Enabled      bool          `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
}

// Matches reports whether the endpoint wants events of the given type.
func (ep WebhookEndpoint) Matches(eventType string) bool {
	if !ep.Enabled {
		return false
	}
	if len(ep.EventFilters) == 0 {
		return true
	}
	for _, f := range ep.EventFilters {
		if f == eventType {
			return true
		}
	}
	return false
}

// DeadLetter records a failed webhook delivery attempt.
type DeadLetter struct {
	Timestamp   time.Time `json:"timestamp"`
	WebhookName string    `json:"webhook_name"`
	URL         string    `json:"url"`
	EventType   string    `json:"event_type"`
	Payload     string    `json:"payload"`
	Error       string    `json:"error"`
	Attempts    int       `json:"attempts"`
}
