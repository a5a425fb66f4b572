package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/johndauphine/archive-engine/internal/config"
)

// Notifier sends run-outcome notifications to Slack via an incoming webhook.
type Notifier struct {
	config     *config.SlackConfig
	httpClient *http.Client
}

// SlackMessage represents a Slack webhook message.
type SlackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents a Slack message attachment.
type SlackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fields    []SlackField `json:"fields,omitempty"`
	Footer    string       `json:"footer,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
}

// SlackField represents a field in a Slack attachment.
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// New creates a Slack notifier bound to cfg. A nil cfg disables sending.
func New(cfg *config.SlackConfig) *Notifier {
	if cfg == nil {
		cfg = &config.SlackConfig{Enabled: false}
	}
	return &Notifier{
		config:     cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// IsEnabled reports whether notifications should actually be sent.
func (n *Notifier) IsEnabled() bool {
	return n.config != nil && n.config.Enabled && n.config.WebhookURL != ""
}

// RunSucceeded sends a green notification for a completed run.
func (n *Notifier) RunSucceeded(runID string, tablesProcessed int, messages []string) error {
	if !n.IsEnabled() {
		return nil
	}

	fields := []SlackField{
		{Title: "Run ID", Value: runID, Short: true},
		{Title: "Tables Processed", Value: fmt.Sprintf("%d", tablesProcessed), Short: true},
	}
	if len(messages) > 0 {
		fields = append(fields, SlackField{Title: "Warnings", Value: joinCapped(messages, 5), Short: false})
	}

	msg := SlackMessage{
		Channel:   n.config.Channel,
		Username:  n.getUsername(),
		IconEmoji: ":white_check_mark:",
		Text:      fmt.Sprintf("Archive run completed. %d table(s) processed.", tablesProcessed),
		Attachments: []SlackAttachment{
			{
				Color:     "#36a64f",
				Fields:    fields,
				Footer:    "archive-engine",
				Timestamp: time.Now().Unix(),
			},
		},
	}
	return n.send(msg)
}

// RunFailed sends a red notification for a run halted by a table failure.
func (n *Notifier) RunFailed(runID string, failedTable string, err error, messages []string) error {
	if !n.IsEnabled() {
		return nil
	}

	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
		if len(errMsg) > 500 {
			errMsg = errMsg[:500] + "..."
		}
	}

	fields := []SlackField{
		{Title: "Run ID", Value: runID, Short: true},
		{Title: "Failed Table", Value: failedTable, Short: true},
		{Title: "Error", Value: errMsg, Short: false},
	}
	if len(messages) > 0 {
		fields = append(fields, SlackField{Title: "Messages", Value: joinCapped(messages, 5), Short: false})
	}

	msg := SlackMessage{
		Channel:   n.config.Channel,
		Username:  n.getUsername(),
		IconEmoji: ":x:",
		Text:      fmt.Sprintf("Archive run halted at table %s.", failedTable),
		Attachments: []SlackAttachment{
			{
				Color:     "#dc3545",
				Fields:    fields,
				Footer:    "archive-engine",
				Timestamp: time.Now().Unix(),
			},
		},
	}
	return n.send(msg)
}

func (n *Notifier) send(msg SlackMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	resp, err := n.httpClient.Post(n.config.WebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sending to Slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Slack returned status %d", resp.StatusCode)
	}
	return nil
}

func (n *Notifier) getUsername() string {
	if n.config.Username != "" {
		return n.config.Username
	}
	return "archive-engine"
}

func joinCapped(items []string, max int) string {
	if len(items) <= max {
		return strings.Join(items, "\n")
	}
	shown := strings.Join(items[:max], "\n")
	return fmt.Sprintf("%s\n... and %d more", shown, len(items)-max)
}
