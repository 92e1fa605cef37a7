package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SlackNotifier envia eventos relevantes para um canal da prefeitura.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	if webhookURL == "" {
		return nil
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Notify(ctx context.Context, events []Event) error {
	if s == nil || s.webhookURL == "" {
		return errors.New("slack notifier not configured")
	}

	body, err := json.Marshal(map[string]any{"text": formatSlackMessage(events)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack respondeu %d", resp.StatusCode)
	}
	return nil
}

func formatSlackMessage(events []Event) string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		emoji := ":information_source:"
		switch ev.Kind {
		case KindBadgeEarned:
			emoji = ":medal:"
		case KindLevelUp:
			emoji = ":arrow_up:"
		case KindComplaintResolved:
			emoji = ":white_check_mark:"
		}
		lines = append(lines, emoji+" *"+ev.Title+"*\n"+ev.Message)
	}
	return strings.Join(lines, "\n")
}
