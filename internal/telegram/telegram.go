package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/innov8academy/newsletter-auto/internal/news"
	"github.com/innov8academy/newsletter-auto/internal/retry"
)

const (
	DefaultAPIURL = "https://api.telegram.org"

	// MaxMessageRunes is Telegram's limit for a text message.
	MaxMessageRunes = 4096
)

// Notifier posts curation digests to a Telegram chat or channel.
type Notifier struct {
	token  string
	chatID string
	apiURL string
	client *http.Client
	retry  retry.RetryConfig
	logger *slog.Logger
}

func NewNotifier(token, chatID string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		token:  token,
		chatID: chatID,
		apiURL: DefaultAPIURL,
		client: &http.Client{Timeout: 30 * time.Second},
		retry:  retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
		logger: logger,
	}
}

// SendMessage sends an HTML message, retrying transient failures.
func (n *Notifier) SendMessage(ctx context.Context, text string) error {
	attempt := 0
	return retry.WithRetry(ctx, n.retry, func() error {
		attempt++
		err := n.sendMessageOnce(ctx, text)
		if err != nil {
			n.logger.Warn("telegram send failed", "attempt", attempt, "error", err)
			return err
		}
		n.logger.Info("message sent to telegram", "attempt", attempt)
		return nil
	})
}

func (n *Notifier) sendMessageOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.token)

	payload := map[string]interface{}{
		"chat_id":                  n.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("error make JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}

// FormatDigest renders up to limit stories as a Telegram HTML message that
// fits in MaxMessageRunes. limit <= 0 means all stories.
func FormatDigest(stories []news.CuratedStory, limit int) string {
	if limit <= 0 || limit > len(stories) {
		limit = len(stories)
	}

	header := "<b>🤖 Top AI stories</b>\n"
	if limit == 0 {
		return header + "\nNo stories made the cut today."
	}

	var b strings.Builder
	b.WriteString(header)
	size := utf8.RuneCountInString(header)

	for i, s := range stories[:limit] {
		entry := formatStory(i+1, s)
		n := utf8.RuneCountInString(entry)
		if size+n > MaxMessageRunes {
			break
		}
		b.WriteString(entry)
		size += n
	}
	return b.String()
}

func formatStory(pos int, s news.CuratedStory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%d. <b>%s</b> (%d/10)\n", pos, html.EscapeString(s.Headline), s.FinalScore)
	if s.Summary != "" {
		b.WriteString(html.EscapeString(s.Summary))
		b.WriteString("\n")
	}
	if len(s.Sources) > 0 {
		fmt.Fprintf(&b, "<i>%s</i>", html.EscapeString(strings.Join(s.Sources, ", ")))
	}
	if s.OriginalURL != "" {
		if len(s.Sources) > 0 {
			b.WriteString(" · ")
		}
		fmt.Fprintf(&b, "<a href=\"%s\">Read more</a>", html.EscapeString(s.OriginalURL))
	}
	b.WriteString("\n")
	return b.String()
}
