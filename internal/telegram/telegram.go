package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"regwatch/internal/model"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	messageLimit   = 4096
)

var errRateLimited = errors.New("rate limited")

// Sender posts the digest to a chat. Sends are synchronous so the process can
// exit as soon as Notify returns.
type Sender struct {
	token    string
	chat     string
	threadID *int

	apiBase     string
	client      *http.Client
	minInterval time.Duration
	lastSent    time.Time
}

type Option func(*Sender)

// WithAPIBase overrides the Bot API host, used by tests.
func WithAPIBase(base string) Option {
	return func(s *Sender) {
		s.apiBase = strings.TrimRight(base, "/")
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Sender) {
		s.client = client
	}
}

func WithMinInterval(d time.Duration) Option {
	return func(s *Sender) {
		s.minInterval = d
	}
}

func NewSender(token, chat string, threadID *int, options ...Option) *Sender {
	s := &Sender{
		token:       token,
		chat:        chat,
		threadID:    threadID,
		apiBase:     defaultAPIBase,
		client:      &http.Client{Timeout: 15 * time.Second},
		minInterval: 1200 * time.Millisecond,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Sender) Notify(ctx context.Context, items []model.Item) error {
	if len(items) == 0 {
		return nil
	}
	for _, part := range splitMessage(model.FormatDigest(items), messageLimit) {
		if err := s.sendWithRateLimit(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sender) sendWithRateLimit(ctx context.Context, text string) error {
	if err := sleep(ctx, time.Until(s.lastSent.Add(s.minInterval))); err != nil {
		return err
	}

	retryAfter, err := s.postMessage(ctx, text)
	if errors.Is(err, errRateLimited) {
		if err := sleep(ctx, retryAfter); err != nil {
			return err
		}
		_, err = s.postMessage(ctx, text)
	}
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	s.lastSent = time.Now()
	return nil
}

func (s *Sender) postMessage(ctx context.Context, text string) (time.Duration, error) {
	payload := map[string]any{
		"chat_id":                  s.chat,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	if s.threadID != nil {
		payload["message_thread_id"] = *s.threadID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var parsed telegramResponse
	_ = json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode == http.StatusTooManyRequests && parsed.Parameters.RetryAfter > 0 {
		return time.Duration(parsed.Parameters.RetryAfter) * time.Second, errRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("telegram error: %d %s", resp.StatusCode, parsed.Description)
	}
	return 0, nil
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// splitMessage HTML-escapes a plain message and packs it into parts of at
// most limit runes, breaking between lines. A line longer than limit is cut,
// but never inside an entity.
func splitMessage(plain string, limit int) []string {
	var parts []string
	var current strings.Builder
	size := 0

	flush := func() {
		if size > 0 {
			parts = append(parts, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(plain, "\n") {
		if line == "" {
			continue
		}
		escaped := html.EscapeString(line)
		n := utf8.RuneCountInString(escaped)
		if size+n > limit {
			flush()
		}
		for n > limit {
			head := cutEscaped(escaped, limit)
			parts = append(parts, head)
			escaped = escaped[len(head):]
			n = utf8.RuneCountInString(escaped)
		}
		current.WriteString(escaped)
		size += n
	}
	flush()

	return parts
}

// cutEscaped returns the longest prefix of s within limit runes that does not
// end in a partial entity.
func cutEscaped(s string, limit int) string {
	head := string([]rune(s)[:limit])
	if amp := strings.LastIndexByte(head, '&'); amp > 0 && !strings.Contains(head[amp:], ";") {
		head = head[:amp]
	}
	return head
}
