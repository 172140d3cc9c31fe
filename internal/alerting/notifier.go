package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notification 封装告警上下文。
type Notification struct {
	When          time.Time
	Subject       string
	Lines         []string
	AdditionalMsg string
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
	SendDocument(ctx context.Context, filename string, content []byte, caption string) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := n.do(req); err != nil {
		return err
	}

	n.logger.Info().Time("when", note.When).
		Str("subject", note.Subject).
		Msg("告警已发送 (Telegram)")
	return nil
}

// SendDocument 调用 sendDocument API 推送文件附件。
func (n *TelegramNotifier) SendDocument(ctx context.Context, filename string, content []byte, caption string) error {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	if err := writer.WriteField("chat_id", n.chatID); err != nil {
		return fmt.Errorf("write telegram field: %w", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return fmt.Errorf("write telegram field: %w", err)
		}
	}
	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("create telegram form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("write telegram document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalise telegram form: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendDocument", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	if err := n.do(req); err != nil {
		return err
	}

	n.logger.Info().Str("filename", filename).Msg("文件已发送 (Telegram)")
	return nil
}

func (n *TelegramNotifier) do(req *http.Request) error {
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("telegram 响应码异常: %d (%s)", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[%s]\n", note.Subject))
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", note.When.UTC().Format(time.RFC3339)))
	for _, line := range note.Lines {
		builder.WriteString(line)
		builder.WriteString("\n")
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
