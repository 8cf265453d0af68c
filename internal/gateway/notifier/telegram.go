// Package notifier pushes trade and failure events to Telegram.
package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arena/internal/logger"
	"arena/internal/store/decisionlog"
)

// Telegram sends messages to one chat via the Bot API.
type Telegram struct {
	BotToken string
	ChatID   string
	Client   *http.Client
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{BotToken: botToken, ChatID: chatID, Client: &http.Client{Timeout: 15 * time.Second}}
}

// SendText sends a text message with up to 3 retries.
func (t *Telegram) SendText(text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram notifier is not configured")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.BotToken)

	payload := map[string]any{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, _ := json.Marshal(payload)

	var lastErr error
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest("POST", url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return lastErr
}

// NotifyTrade pushes an executed-trade summary. Delivery runs in the
// background so the trading loop never blocks on Telegram.
func (t *Telegram) NotifyTrade(rec decisionlog.Record) {
	var b strings.Builder
	fmt.Fprintf(&b, "*Trade executed* (decision #%d)\n", rec.DecisionID)
	fmt.Fprintf(&b, "Action: %s\n", strings.ToUpper(rec.Action))
	if sym, ok := rec.Parameters["symbol"].(string); ok {
		fmt.Fprintf(&b, "Symbol: %s\n", sym)
	}
	if qty, ok := rec.Parameters["quantity"]; ok {
		fmt.Fprintf(&b, "Quantity: %v\n", qty)
	}
	fmt.Fprintf(&b, "Portfolio: %s USD\n", rec.PortfolioValue.Round(2))
	if reasoning := strings.TrimSpace(rec.Reasoning); reasoning != "" {
		if len(reasoning) > 400 {
			reasoning = reasoning[:400] + "..."
		}
		fmt.Fprintf(&b, "Reasoning: %s", reasoning)
	}
	t.sendAsync(b.String())
}

// NotifyError pushes a cycle failure.
func (t *Telegram) NotifyError(cycle int, err error) {
	t.sendAsync(fmt.Sprintf("*Cycle %d failed*\n%v", cycle, err))
}

func (t *Telegram) sendAsync(text string) {
	go func() {
		if err := t.SendText(text); err != nil {
			logger.Warnf("telegram notify failed: %v", err)
		}
	}()
}
