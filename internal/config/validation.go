package config

import (
	"fmt"
	"strings"

	"arena/internal/scheduler"
)

func validate(c *Config) error {
	if err := c.Agent.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AgentConfig) validate() error {
	if strings.TrimSpace(a.Model) == "" {
		return fmt.Errorf("agent.model cannot be empty")
	}
	if _, ok := scheduler.ParseIntervalDuration(a.CycleInterval); !ok {
		return fmt.Errorf("agent.cycle_interval is not a valid interval: %q", a.CycleInterval)
	}
	if a.MaxCycles < 0 {
		return fmt.Errorf("agent.max_cycles must be >= 0 (0 = unbounded)")
	}
	if a.MaxToolIterations <= 0 {
		return fmt.Errorf("agent.max_tool_iterations must be > 0")
	}
	if a.ConversationCap < 2 {
		return fmt.Errorf("agent.conversation_cap must leave room beyond the system turn")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.MaxPositionPct < 0 || t.MaxPositionPct > 1 {
		return fmt.Errorf("trading.max_position_pct must be within [0,1]")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if tg.Enabled && (strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "") {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}
