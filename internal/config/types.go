package config

import "strings"

// Config is the root configuration for one agent process.
type Config struct {
	App     AppConfig     `toml:"app"`
	Agent   AgentConfig   `toml:"agent"`
	Ollama  OllamaConfig  `toml:"ollama"`
	Market  MarketConfig  `toml:"market"`
	Trading TradingConfig `toml:"trading"`
	History HistoryConfig `toml:"history"`
	Search  SearchConfig  `toml:"search"`
	Profile ProfileConfig `toml:"profile"`
	Notify  NotifyConfig  `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
	LLMDump  bool   `toml:"llm_dump_payload"`
}

// AgentConfig drives the decision loop itself.
type AgentConfig struct {
	Model             string   `toml:"model"`
	CycleInterval     string   `toml:"cycle_interval"`
	MaxCycles         int      `toml:"max_cycles"`          // 0 = unbounded
	MaxToolIterations int      `toml:"max_tool_iterations"` // bound on model<->tool round trips per cycle
	ConversationCap   int      `toml:"conversation_cap"`    // max turns kept in working memory
	CapitalTools      []string `toml:"capital_tools"`       // tool names that execute capital
}

type OllamaConfig struct {
	BaseURL        string  `toml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxRetries     int     `toml:"max_retries"`
	Temperature    float64 `toml:"temperature"`
}

type MarketConfig struct {
	RESTBaseURL    string `toml:"rest_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TradingConfig parameterizes the paper brokerage.
type TradingConfig struct {
	StartingCashUSD float64 `toml:"starting_cash_usd"`
	MaxPositionPct  float64 `toml:"max_position_pct"` // 0~1, advisory cap surfaced to the model
	StorePath       string  `toml:"store_path"`
}

type HistoryConfig struct {
	Path         string `toml:"path"`
	PromptRecent int    `toml:"prompt_recent"` // decisions summarized into each cycle's context
}

type SearchConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ProfileConfig struct {
	Path      string `toml:"path"`
	HotReload bool   `toml:"hot_reload"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// IsCapitalTool reports whether name belongs to the configured set of
// capital-executing tools.
func (a AgentConfig) IsCapitalTool(name string) bool {
	name = strings.TrimSpace(name)
	for _, t := range a.CapitalTools {
		if strings.EqualFold(strings.TrimSpace(t), name) {
			return true
		}
	}
	return false
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}
