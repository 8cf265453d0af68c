package config

import "strings"

const (
	defaultAppEnv        = "dev"
	defaultAppLogLevel   = "info"
	defaultAppHTTPAddr   = ":9991"
	defaultAppLogPath    = "data/logs/arena-live.log"
	defaultAppLLMLog     = "data/logs/arena-llm.log"
	defaultAgentModel    = "qwen2.5:latest"
	defaultCycleInterval = "5m"
	defaultMaxToolIters  = 10
	defaultConvCap       = 50
	defaultOllamaURL     = "http://localhost:11434"
	defaultOllamaTimeout = 300
	defaultOllamaRetries = 2
	defaultTemperature   = 0.5
	defaultMarketREST    = "https://api.binance.com"
	defaultMarketTimeout = 10
	defaultStartingCash  = 100000
	defaultMaxPosPct     = 0.10
	defaultPaperStore    = "data/db/paper.db"
	defaultHistoryPath   = "data/db/decisions.db"
	defaultPromptRecent  = 20
	defaultSearchURL     = "https://api.tavily.com"
	defaultSearchTimeout = 20
	defaultProfilePath   = "configs/persona.yaml"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Agent.applyDefaults(keys)
	c.Ollama.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.History.applyDefaults(keys)
	c.Search.applyDefaults(keys)
	c.Profile.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.llm_log_path", &a.LLMLog, defaultAppLLMLog),
	)
}

func (a *AgentConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("agent.model", &a.Model, defaultAgentModel),
		stringFieldDefault("agent.cycle_interval", &a.CycleInterval, defaultCycleInterval),
		fieldDefault{
			key:   "agent.max_tool_iterations",
			need:  func() bool { return a.MaxToolIterations <= 0 },
			apply: func() { a.MaxToolIterations = defaultMaxToolIters },
		},
		fieldDefault{
			key:   "agent.conversation_cap",
			need:  func() bool { return a.ConversationCap <= 0 },
			apply: func() { a.ConversationCap = defaultConvCap },
		},
		fieldDefault{
			key:   "agent.capital_tools",
			need:  func() bool { return len(a.CapitalTools) == 0 },
			apply: func() { a.CapitalTools = []string{"place_crypto_order"} },
		},
	)
}

func (o *OllamaConfig) applyDefaults(keys keySet) {
	if o == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("ollama.base_url", &o.BaseURL, defaultOllamaURL),
		fieldDefault{
			key:   "ollama.timeout_seconds",
			need:  func() bool { return o.TimeoutSeconds <= 0 },
			apply: func() { o.TimeoutSeconds = defaultOllamaTimeout },
		},
		fieldDefault{
			key:   "ollama.max_retries",
			need:  func() bool { return o.MaxRetries <= 0 },
			apply: func() { o.MaxRetries = defaultOllamaRetries },
		},
		fieldDefault{
			key:   "ollama.temperature",
			need:  func() bool { return o.Temperature <= 0 },
			apply: func() { o.Temperature = defaultTemperature },
		},
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.rest_base_url", &m.RESTBaseURL, defaultMarketREST),
		fieldDefault{
			key:   "market.timeout_seconds",
			need:  func() bool { return m.TimeoutSeconds <= 0 },
			apply: func() { m.TimeoutSeconds = defaultMarketTimeout },
		},
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "trading.starting_cash_usd",
			need:  func() bool { return t.StartingCashUSD <= 0 },
			apply: func() { t.StartingCashUSD = defaultStartingCash },
		},
		fieldDefault{
			key:   "trading.max_position_pct",
			need:  func() bool { return t.MaxPositionPct <= 0 },
			apply: func() { t.MaxPositionPct = defaultMaxPosPct },
		},
		stringFieldDefault("trading.store_path", &t.StorePath, defaultPaperStore),
	)
}

func (h *HistoryConfig) applyDefaults(keys keySet) {
	if h == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("history.path", &h.Path, defaultHistoryPath),
		fieldDefault{
			key:   "history.prompt_recent",
			need:  func() bool { return h.PromptRecent <= 0 },
			apply: func() { h.PromptRecent = defaultPromptRecent },
		},
	)
}

func (s *SearchConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("search.base_url", &s.BaseURL, defaultSearchURL),
		fieldDefault{
			key:   "search.timeout_seconds",
			need:  func() bool { return s.TimeoutSeconds <= 0 },
			apply: func() { s.TimeoutSeconds = defaultSearchTimeout },
		},
	)
}

func (p *ProfileConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("profile.path", &p.Path, defaultProfilePath),
	)
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
