package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"arena/internal/agent"
	"arena/internal/config"
	"arena/internal/executor/paper"
	"arena/internal/gateway/notifier"
	"arena/internal/gateway/provider"
	"arena/internal/market"
	"arena/internal/profile"
	"arena/internal/scheduler"
	"arena/internal/search"
	"arena/internal/store/decisionlog"
	"arena/internal/tool"
	"arena/internal/tools"
	livehttp "arena/internal/transport/http/live"
)

// build wires the whole application from config, in dependency order:
// market data, paper broker, stores, tools, provider, agent loop, HTTP.
func build(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}
	fail := func(err error) (*App, error) {
		a.Close()
		return nil, err
	}

	marketSrc := market.NewSource(market.Config{
		RESTBaseURL: cfg.Market.RESTBaseURL,
		HTTPTimeout: time.Duration(cfg.Market.TimeoutSeconds) * time.Second,
	})
	fearGreed := market.NewFearGreedService(15 * time.Second)

	quote := func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		q, err := marketSrc.LatestQuote(ctx, symbol)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromFloat(q.MidPrice), nil
	}
	broker, err := paper.NewBroker(paper.Config{
		StorePath:      cfg.Trading.StorePath,
		StartingCash:   decimal.NewFromFloat(cfg.Trading.StartingCashUSD),
		MaxPositionPct: cfg.Trading.MaxPositionPct,
	}, quote)
	if err != nil {
		return fail(fmt.Errorf("building paper broker: %w", err))
	}
	a.addCloser(broker.Close)

	decisions, err := decisionlog.NewStore(cfg.History.Path)
	if err != nil {
		return fail(fmt.Errorf("opening decision log: %w", err))
	}
	a.addCloser(decisions.Close)

	searchClient := search.NewClient(cfg.Search.APIKey, cfg.Search.BaseURL,
		time.Duration(cfg.Search.TimeoutSeconds)*time.Second)

	persona, err := profile.NewLoader(cfg.Profile.Path, cfg.Profile.HotReload)
	if err != nil {
		return fail(fmt.Errorf("loading persona: %w", err))
	}
	a.addCloser(persona.Close)

	registry, err := tools.NewRegistry(tools.Deps{
		Broker:    broker,
		Market:    marketSrc,
		FearGreed: fearGreed,
		Search:    searchClient,
		Decisions: decisions,
	})
	if err != nil {
		return fail(fmt.Errorf("building tool registry: %w", err))
	}

	modelProvider, err := provider.Build(cfg.Ollama, cfg.Agent.Model)
	if err != nil {
		return fail(fmt.Errorf("building model provider: %w", err))
	}

	controller, err := agent.NewController(agent.ControllerOptions{
		Provider:      modelProvider,
		Invoker:       tool.NewInvoker(registry),
		Registry:      registry,
		MaxIterations: cfg.Agent.MaxToolIterations,
		IsCapitalTool: cfg.Agent.IsCapitalTool,
	})
	if err != nil {
		return fail(err)
	}

	interval, ok := scheduler.ParseIntervalDuration(cfg.Agent.CycleInterval)
	if !ok {
		return fail(fmt.Errorf("invalid cycle_interval %q", cfg.Agent.CycleInterval))
	}

	var notify agent.Notifier
	if cfg.Notify.Telegram.Enabled {
		notify = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}

	loop, err := agent.NewLoop(agent.LoopOptions{
		Controller:      controller,
		Decisions:       decisions,
		Persona:         persona,
		PortfolioValue:  broker.PortfolioValue,
		Notifier:        notify,
		Interval:        interval,
		MaxCycles:       cfg.Agent.MaxCycles,
		ConversationCap: cfg.Agent.ConversationCap,
		PromptRecent:    cfg.History.PromptRecent,
	})
	if err != nil {
		return fail(err)
	}
	a.loop = loop

	if cfg.App.HTTPAddr != "" {
		server, err := livehttp.NewServer(livehttp.ServerConfig{
			Addr:      cfg.App.HTTPAddr,
			Decisions: decisions,
			Broker:    broker,
		})
		if err != nil {
			return fail(fmt.Errorf("building live http server: %w", err))
		}
		a.liveHTTP = server
	}

	a.summary = &StartupSummary{
		Model:       modelProvider.ID(),
		Interval:    interval,
		MaxCycles:   cfg.Agent.MaxCycles,
		HTTPAddr:    cfg.App.HTTPAddr,
		Tools:       registry.Names(),
		SearchReady: searchClient.Enabled(),
		Notify:      notify != nil,
		PersonaName: persona.Snapshot().Persona.Name,
	}
	return a, nil
}
