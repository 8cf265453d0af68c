package market

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	symbolpkg "arena/internal/pkg/symbol"
)

const maxHistoryLimit = 1000

// Source serves live quotes and kline history from Binance spot REST.
type Source struct {
	client *binance.Client
}

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration
}

func NewSource(cfg Config) *Source {
	client := binance.NewClient("", "")
	if url := strings.TrimSpace(cfg.RESTBaseURL); url != "" {
		client.BaseURL = url
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}
	return &Source{client: client}
}

// LatestQuote returns the live top-of-book for a pair like "BTC/USD".
func (s *Source) LatestQuote(ctx context.Context, pair string) (Quote, error) {
	sym := symbolpkg.Parse(pair)
	exchange := sym.Binance()
	if exchange == "" {
		return Quote{}, fmt.Errorf("unparseable symbol %q", pair)
	}
	tickers, err := s.client.NewListBookTickersService().Symbol(exchange).Do(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("book ticker %s: %w", exchange, err)
	}
	if len(tickers) == 0 {
		return Quote{}, fmt.Errorf("no ticker returned for %s", exchange)
	}
	bid := parseFloat(tickers[0].BidPrice)
	ask := parseFloat(tickers[0].AskPrice)
	return Quote{
		Symbol:    sym.Internal(),
		BidPrice:  bid,
		AskPrice:  ask,
		MidPrice:  (bid + ask) / 2,
		Timestamp: time.Now().UTC().UnixMilli(),
	}, nil
}

// FetchHistory returns up to limit klines for pair at interval, oldest first.
func (s *Source) FetchHistory(ctx context.Context, pair, interval string, limit int) ([]Candle, error) {
	sym := symbolpkg.Parse(pair)
	exchange := sym.Binance()
	if exchange == "" {
		return nil, fmt.Errorf("unparseable symbol %q", pair)
	}
	binInterval, ok := NormalizeInterval(interval)
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", interval)
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	klines, err := s.client.NewKlinesService().
		Symbol(exchange).
		Interval(binInterval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", exchange, binInterval, err)
	}
	candles := make([]Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, Candle{
			OpenTime:  k.OpenTime,
			CloseTime: k.CloseTime,
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
			Trades:    k.TradeNum,
		})
	}
	return candles, nil
}

// NormalizeInterval maps agent-facing timeframes ("1Hour", "15Min", "1Day")
// and exchange intervals ("1h", "15m", "1d") onto Binance kline intervals.
func NormalizeInterval(interval string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "1min", "1m":
		return "1m", true
	case "5min", "5m":
		return "5m", true
	case "15min", "15m":
		return "15m", true
	case "30min", "30m":
		return "30m", true
	case "1hour", "1h":
		return "1h", true
	case "4hour", "4h":
		return "4h", true
	case "1day", "1d":
		return "1d", true
	case "1week", "1w":
		return "1w", true
	default:
		return "", false
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
