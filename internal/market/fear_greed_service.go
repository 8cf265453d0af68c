package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	fearGreedEndpoint = "https://api.alternative.me/fng/?limit=5"
	fearGreedTTL      = 10 * time.Minute
)

// FearGreedPoint is one index reading.
type FearGreedPoint struct {
	Value          int    `json:"value"`
	Classification string `json:"classification"`
	Timestamp      int64  `json:"timestamp"`
}

// FearGreedData is the latest reading plus recent history.
type FearGreedData struct {
	Value          int              `json:"value"`
	Classification string           `json:"classification"`
	History        []FearGreedPoint `json:"history"`
	FetchedAt      int64            `json:"fetched_at"`
}

// FearGreedService fetches the crypto Fear & Greed index with a short cache
// so repeated sentiment tool calls within a cycle don't hammer the API.
type FearGreedService struct {
	endpoint string
	client   *http.Client

	mu     sync.Mutex
	cached *FearGreedData
}

func NewFearGreedService(timeout time.Duration) *FearGreedService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FearGreedService{
		endpoint: fearGreedEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *FearGreedService) Current(ctx context.Context) (*FearGreedData, error) {
	s.mu.Lock()
	if s.cached != nil && time.Since(time.UnixMilli(s.cached.FetchedAt)) < fearGreedTTL {
		data := *s.cached
		s.mu.Unlock()
		return &data, nil
	}
	s.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fear/greed fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fear/greed status=%d", resp.StatusCode)
	}

	var wire struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
			Timestamp      string `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("fear/greed decode: %w", err)
	}
	if len(wire.Data) == 0 {
		return nil, fmt.Errorf("fear/greed returned no data")
	}

	data := &FearGreedData{FetchedAt: time.Now().UTC().UnixMilli()}
	for i, d := range wire.Data {
		v, _ := strconv.Atoi(d.Value)
		ts, _ := strconv.ParseInt(d.Timestamp, 10, 64)
		point := FearGreedPoint{Value: v, Classification: d.Classification, Timestamp: ts}
		if i == 0 {
			data.Value = v
			data.Classification = d.Classification
		}
		data.History = append(data.History, point)
	}

	s.mu.Lock()
	s.cached = data
	s.mu.Unlock()
	return data, nil
}
