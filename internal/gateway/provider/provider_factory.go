package provider

import (
	"fmt"
	"strings"
	"time"

	"arena/internal/config"
)

// Build constructs the model provider for the run from configuration. The
// model can be overridden on the command line; an empty override keeps the
// configured one.
func Build(cfg config.OllamaConfig, model string) (ModelProvider, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	client := NewOllamaChatClient(
		cfg.BaseURL,
		model,
		cfg.Temperature,
		time.Duration(cfg.TimeoutSeconds)*time.Second,
		cfg.MaxRetries,
	)
	return client, nil
}
