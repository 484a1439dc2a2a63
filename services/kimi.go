package services

import (
	"os"
	"sync"

	"github.com/sashabaranov/go-openai"
)

var (
	kimiClient *openai.Client
	kimiOnce   sync.Once
)

// DefaultKimiClient returns a singleton client for Moonshot's Kimi models,
// which expose an OpenAI-compatible API.
func DefaultKimiClient() *openai.Client {
	kimiOnce.Do(func() {
		apiKey := os.Getenv("MOONSHOT_API_KEY")
		if apiKey == "" {
			panic("MOONSHOT_API_KEY environment variable is not set")
		}

		baseURL := os.Getenv("MOONSHOT_API_BASE")
		if baseURL == "" {
			baseURL = "https://api.moonshot.cn/v1"
		}

		config := openai.DefaultConfig(apiKey)
		config.BaseURL = baseURL

		kimiClient = openai.NewClientWithConfig(config)
	})
	return kimiClient
}
