package services

import (
	"os"
	"sync"

	"github.com/sashabaranov/go-openai"
)

var (
	qwenClient *openai.Client
	qwenOnce   sync.Once
)

// DefaultQwenClient returns a singleton client for Alibaba's Qwen models
// via the DashScope OpenAI-compatible endpoint.
func DefaultQwenClient() *openai.Client {
	qwenOnce.Do(func() {
		apiKey := os.Getenv("DASHSCOPE_API_KEY")
		if apiKey == "" {
			panic("DASHSCOPE_API_KEY environment variable is not set")
		}

		baseURL := os.Getenv("DASHSCOPE_API_BASE")
		if baseURL == "" {
			baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		}

		config := openai.DefaultConfig(apiKey)
		config.BaseURL = baseURL

		qwenClient = openai.NewClientWithConfig(config)
	})
	return qwenClient
}
