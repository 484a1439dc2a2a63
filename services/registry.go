package services

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Provider names accepted by ClientFor.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepseek = "deepseek"
	ProviderKimi     = "kimi"
	ProviderQwen     = "qwen"
)

// ClientFor maps a provider name to its singleton client and default
// chat model.
func ClientFor(provider string) (*openai.Client, string, error) {
	switch provider {
	case ProviderOpenAI:
		return DefaultOpenAIClient(), "gpt-4o-mini", nil
	case ProviderDeepseek:
		return DefaultDeepseekClient(), "deepseek-chat", nil
	case ProviderKimi:
		return DefaultKimiClient(), "moonshot-v1-8k", nil
	case ProviderQwen:
		return DefaultQwenClient(), "qwen-plus", nil
	default:
		return nil, "", fmt.Errorf("unknown provider: %s", provider)
	}
}
