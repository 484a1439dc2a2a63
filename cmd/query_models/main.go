package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/epopbench/epop-eval/pkg/epop/loaders"
	"github.com/epopbench/epop-eval/prompts"
	"github.com/epopbench/epop-eval/services"
)

var (
	textDir     = flag.String("texts", "", "Directory containing document texts (<id>.txt)")
	instruction = flag.String("instruction", "", "Instruction file; the built-in zero-shot instruction is used when empty")
	outputDir   = flag.String("output", "", "Directory for raw outputs (<doc-id>/<n>.txt)")
	provider    = flag.String("provider", services.ProviderDeepseek, "Model provider: openai, deepseek, kimi or qwen")
	model       = flag.String("model", "", "Override the provider's default chat model")
	repeats     = flag.Int("repeats", 5, "Repetitions per document")
	sleep       = flag.Duration("sleep", 30*time.Second, "Pause between API calls")
	tokenBudget = flag.Int("token-budget", 8000, "Warn when instruction plus document exceeds this many tokens")
	logLevel    = flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatalf("Invalid log level: %v", err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if *textDir == "" || *outputDir == "" {
		logger.Fatal("-texts and -output must be specified")
	}

	client, modelName, err := services.ClientFor(*provider)
	if err != nil {
		logger.Fatalf("Invalid provider: %v", err)
	}
	if *model != "" {
		modelName = *model
	}

	systemPrompt := prompts.ExtractionInstruction
	if *instruction != "" {
		raw, err := os.ReadFile(*instruction)
		if err != nil {
			logger.Fatalf("Failed to read instruction file: %v", err)
		}
		systemPrompt = string(raw)
	}

	texts, err := loaders.ReadTextDir(*textDir)
	if err != nil {
		logger.Fatalf("Failed to read text directory: %v", err)
	}
	if len(texts) == 0 {
		logger.Fatal("No input documents found")
	}

	docIDs := make([]string, 0, len(texts))
	for id := range texts {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)

	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Fatalf("Failed to load tokenizer: %v", err)
	}

	logger.Infof("Querying %s (%s) over %d documents, %d repetitions each",
		*provider, modelName, len(docIDs), *repeats)

	start := time.Now()
	for _, docID := range docIDs {
		queryDocument(logger, client, encoding, modelName, systemPrompt, docID, texts[docID])
	}
	logger.Infof("Done in %s", time.Since(start).Round(time.Millisecond))
}

func queryDocument(logger *logrus.Logger, client *openai.Client, encoding *tiktoken.Tiktoken,
	modelName, systemPrompt, docID, text string) {

	promptTokens := len(encoding.Encode(systemPrompt, nil, nil)) + len(encoding.Encode(text, nil, nil))
	if promptTokens > *tokenBudget {
		logger.Warnf("Document %s: prompt is %d tokens, over the %d budget", docID, promptTokens, *tokenBudget)
	}

	dirPath := filepath.Join(*outputDir, docID)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		logger.Errorf("Failed to create %s: %v", dirPath, err)
		return
	}

	logger.Infof("Processing %s (%d tokens)", docID, promptTokens)

	for repeat := 1; repeat <= *repeats; repeat++ {
		saveFile := filepath.Join(dirPath, fmt.Sprintf("%d.txt", repeat))

		if _, err := os.Stat(saveFile); err == nil {
			logger.Infof("%q exists.", saveFile)
			continue
		}

		logger.Infof("repeating-%d.", repeat)

		resp, err := client.CreateChatCompletion(
			context.Background(),
			openai.ChatCompletionRequest{
				Model: modelName,
				Messages: []openai.ChatCompletionMessage{
					{
						Role:    openai.ChatMessageRoleSystem,
						Content: systemPrompt,
					},
					{
						Role:    openai.ChatMessageRoleUser,
						Content: text,
					},
				},
			},
		)
		if err != nil {
			logger.Errorf("Error during API call: %v", err)
			continue
		}

		result := ""
		if len(resp.Choices) > 0 {
			result = resp.Choices[0].Message.Content
		}
		if result == "" {
			logger.Warn("Received empty response from API.")
			continue
		}

		if err := os.WriteFile(saveFile, []byte(result+"\n\n"), 0644); err != nil {
			logger.Errorf("Error writing %s: %v", saveFile, err)
			continue
		}
		logger.Infof("%s saved.", saveFile)

		if repeat < *repeats {
			time.Sleep(*sleep)
		}
	}
}
