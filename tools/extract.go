package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sashabaranov/go-openai"

	"github.com/epopbench/epop-eval/prompts"
	"github.com/epopbench/epop-eval/services"
	"github.com/epopbench/epop-eval/util"
)

func RegisterExtractTool(s *server.MCPServer) {
	tool := mcp.NewTool("extract_document",
		mcp.WithDescription("Sends one document to a chat model with the plant-health extraction instruction and returns the raw model output. The output can be saved for later scoring with evaluate_corpus."),
		mcp.WithString("document_path",
			mcp.Required(),
			mcp.Description("Path of the document text file to extract from"),
		),
		mcp.WithString("provider",
			mcp.Description("Model provider: openai, deepseek, kimi or qwen (default deepseek)"),
		),
		mcp.WithString("model",
			mcp.Description("Override the provider's default chat model"),
		),
		mcp.WithString("instruction_path",
			mcp.Description("Path of an instruction file; the built-in zero-shot instruction is used when unset"),
		),
		mcp.WithString("save_path",
			mcp.Description("When set, the raw output is also written to this file"),
		),
	)

	s.AddTool(tool, util.ErrorGuard(extractDocumentHandler))
}

func extractDocumentHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	docPath, ok := arguments["document_path"].(string)
	if !ok {
		return nil, fmt.Errorf("document_path argument is required")
	}

	provider, _ := arguments["provider"].(string)
	if provider == "" {
		provider = services.ProviderDeepseek
	}

	client, model, err := services.ClientFor(provider)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if override, ok := arguments["model"].(string); ok && override != "" {
		model = override
	}

	instruction := prompts.ExtractionInstruction
	if path, ok := arguments["instruction_path"].(string); ok && path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reading instruction: %s", err)), nil
		}
		instruction = string(raw)
	}

	text, err := os.ReadFile(docPath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading document: %s", err)), nil
	}

	resp, err := client.CreateChatCompletion(
		context.Background(),
		openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: instruction,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: string(text),
				},
			},
		},
	)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chat completion failed: %s", err)), nil
	}
	if len(resp.Choices) == 0 {
		return mcp.NewToolResultError("no response from model"), nil
	}

	result := resp.Choices[0].Message.Content

	if savePath, ok := arguments["save_path"].(string); ok && savePath != "" {
		if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("creating output directory: %s", err)), nil
		}
		if err := os.WriteFile(savePath, []byte(result+"\n\n"), 0644); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saving output: %s", err)), nil
		}
	}

	return mcp.NewToolResultText(result), nil
}
