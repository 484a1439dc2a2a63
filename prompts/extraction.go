package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ExtractionInstruction is the zero-shot instruction sent to chat models
// when no instruction file is supplied. The output schema matches what the
// prediction loader parses.
const ExtractionInstruction = `You are an information extraction system for plant-health surveillance news.

Read the document and extract every mention of the following entity types:
- Organism: a plant, animal, fungus, bacterium, virus or other living agent
- Disease: a named plant disease
- Habitat: a habitat or substrate where an organism lives or is found
- Location: a geographic or administrative place

Then extract relations between them:
- transmits(agent: Organism, host: Organism)
- causes(cause: Organism or relation, effect: Disease)
- affects(agent: Organism or Disease, affected: one or more Organism/Habitat/Location)
- has_been_found_on(subject: Organism, location: Location or Habitat)

A relation may carry a "modality": "asserted" (default), "negated", "hypothetical" or "uncertain".
Group mentions of the same real-world entity in "equivalences".
When an entity can be grounded, add "NCBI_Taxonomy", "GeoNames" or "OntoBiotope" with the identifier, or "name" with a canonical name.

Answer with a single JSON object and nothing else:
{
  "entities": [
    {"id": "T1", "type": "Organism", "text": "exact surface form", "start": 0, "end": 10, "NCBI_Taxonomy": "..."}
  ],
  "relationships": [
    {"id": "R1", "type": "causes", "modality": "asserted", "arguments": {"cause": ["T1"], "effect": ["T2"]}}
  ],
  "equivalences": [["T1", "T3"]]
}

"start" and "end" are character offsets into the document, end exclusive. Argument values are lists of entity or relation ids. Do not invent mentions that are not in the text.`

func RegisterExtractionPrompts(s *server.MCPServer) {
	prompt := mcp.NewPrompt("epop_extraction",
		mcp.WithPromptDescription("Zero-shot instruction for extracting plant-health entities and relations from a news document"),
		mcp.WithArgument("document_text", mcp.ArgumentDescription("The document to append to the instruction")),
	)
	s.AddPrompt(prompt, extractionHandler)
}

func extractionHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	messages := []mcp.PromptMessage{
		{
			Role: mcp.RoleUser,
			Content: mcp.TextContent{
				Type: "text",
				Text: ExtractionInstruction,
			},
		},
	}

	if doc := request.Params.Arguments["document_text"]; doc != "" {
		messages = append(messages, mcp.PromptMessage{
			Role: mcp.RoleUser,
			Content: mcp.TextContent{
				Type: "text",
				Text: doc,
			},
		})
	}

	return &mcp.GetPromptResult{
		Description: "Plant-health information extraction instruction",
		Messages:    messages,
	}, nil
}
