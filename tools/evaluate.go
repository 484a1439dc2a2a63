package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/epopbench/epop-eval/pkg/epop"
	"github.com/epopbench/epop-eval/pkg/epop/eval"
	"github.com/epopbench/epop-eval/pkg/epop/loaders"
	"github.com/epopbench/epop-eval/pkg/epop/metrics"
	"github.com/epopbench/epop-eval/pkg/epop/report"
	"github.com/epopbench/epop-eval/pkg/epop/storage"
	"github.com/epopbench/epop-eval/util"
)

func RegisterEvaluateTool(s *server.MCPServer) {
	tool := mcp.NewTool("evaluate_corpus",
		mcp.WithDescription("Scores predicted annotations against gold annotations for a corpus of documents. Loads gold JSON and document texts, parses raw model output, aligns mentions by span overlap and reports precision/recall/F1 per entity and relation type plus coreference and linking scores. Returns the summary as a Markdown table."),
		mcp.WithString("gold_dir",
			mcp.Required(),
			mcp.Description("Directory containing gold annotation files, one <doc-id>.json per document"),
		),
		mcp.WithString("text_dir",
			mcp.Required(),
			mcp.Description("Directory containing document texts, one <doc-id>.txt per document"),
		),
		mcp.WithString("pred_dir",
			mcp.Required(),
			mcp.Description("Directory containing predicted annotations, one <doc-id>.json or <doc-id>.txt of raw model output per document"),
		),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum span overlap for two mentions to align, 0..1 (default 0.5)"),
		),
		mcp.WithString("scorer",
			mcp.Description("Span overlap scorer: 'iou' or 'name' (default 'iou')"),
		),
		mcp.WithString("report_path",
			mcp.Description("When set, the full report is also stored as JSON at this path"),
		),
	)

	s.AddTool(tool, util.ErrorGuard(evaluateCorpusHandler))
}

func evaluateCorpusHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	goldDir, ok := arguments["gold_dir"].(string)
	if !ok {
		return nil, fmt.Errorf("gold_dir argument is required")
	}
	textDir, ok := arguments["text_dir"].(string)
	if !ok {
		return nil, fmt.Errorf("text_dir argument is required")
	}
	predDir, ok := arguments["pred_dir"].(string)
	if !ok {
		return nil, fmt.Errorf("pred_dir argument is required")
	}

	cfg := eval.DefaultConfig()
	if threshold, ok := arguments["threshold"].(float64); ok {
		cfg.EntityOverlapThreshold = threshold
	}
	if scorer, ok := arguments["scorer"].(string); ok && scorer != "" {
		cfg.OverlapScorer = scorer
	}
	if err := cfg.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	gold, rejected, err := loaders.NewGoldLoader().LoadDir(goldDir, textDir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading gold corpus: %s", err)), nil
	}

	pred, skipped, err := loaders.NewPredictionLoader().LoadDir(predDir, gold)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading predictions: %s", err)), nil
	}

	metrics.ObserveCorpus("gold", gold)
	metrics.ObserveCorpus("prediction", pred)

	rep, err := eval.Evaluate(context.Background(), pred, gold, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %s", err)), nil
	}

	if path, ok := arguments["report_path"].(string); ok && path != "" {
		store := storage.NewJSONReportStore(path)
		if err := store.StoreReport(context.Background(), rep); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("storing report: %s", err)), nil
		}
	}

	var sb strings.Builder
	sb.WriteString(report.Markdown(rep))
	appendLoadErrors(&sb, "Gold documents rejected", rejected)
	appendLoadErrors(&sb, "Prediction documents rejected", skipped)

	return mcp.NewToolResultText(sb.String()), nil
}

func appendLoadErrors(sb *strings.Builder, title string, errs []*epop.LoadError) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", title)
	for _, le := range errs {
		fmt.Fprintf(sb, "- %s: %s (%s)\n", le.DocumentID, le.Kind, le.Detail)
	}
}
