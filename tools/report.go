package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/epopbench/epop-eval/pkg/epop/report"
	"github.com/epopbench/epop-eval/pkg/epop/storage"
	"github.com/epopbench/epop-eval/util"
)

func RegisterReportTool(s *server.MCPServer) {
	tool := mcp.NewTool("get_report",
		mcp.WithDescription("Loads a stored evaluation report and renders it as Markdown, optionally filtered to a subset of rows."),
		mcp.WithString("report_path",
			mcp.Required(),
			mcp.Description("Path of a report JSON file written by evaluate_corpus"),
		),
		mcp.WithString("sections",
			mcp.Description("Comma-separated sections to keep: entities, relations, coreference"),
		),
		mcp.WithString("labels",
			mcp.Description("Comma-separated row labels to keep, e.g. 'micro,macro' or entity type names"),
		),
		mcp.WithNumber("min_f1",
			mcp.Description("Keep only rows whose F1 is present and at least this value"),
		),
	)

	s.AddTool(tool, util.ErrorGuard(getReportHandler))
}

func getReportHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	path, ok := arguments["report_path"].(string)
	if !ok {
		return nil, fmt.Errorf("report_path argument is required")
	}

	rep, err := storage.NewJSONReportStore(path).LoadReport(context.Background())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading report: %s", err)), nil
	}

	filter := report.NewFilter()
	filtered := false

	if sections, ok := arguments["sections"].(string); ok && sections != "" {
		for _, s := range splitList(sections) {
			filter = filter.WithSections(report.Section(s))
		}
		filtered = true
	}
	if labels, ok := arguments["labels"].(string); ok && labels != "" {
		filter = filter.WithLabels(splitList(labels)...)
		filtered = true
	}
	if minF1, ok := arguments["min_f1"].(float64); ok {
		filter = filter.WithMinF1(minF1)
		filtered = true
	}

	if !filtered {
		return mcp.NewToolResultText(report.Markdown(rep)), nil
	}

	rows := filter.Apply(rep.Rows())

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Corpus evaluation %s (filtered)\n\n", rep.ID)
	if len(rows) == 0 {
		sb.WriteString("No rows match the filter.\n")
	} else {
		sb.WriteString(report.MarkdownTable(rows))
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
