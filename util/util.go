package util

import (
	"fmt"
	"runtime/debug"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// ToolHandler is the signature the MCP server expects for tool calls.
type ToolHandler func(arguments map[string]interface{}) (*mcp.CallToolResult, error)

// ErrorGuard wraps a tool handler so a panic becomes a tool error result
// instead of taking the whole server down. The unnamed return type keeps
// the wrapped handler assignable to the server's handler type.
func ErrorGuard(handler ToolHandler) func(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	return func(arguments map[string]interface{}) (result *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithFields(logrus.Fields{
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("Tool handler panicked")
				result = mcp.NewToolResultError(fmt.Sprintf("tool panicked: %v", r))
				err = nil
			}
		}()
		return handler(arguments)
	}
}
