package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"todo-ledger/core/token"
	"todo-ledger/lifecycle"
)

// taskView is the JSON shape of a record returned to MCP clients.
type taskView struct {
	Reference     string `json:"reference"`
	Text          string `json:"text"`
	Amount        int64  `json:"amount_sats"`
	State         string `json:"state"`
	Undecryptable bool   `json:"undecryptable,omitempty"`
}

func viewOf(r token.TaskRecord) taskView {
	return taskView{
		Reference:     r.Reference.String(),
		Text:          r.Text,
		Amount:        r.Amount,
		State:         string(r.State),
		Undecryptable: r.Undecryptable,
	}
}

func (s *Server) registerListTasksTool() {
	tool := mcp.NewTool("list_tasks",
		mcp.WithDescription("List the tasks currently held, most recent first"),
	)
	s.mcpServer.AddTool(tool, s.handleListTasks)
}

func (s *Server) handleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return taskListResult(s.tasks.List())
}

func (s *Server) registerRefreshTasksTool() {
	tool := mcp.NewTool("refresh_tasks",
		mcp.WithDescription("Reload tasks from the bridge, replacing the local list"),
	)
	s.mcpServer.AddTool(tool, s.handleRefreshTasks)
}

func (s *Server) handleRefreshTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.tasks.Load(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return taskListResult(recs)
}

func (s *Server) registerCreateTaskTool() {
	tool := mcp.NewTool("create_task",
		mcp.WithDescription(fmt.Sprintf("Create a task by locking satoshis (at least %d) behind its encrypted text", s.tasks.MinAmount())),
		mcp.WithString("text", mcp.Required(), mcp.Description("Task description")),
		mcp.WithString("amount", mcp.Required(), mcp.Description("Satoshis to lock, as a whole number")),
	)
	s.mcpServer.AddTool(tool, s.handleCreateTask)
}

func (s *Server) handleCreateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	rec, err := s.tasks.Create(ctx, lifecycle.CreateRequest{
		Text:   toString(args["text"]),
		Amount: toString(args["amount"]),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(viewOf(rec))
}

func (s *Server) registerCompleteTaskTool() {
	tool := mcp.NewTool("complete_task",
		mcp.WithDescription("Complete a task, redeeming the satoshis it locks"),
		mcp.WithString("reference", mcp.Required(), mcp.Description("Task reference as txid.vout")),
	)
	s.mcpServer.AddTool(tool, s.handleCompleteTask)
}

func (s *Server) handleCompleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("reference")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, err := token.ParseOutpoint(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.tasks.Complete(ctx, ref)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(viewOf(rec))
}

func (s *Server) registerIdentityTool() {
	tool := mcp.NewTool("identity",
		mcp.WithDescription("Show the identity key tasks are indexed under"),
	)
	s.mcpServer.AddTool(tool, s.handleIdentity)
}

func (s *Server) handleIdentity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.tasks.Identity(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(id), nil
}

func taskListResult(recs []token.TaskRecord) (*mcp.CallToolResult, error) {
	views := make([]taskView, 0, len(recs))
	for _, r := range recs {
		views = append(views, viewOf(r))
	}
	return jsonResult(map[string]any{
		"tasks":       views,
		"total_count": len(views),
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(lifecycle.UserMessage(err))
}
