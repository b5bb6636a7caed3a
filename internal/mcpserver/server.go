// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Recruitflow tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/recruitflow/internal/apperr"
	"github.com/starford/recruitflow/internal/models"
	"github.com/starford/recruitflow/internal/workflow"
)

// RulesURI is the resource describing the scheduling rules.
const RulesURI = "recruitflow://scheduling-rules"

// Actor attributes engine calls made through MCP.
var Actor = workflow.Actor{ID: "mcp", Name: "assistant"}

type tool struct {
	def     mcp.Tool
	handler server.ToolHandlerFunc
}

// Server wraps the MCP server with Recruitflow tools.
type Server struct {
	mcp   *server.MCPServer
	eng   *workflow.Engine
	tools map[string]tool
}

// New creates a new MCP server with all Recruitflow tools registered.
func New(eng *workflow.Engine, version string) *Server {
	s := &Server{eng: eng, tools: make(map[string]tool)}

	s.mcp = server.NewMCPServer(
		"Recruitflow",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.add(mcp.NewTool("admit_candidate",
		mcp.WithDescription("Admit a new candidate into the pipeline with status \"new\". "+
			"Fails if a candidate with the same email (case-insensitive) already exists; "+
			"the error names the existing record."),
		mcp.WithString("first_name", mcp.Required()),
		mcp.WithString("last_name", mcp.Required()),
		mcp.WithString("email", mcp.Required()),
		mcp.WithString("phone"),
		mcp.WithString("position", mcp.Description("Role the candidate applies for")),
		mcp.WithString("source", mcp.Description("Where the candidate came from, e.g. referral")),
		mcp.WithString("notes"),
		mcp.WithArray("skills", mcp.Items(map[string]any{"type": "string"})),
	), s.admitCandidate)

	s.add(mcp.NewTool("get_candidate",
		mcp.WithDescription("Read one candidate, their interviews and audit history."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Candidate ID")),
	), s.getCandidate)

	s.add(mcp.NewTool("list_candidates",
		mcp.WithDescription("List candidates, optionally filtered by status, position or a name/email query."),
		mcp.WithString("status", mcp.Enum("new", "contacted", "scheduled", "interviewed", "hired", "rejected", "terminated")),
		mcp.WithString("position"),
		mcp.WithString("query"),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset"),
	), s.listCandidates)

	s.add(mcp.NewTool("set_candidate_status",
		mcp.WithDescription("Close a candidate with a terminal status. Terminal statuses are final."),
		mcp.WithString("id", mcp.Required()),
		mcp.WithString("status", mcp.Required(), mcp.Enum("hired", "rejected", "terminated")),
	), s.setCandidateStatus)

	s.add(mcp.NewTool("schedule_interview",
		mcp.WithDescription("Schedule an interview. The date must satisfy the scheduling rules "+
			"(see get_scheduling_rules) and the candidate may hold at most one scheduled interview."),
		mcp.WithString("candidate_id", mcp.Required()),
		mcp.WithString("interview_date", mcp.Required(), mcp.Description("RFC 3339 timestamp")),
		mcp.WithString("interview_type", mcp.Description("e.g. technical, behavioral")),
		mcp.WithArray("interviewers", mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("meeting_link"),
	), s.scheduleInterview)

	s.add(mcp.NewTool("reschedule_interview",
		mcp.WithDescription("Move a scheduled interview. Omit meeting_link to keep the current one."),
		mcp.WithString("id", mcp.Required()),
		mcp.WithString("interview_date", mcp.Required(), mcp.Description("RFC 3339 timestamp")),
		mcp.WithString("meeting_link", mcp.Description("Absolute URL; an empty string clears the link")),
	), s.rescheduleInterview)

	s.add(mcp.NewTool("cancel_interview",
		mcp.WithDescription("Cancel a scheduled interview. The candidate's status is not changed."),
		mcp.WithString("id", mcp.Required()),
	), s.cancelInterview)

	s.add(mcp.NewTool("submit_feedback",
		mcp.WithDescription("Record feedback for an interview and mark it completed. "+
			"Each rating is 0-5 (0 = not rated); the overall rating is derived."),
		mcp.WithString("id", mcp.Required()),
		mcp.WithNumber("technical_skills", mcp.Min(0), mcp.Max(5)),
		mcp.WithNumber("communication", mcp.Min(0), mcp.Max(5)),
		mcp.WithNumber("problem_solving", mcp.Min(0), mcp.Max(5)),
		mcp.WithNumber("cultural_fit", mcp.Min(0), mcp.Max(5)),
		mcp.WithString("outcome", mcp.Enum("pending", "passed", "failed", "recommended-next-round")),
		mcp.WithString("notes"),
	), s.submitFeedback)

	s.add(mcp.NewTool("attach_cv",
		mcp.WithDescription("Attach a CV to a candidate from a base64 data URI or an http(s) URL. "+
			"Accepted formats: pdf, docx, doc, txt, md."),
		mcp.WithString("candidate_id", mcp.Required()),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:<mime>;base64,<data> or http(s) URL")),
		mcp.WithString("filename", mcp.Description("Optional file name including extension")),
	), s.attachCV)

	s.add(mcp.NewTool("get_scheduling_rules",
		mcp.WithDescription("Returns the scheduling rules, in the order they are evaluated."),
	), s.getSchedulingRules)

	s.mcp.AddResource(
		mcp.NewResource(RulesURI, "Scheduling Rules",
			mcp.WithResourceDescription("Rules every interview date must satisfy."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRulesResource,
	)

	return s
}

func (s *Server) add(def mcp.Tool, h server.ToolHandlerFunc) {
	s.tools[def.Name] = tool{def: def, handler: h}
	s.mcp.AddTool(def, h)
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) ctx(ctx context.Context) context.Context {
	return workflow.WithActor(ctx, Actor)
}

// bind decodes the tool arguments into v.
func bind(req mcp.CallToolRequest, v any) error {
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// result renders v as indented JSON.
func result(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

// failure reports engine rejections as tool errors so the model can react.
// Unclassified failures are returned as protocol errors.
func failure(err error) (*mcp.CallToolResult, error) {
	code := apperr.CodeOf(err)
	if code == "" {
		return nil, err
	}
	var dup *apperr.DuplicateCandidateError
	if errors.As(err, &dup) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s (existing candidate id=%s, status=%s)",
			code, err.Error(), dup.ExistingID, dup.ExistingStatus)), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", code, err.Error())), nil
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperr.Invalid(fmt.Errorf("interview_date: %w", err))
	}
	return t, nil
}

func (s *Server) admitCandidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in workflow.CandidateInput
	if err := bind(req, &in); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.eng.AdmitCandidate(s.ctx(ctx), in)
	if err != nil {
		return failure(err)
	}
	return result(c)
}

type candidateView struct {
	*models.Candidate
	Interviews []models.Interview   `json:"interviews"`
	History    []models.AuditEntry `json:"history"`
}

func (s *Server) getCandidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.eng.GetCandidate(ctx, id)
	if err != nil {
		return failure(err)
	}
	interviews, err := s.eng.ListInterviews(ctx, id)
	if err != nil {
		return failure(err)
	}
	history, err := s.eng.History(ctx, id)
	if err != nil {
		return failure(err)
	}
	return result(candidateView{Candidate: c, Interviews: interviews, History: history})
}

func (s *Server) listCandidates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Status   string  `json:"status"`
		Position string  `json:"position"`
		Query    string  `json:"query"`
		Limit    float64 `json:"limit"`
		Offset   float64 `json:"offset"`
	}
	if err := bind(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, total, err := s.eng.ListCandidates(ctx, models.CandidateFilter{
		Status:   models.CandidateStatus(args.Status),
		Position: args.Position,
		Query:    args.Query,
		Limit:    int(args.Limit),
		Offset:   int(args.Offset),
	})
	if err != nil {
		return failure(err)
	}
	if items == nil {
		items = []models.Candidate{}
	}
	return result(map[string]any{"candidates": items, "total": total})
}

func (s *Server) setCandidateStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.eng.SetTerminalStatus(s.ctx(ctx), id, models.CandidateStatus(status))
	if err != nil {
		return failure(err)
	}
	return result(c)
}

func (s *Server) scheduleInterview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in workflow.ScheduleInput
	if err := bind(req, &in); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	iv, err := s.eng.Schedule(s.ctx(ctx), in)
	if err != nil {
		return failure(err)
	}
	return result(iv)
}

func (s *Server) rescheduleInterview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ID            string  `json:"id"`
		InterviewDate string  `json:"interview_date"`
		MeetingLink   *string `json:"meeting_link"`
	}
	if err := bind(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	at, err := parseDate(args.InterviewDate)
	if err != nil {
		return failure(err)
	}
	iv, err := s.eng.Reschedule(s.ctx(ctx), args.ID, at, args.MeetingLink)
	if err != nil {
		return failure(err)
	}
	return result(iv)
}

func (s *Server) cancelInterview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	iv, err := s.eng.Cancel(s.ctx(ctx), id)
	if err != nil {
		return failure(err)
	}
	return result(iv)
}

func (s *Server) submitFeedback(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ID string `json:"id"`
		models.Ratings
		Outcome models.Outcome `json:"outcome"`
		Notes   string         `json:"notes"`
	}
	if err := bind(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	iv, err := s.eng.SubmitFeedback(s.ctx(ctx), args.ID, workflow.FeedbackInput{
		Ratings: args.Ratings,
		Outcome: args.Outcome,
		Notes:   args.Notes,
	})
	if err != nil {
		return failure(err)
	}
	return result(iv)
}

func (s *Server) getSchedulingRules(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RulesDocument(s.eng.Validator())), nil
}

func (s *Server) readRulesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RulesURI,
			MIMEType: "text/markdown",
			Text:     RulesDocument(s.eng.Validator()),
		},
	}, nil
}
