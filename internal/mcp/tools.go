package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/atp-triage-server/internal/domain"
	"github.com/atp-triage-server/internal/service"
)

func (s *LiteServer) registerTools() {
	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "triage_patient",
		Description: "Classify a patient snapshot into RED/YELLOW/GREEN urgency per the AIIMS ATP rule cascade. Requires all vitals, consciousness, and every symptom flag; returns the committed verdict with its reason log.",
	}, s.handleTriagePatient)

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "validate_snapshot",
		Description: "Check a patient snapshot document for missing fields and out-of-range vitals without classifying it.",
	}, s.handleValidateSnapshot)

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "get_verdict",
		Description: "Retrieve a committed triage verdict from the audit log by its ID.",
	}, s.handleGetVerdict)

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "list_verdicts",
		Description: "List recent triage verdicts from the audit log, newest first.",
	}, s.handleListVerdicts)

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "export_verdicts",
		Description: "Export the full verdict audit log as a JSON file in the export directory and return its path.",
	}, s.handleExportVerdicts)
}

// --- Tool input/output types ---

type triageOutput struct {
	VerdictID   string   `json:"verdict_id"`
	Level       string   `json:"level"`
	Disposition string   `json:"disposition"`
	Reasons     []string `json:"reasons"`
	EvaluatedAt string   `json:"evaluated_at"`
}

type validateOutput struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Field string `json:"field,omitempty"`
}

type getVerdictInput struct {
	VerdictID string `json:"verdict_id" jsonschema:"verdict ID returned by triage_patient"`
}

type listVerdictsInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"maximum verdicts to return (default 20)"`
	Offset int `json:"offset,omitempty" jsonschema:"number of verdicts to skip"`
}

type listVerdictsOutput struct {
	Verdicts []*domain.TriageRecord `json:"verdicts"`
	Count    int                    `json:"count"`
}

type exportOutput struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

// --- Tool handlers ---

func (s *LiteServer) handleTriagePatient(ctx context.Context, _ *sdkmcp.CallToolRequest, input service.SnapshotInput) (*sdkmcp.CallToolResult, triageOutput, error) {
	s.logger.WithField("tool", "triage_patient").Debug("Tool invoked")

	record, err := s.classifier.Triage(ctx, &input)
	if err != nil {
		return nil, triageOutput{}, fmt.Errorf("triage_patient: %w", err)
	}

	return nil, triageOutput{
		VerdictID:   record.ID,
		Level:       record.Level.String(),
		Disposition: record.Disposition,
		Reasons:     record.Reasons,
		EvaluatedAt: record.EvaluatedAt.Format(time.RFC3339),
	}, nil
}

func (s *LiteServer) handleValidateSnapshot(ctx context.Context, _ *sdkmcp.CallToolRequest, input service.SnapshotInput) (*sdkmcp.CallToolResult, validateOutput, error) {
	s.logger.WithField("tool", "validate_snapshot").Debug("Tool invoked")

	if err := s.classifier.ValidateSnapshot(&input); err != nil {
		out := validateOutput{Valid: false, Error: err.Error()}
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			out.Field = validationErr.Field
		}
		// An invalid snapshot is a successful validation run, not a
		// tool failure.
		return nil, out, nil
	}

	return nil, validateOutput{Valid: true}, nil
}

func (s *LiteServer) handleGetVerdict(ctx context.Context, _ *sdkmcp.CallToolRequest, input getVerdictInput) (*sdkmcp.CallToolResult, *domain.TriageRecord, error) {
	s.logger.WithField("tool", "get_verdict").Debug("Tool invoked")

	if input.VerdictID == "" {
		return nil, nil, fmt.Errorf("verdict_id is required")
	}

	record, err := s.classifier.GetVerdict(ctx, input.VerdictID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("verdict %s not found", input.VerdictID)
		}
		return nil, nil, fmt.Errorf("get_verdict: %w", err)
	}

	return nil, record, nil
}

func (s *LiteServer) handleListVerdicts(ctx context.Context, _ *sdkmcp.CallToolRequest, input listVerdictsInput) (*sdkmcp.CallToolResult, listVerdictsOutput, error) {
	s.logger.WithField("tool", "list_verdicts").Debug("Tool invoked")

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	records, err := s.classifier.ListVerdicts(ctx, limit, offset)
	if err != nil {
		return nil, listVerdictsOutput{}, fmt.Errorf("list_verdicts: %w", err)
	}
	if records == nil {
		records = []*domain.TriageRecord{}
	}

	return nil, listVerdictsOutput{
		Verdicts: records,
		Count:    len(records),
	}, nil
}

func (s *LiteServer) handleExportVerdicts(ctx context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, exportOutput, error) {
	s.logger.WithField("tool", "export_verdicts").Debug("Tool invoked")

	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, exportOutput{}, fmt.Errorf("export_verdicts: %w", err)
	}

	path := filepath.Join(s.config.ExportDir(),
		fmt.Sprintf("verdicts-%s.json", time.Now().UTC().Format("20060102-150405")))
	file, err := os.Create(path)
	if err != nil {
		return nil, exportOutput{}, fmt.Errorf("export_verdicts: creating file: %w", err)
	}
	defer file.Close()

	if err := s.store.ExportJSON(ctx, file); err != nil {
		return nil, exportOutput{}, fmt.Errorf("export_verdicts: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path":  path,
		"count": count,
	}).Info("Exported verdict audit log")

	return nil, exportOutput{Path: path, Count: count}, nil
}
