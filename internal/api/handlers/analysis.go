package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/regulaworks/corpagent/internal/analyze"
	"github.com/regulaworks/corpagent/internal/api"
	"github.com/regulaworks/corpagent/internal/domain"
)

// AnalysisRunner runs one batch through the pipeline.
type AnalysisRunner interface {
	Run(ctx context.Context, inputs []analyze.InputDocument) (*analyze.Result, error)
}

type AnalysisHandler struct {
	runner AnalysisRunner
}

func NewAnalysisHandler(runner AnalysisRunner) *AnalysisHandler {
	return &AnalysisHandler{runner: runner}
}

type AnalysisDocumentRequest struct {
	Filename     string `json:"filename"`
	Content      string `json:"content"`
	DeclaredType string `json:"declared_type,omitempty"`
}

type AnalysisRequest struct {
	Documents []AnalysisDocumentRequest `json:"documents"`
}

type AnnotatedDocumentResponse struct {
	Filename  string `json:"filename"`
	Type      string `json:"type,omitempty"`
	Annotated string `json:"annotated"`
}

type AnalysisResponse struct {
	BatchID   string                      `json:"batch_id"`
	Report    *domain.AnalysisReport      `json:"report"`
	Annotated []AnnotatedDocumentResponse `json:"annotated_documents"`
}

// Create runs a batch analysis and returns the report plus annotated copies.
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		api.Error(w, http.StatusBadRequest, "documents are required")
		return
	}
	for _, d := range req.Documents {
		if d.Filename == "" {
			api.Error(w, http.StatusBadRequest, "each document requires a filename")
			return
		}
	}

	inputs := make([]analyze.InputDocument, 0, len(req.Documents))
	for _, d := range req.Documents {
		inputs = append(inputs, analyze.InputDocument{
			Filename:     d.Filename,
			Content:      []byte(d.Content),
			DeclaredType: d.DeclaredType,
		})
	}

	result, err := h.runner.Run(r.Context(), inputs)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	annotated := make([]AnnotatedDocumentResponse, 0, len(result.Documents))
	for _, d := range result.Documents {
		annotated = append(annotated, AnnotatedDocumentResponse{
			Filename:  d.Document.Filename,
			Type:      d.Type,
			Annotated: d.Annotated,
		})
	}

	api.Success(w, http.StatusOK, AnalysisResponse{
		BatchID:   result.BatchID,
		Report:    result.Report,
		Annotated: annotated,
	})
}
