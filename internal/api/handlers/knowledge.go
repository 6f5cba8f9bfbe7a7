package handlers

import (
	"context"
	"net/http"

	"github.com/regulaworks/corpagent/internal/api"
	"github.com/regulaworks/corpagent/internal/domain"
)

// KnowledgeService is the subset of the knowledge manager the HTTP layer
// needs.
type KnowledgeService interface {
	Reindex(ctx context.Context) error
	Sources() []domain.KnowledgeSource
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type SourceResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	SourceType string `json:"source_type"`
	Chunks     int    `json:"chunks"`
	IndexedAt  string `json:"indexed_at"`
}

func sourceToResponse(s domain.KnowledgeSource) SourceResponse {
	return SourceResponse{
		ID:         s.ID,
		Title:      s.Title,
		SourceType: string(s.SourceType),
		Chunks:     len(s.Chunks),
		IndexedAt:  s.IndexedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// Reindex rebuilds the knowledge index from the configured source
// directory. The rebuild is synchronous; the old index keeps serving
// retrieval until the swap.
func (h *KnowledgeHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reindex(r.Context()); err != nil {
		api.HandleError(w, err)
		return
	}

	sources := h.svc.Sources()
	api.Success(w, http.StatusOK, map[string]interface{}{
		"sources": len(sources),
	})
}

// ListSources returns the sources in the current index snapshot.
func (h *KnowledgeHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources := h.svc.Sources()
	out := make([]SourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, sourceToResponse(s))
	}
	api.Success(w, http.StatusOK, out)
}
