package knowledge

import (
	"context"
	"fmt"
	"log"

	"github.com/regulaworks/corpagent/internal/domain"
)

// Store persists indexed sources. It is optional; without one the index
// lives in memory only.
type Store interface {
	ReplaceSources(ctx context.Context, sources []domain.KnowledgeSource) error
	LoadSources(ctx context.Context) ([]domain.KnowledgeSource, error)
}

// Manager ties the knowledge directory, the in-memory index and an optional
// persistent store together. Reindex is what the HTTP endpoint, the CLI
// command and the directory watcher all call.
type Manager struct {
	dir   string
	index *Index
	store Store
}

// NewManager creates a Manager over the given source directory.
func NewManager(dir string, index *Index, store Store) *Manager {
	return &Manager{dir: dir, index: index, store: store}
}

// Index exposes the underlying index for retrieval.
func (m *Manager) Index() *Index {
	return m.index
}

// Sources lists the currently indexed sources.
func (m *Manager) Sources() []domain.KnowledgeSource {
	return m.index.Sources()
}

// Reindex loads the source directory, rebuilds the index and, when a store
// is configured, persists the new snapshot. The index swap is atomic;
// queries keep hitting the old snapshot until the rebuild finishes.
func (m *Manager) Reindex(ctx context.Context) error {
	inputs, err := LoadDir(m.dir)
	if err != nil {
		return err
	}
	if err := m.index.Reindex(ctx, inputs); err != nil {
		return err
	}
	log.Printf("knowledge index rebuilt: %d source(s), %d chunk(s)", len(inputs), m.index.Len())

	if m.store != nil {
		if err := m.store.ReplaceSources(ctx, m.index.Sources()); err != nil {
			return fmt.Errorf("persist knowledge snapshot: %w", err)
		}
	}
	return nil
}

// Restore loads the last persisted snapshot into the index without calling
// the embedding backend. Used on daemon start so retrieval works before the
// first reindex.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	sources, err := m.store.LoadSources(ctx)
	if err != nil {
		return fmt.Errorf("restore knowledge snapshot: %w", err)
	}
	if len(sources) == 0 {
		return nil
	}
	m.index.Replace(sources)
	log.Printf("knowledge index restored: %d source(s), %d chunk(s)", len(sources), m.index.Len())
	return nil
}
