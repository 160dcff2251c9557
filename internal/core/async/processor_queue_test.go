package async

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/core"
	"github.com/joseph-ayodele/cte-extractor/internal/core/extract"
	"github.com/joseph-ayodele/cte-extractor/internal/core/fields"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
)

type mapLoader map[string][]byte

func (m mapLoader) LoadPath(_ context.Context, path string) (core.Source, error) {
	data, ok := m[path]
	if !ok {
		return core.Source{}, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	return core.NewSource(path, data), nil
}

type memStore struct {
	mu    sync.Mutex
	saved map[uuid.UUID][]entity.Outcome
}

func (m *memStore) CreateRun(context.Context, string) (uuid.UUID, error) { return uuid.New(), nil }

func (m *memStore) SaveOutcome(_ context.Context, runID uuid.UUID, o entity.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[uuid.UUID][]entity.Outcome{}
	}
	m.saved[runID] = append(m.saved[runID], o)
	return nil
}

func (m *memStore) FinishRun(context.Context, uuid.UUID, entity.RunStats, constants.RunStatus) error {
	return nil
}

func doc(n int) []byte {
	return []byte(fmt.Sprintf(`<cteProc xmlns="http://www.portalfiscal.inf.br/cte"><CTe><infCte><ide><nCT>%d</nCT></ide></infCte></CTe></cteProc>`, n))
}

func newQueue(t *testing.T, loader SourceLoader, opts ...Option) *ProcessorQueue {
	t.Helper()
	table := fields.CTE()
	ex, err := extract.NewExtractor(table, nil)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	sel, err := table.Select([]string{"nCT"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	return NewProcessorQueue(core.NewProcessor(ex, nil), loader, sel, nil, opts...)
}

func TestProcessorQueue_ProcessesInEnqueueOrder(t *testing.T) {
	loader := mapLoader{}
	for i := 0; i < 20; i++ {
		loader[fmt.Sprintf("%02d.xml", i)] = doc(i)
	}
	store := &memStore{}
	runID := uuid.New()
	q := newQueue(t, loader, WithWorkers(4), WithQueueSize(2), WithRun(store, runID))

	for i := 0; i < 20; i++ {
		if err := q.Enqueue(context.Background(), Job{Path: fmt.Sprintf("%02d.xml", i)}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.Enqueue(context.Background(), Job{Path: "missing.xml"}); err != nil {
		t.Fatalf("enqueue missing: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	outcomes := q.Outcomes()
	if len(outcomes) != 21 {
		t.Fatalf("expected 21 outcomes, got %d", len(outcomes))
	}
	for i := 0; i < 20; i++ {
		if got := outcomes[i].Record["nCT"]; got != fmt.Sprint(i) {
			t.Errorf("outcome %d: expected nCT %d, got %q", i, i, got)
		}
	}
	if !outcomes[20].Failed() {
		t.Error("expected the missing file to fail")
	}

	stats := q.Stats()
	if stats.Documents != 21 || stats.Succeeded != 20 || stats.Failed != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if len(store.saved[runID]) != 21 {
		t.Errorf("expected 21 saved outcomes, got %d", len(store.saved[runID]))
	}
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	q := newQueue(t, mapLoader{})
	q.Shutdown(context.Background())
	if err := q.Enqueue(context.Background(), Job{Path: "a.xml"}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
	q.Shutdown(context.Background())
}

// gateLoader blocks every load until release is closed.
type gateLoader struct {
	started chan string
	release chan struct{}
}

func (g gateLoader) LoadPath(ctx context.Context, path string) (core.Source, error) {
	g.started <- path
	select {
	case <-g.release:
	case <-ctx.Done():
		return core.Source{}, ctx.Err()
	}
	return core.NewSource(path, doc(1)), nil
}

func TestProcessorQueue_ShutdownReleasesBlockedEnqueue(t *testing.T) {
	loader := gateLoader{started: make(chan string, 4), release: make(chan struct{})}
	q := newQueue(t, loader, WithWorkers(1), WithQueueSize(1))

	if err := q.Enqueue(context.Background(), Job{Path: "a.xml"}); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	select {
	case <-loader.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up a.xml")
	}
	// The worker is busy and b.xml fills the buffer, so c.xml blocks.
	if err := q.Enqueue(context.Background(), Job{Path: "b.xml"}); err != nil {
		t.Fatalf("enqueue b: %v", err)
	}
	blocked := make(chan error, 1)
	go func() { blocked <- q.Enqueue(context.Background(), Job{Path: "c.xml"}) }()

	shutdown := make(chan struct{})
	go func() {
		defer close(shutdown)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		q.Shutdown(ctx)
	}()

	select {
	case err := <-blocked:
		if !errors.Is(err, ErrQueueClosed) {
			t.Fatalf("expected ErrQueueClosed for the blocked enqueue, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked enqueue was not released by shutdown")
	}

	close(loader.release)
	select {
	case <-shutdown:
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	outcomes := q.Outcomes()
	if len(outcomes) != 2 || outcomes[0].Name != "a.xml" || outcomes[1].Name != "b.xml" {
		t.Errorf("expected a.xml and b.xml to be processed, got %+v", outcomes)
	}
}
