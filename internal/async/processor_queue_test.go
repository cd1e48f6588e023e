package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
)

type recorder struct {
	mu   sync.Mutex
	seen []uuid.UUID
	fail bool
}

func (r *recorder) ProcessJob(_ context.Context, id uuid.UUID) (*labreport.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, id)
	if r.fail {
		return nil, errors.New("boom")
	}
	return &labreport.Result{}, nil
}

func TestProcessorQueueDrainsOnShutdown(t *testing.T) {
	rec := &recorder{}
	q := NewProcessorQueue(rec, nil, WithWorkers(3), WithQueueSize(2), WithProcessTimeout(time.Second))

	var want []uuid.UUID
	for i := 0; i < 10; i++ {
		id := uuid.New()
		want = append(want, id)
		if err := q.Enqueue(context.Background(), Job{JobID: id}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	sortIDs := cmpopts.SortSlices(func(a, b uuid.UUID) bool { return a.String() < b.String() })
	if diff := cmp.Diff(want, rec.seen, sortIDs); diff != "" {
		t.Errorf("processed jobs mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessorQueueFailuresDoNotStopWorkers(t *testing.T) {
	rec := &recorder{fail: true}
	q := NewProcessorQueue(rec, nil, WithWorkers(1))
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(context.Background(), Job{JobID: uuid.New(), TraceID: "t"}); err != nil {
			t.Fatal(err)
		}
	}
	q.Shutdown(context.Background())
	if len(rec.seen) != 3 {
		t.Errorf("processed %d jobs, want 3", len(rec.seen))
	}
}

func TestProcessorQueueRejectsAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&recorder{}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	if err := q.Enqueue(context.Background(), Job{JobID: uuid.New()}); !errors.Is(err, ErrClosed) {
		t.Errorf("Enqueue() error = %v, want ErrClosed", err)
	}
}

// gated blocks every job until release is closed.
type gated struct {
	started chan struct{}
	release chan struct{}
}

func (g *gated) ProcessJob(_ context.Context, _ uuid.UUID) (*labreport.Result, error) {
	g.started <- struct{}{}
	<-g.release
	return &labreport.Result{}, nil
}

func TestProcessorQueueShutdownWakesBlockedEnqueue(t *testing.T) {
	g := &gated{started: make(chan struct{}, 4), release: make(chan struct{})}
	q := NewProcessorQueue(g, nil, WithWorkers(1), WithQueueSize(1))
	ctx := context.Background()

	if err := q.Enqueue(ctx, Job{JobID: uuid.New()}); err != nil {
		t.Fatalf("Enqueue(1) error = %v", err)
	}
	<-g.started
	if err := q.Enqueue(ctx, Job{JobID: uuid.New()}); err != nil {
		t.Fatalf("Enqueue(2) error = %v", err)
	}

	blocked := make(chan error, 1)
	go func() { blocked <- q.Enqueue(ctx, Job{JobID: uuid.New()}) }()

	// A second enqueuer with a short deadline must not wait behind the first.
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(short, Job{JobID: uuid.New()}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Enqueue(short) error = %v, want DeadlineExceeded", err)
	}

	shut := make(chan struct{})
	go func() { defer close(shut); q.Shutdown(ctx) }()

	select {
	case err := <-blocked:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("blocked Enqueue() error = %v, want ErrClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("blocked Enqueue() did not return after Shutdown")
	}

	close(g.release)
	select {
	case <-shut:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown() did not finish")
	}
}
