package portfolio

import (
	"context"
	"testing"

	"github.com/cortexplan/lcp/internal/domain"
)

// fakeWorker is a minimal Worker: it either returns result immediately, or
// blocks until ctx is cancelled and reports itself interrupted.
type fakeWorker struct {
	result Result
	block  bool
}

func (w *fakeWorker) Run(ctx context.Context, inbox <-chan Message) Result {
	if w.block {
		<-ctx.Done()
		return Result{WorkerID: w.result.WorkerID, Interrupted: true}
	}
	return w.result
}

func TestPortfolio_Run_FirstSolutionWins(t *testing.T) {
	workers := []Worker{
		&fakeWorker{result: Result{WorkerID: 0, Solved: true}},
		&fakeWorker{result: Result{WorkerID: 1}, block: true},
	}
	p := New(workers, nil)

	got := p.Run(context.Background())
	if !got.Solved {
		t.Fatalf("Run() = %+v, want Solved", got)
	}
	if got.WorkerID != 0 {
		t.Errorf("Run().WorkerID = %d, want 0", got.WorkerID)
	}
}

func TestPortfolio_Run_AllUnsatAggregates(t *testing.T) {
	workers := []Worker{
		&fakeWorker{result: Result{WorkerID: 0, Unsat: true}},
		&fakeWorker{result: Result{WorkerID: 1, Unsat: true}},
	}
	p := New(workers, nil)

	got := p.Run(context.Background())
	if !got.Unsat {
		t.Fatalf("Run() = %+v, want Unsat", got)
	}
	if got.Solved {
		t.Errorf("Run().Solved = true, want false when every worker reports UNSAT")
	}
}

func TestPortfolio_Run_CancelledContextInterrupts(t *testing.T) {
	workers := []Worker{
		&fakeWorker{result: Result{WorkerID: 0}, block: true},
		&fakeWorker{result: Result{WorkerID: 1}, block: true},
	}
	p := New(workers, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := p.Run(ctx)
	if !got.Interrupted {
		t.Fatalf("Run() = %+v, want Interrupted for an already-cancelled context", got)
	}
}

func TestPortfolio_Broadcast_SkipsGivenWorker(t *testing.T) {
	workers := []Worker{&fakeWorker{}, &fakeWorker{}, &fakeWorker{}}
	p := New(workers, nil)

	msg := Message{Kind: MsgLearnedClause, Clause: []domain.Literal{domain.TrueLit(1)}}
	p.Broadcast(msg, 1)

	select {
	case got := <-p.inboxes[0]:
		if got.Kind != MsgLearnedClause {
			t.Errorf("inbox[0] got Kind %v, want MsgLearnedClause", got.Kind)
		}
	default:
		t.Errorf("inbox[0] is empty, want the broadcast message")
	}

	select {
	case got := <-p.inboxes[1]:
		t.Errorf("inbox[1] (skipped) received %+v, want nothing", got)
	default:
	}

	select {
	case <-p.inboxes[2]:
	default:
		t.Errorf("inbox[2] is empty, want the broadcast message")
	}
}

func TestPortfolio_Broadcast_DropsWhenInboxFull(t *testing.T) {
	workers := []Worker{&fakeWorker{}}
	p := New(workers, nil)

	msg := Message{Kind: MsgLearnedClause}
	for i := 0; i < cap(p.inboxes[0])+4; i++ {
		p.Broadcast(msg, -1)
	}

	if len(p.inboxes[0]) != cap(p.inboxes[0]) {
		t.Errorf("inbox[0] len = %d, want it capped at %d (excess broadcasts dropped, not blocked)", len(p.inboxes[0]), cap(p.inboxes[0]))
	}
}
