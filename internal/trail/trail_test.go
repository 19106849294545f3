package trail

import "testing"

type recorder struct {
	undone []int
}

func (r *recorder) Undo(payload any) {
	r.undone = append(r.undone, payload.(int))
}

func TestTrail_RestoreLast_UndoesInReverseOrder(t *testing.T) {
	tr := New()
	r := &recorder{}

	tr.Push(r, 1)
	tr.Push(r, 2)
	tr.Save()
	tr.Push(r, 3)
	tr.Push(r, 4)

	tr.RestoreLast()

	want := []int{4, 3}
	if len(r.undone) != len(want) {
		t.Fatalf("undone = %v, want %v", r.undone, want)
	}
	for i := range want {
		if r.undone[i] != want[i] {
			t.Fatalf("undone = %v, want %v", r.undone, want)
		}
	}
	if tr.CurrentLevel() != 0 {
		t.Errorf("CurrentLevel() = %d, want 0", tr.CurrentLevel())
	}
	if tr.NumEvents() != 2 {
		t.Errorf("NumEvents() = %d, want 2", tr.NumEvents())
	}
}

func TestTrail_Restore_PopsMultipleLevels(t *testing.T) {
	tr := New()
	r := &recorder{}

	tr.Push(r, 1) // level 0: survives Restore(0)
	tr.Save()     // level 1
	tr.Push(r, 2)
	tr.Save() // level 2
	tr.Push(r, 3)

	if got := tr.CurrentLevel(); got != 2 {
		t.Fatalf("CurrentLevel() = %d, want 2", got)
	}

	tr.Restore(0)

	if got := tr.CurrentLevel(); got != 0 {
		t.Errorf("CurrentLevel() = %d, want 0", got)
	}
	if got := tr.NumEvents(); got != 1 {
		t.Errorf("NumEvents() = %d, want 1", got)
	}
	want := []int{3, 2}
	if len(r.undone) != len(want) {
		t.Fatalf("undone = %v, want %v", r.undone, want)
	}
	for i := range want {
		if r.undone[i] != want[i] {
			t.Fatalf("undone = %v, want %v", r.undone, want)
		}
	}
}

func TestTrail_Restore_NoopAboveCurrentLevel(t *testing.T) {
	tr := New()
	tr.Save()

	tr.Restore(5) // restoring to a level deeper than current is a no-op

	if got := tr.CurrentLevel(); got != 1 {
		t.Errorf("CurrentLevel() = %d, want 1", got)
	}
}
