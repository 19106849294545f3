package brancher

import "testing"

func TestRestartPolicy_ShouldRestart_AfterBudgetExceeded(t *testing.T) {
	r := NewRestartPolicy(3, 2)

	for i := 0; i < 2; i++ {
		r.OnConflict()
		if r.ShouldRestart() {
			t.Fatalf("ShouldRestart() = true after %d conflicts, want false (budget 3)", i+1)
		}
	}
	r.OnConflict()
	if !r.ShouldRestart() {
		t.Fatalf("ShouldRestart() = false after 3 conflicts, want true (budget 3)")
	}
}

func TestRestartPolicy_Reset_GrowsBudgetAndClearsCounter(t *testing.T) {
	r := NewRestartPolicy(3, 2)
	r.OnConflict()
	r.OnConflict()
	r.OnConflict()
	r.Reset()

	if r.ShouldRestart() {
		t.Fatalf("ShouldRestart() = true right after Reset, want false")
	}
	for i := 0; i < 5; i++ {
		r.OnConflict()
	}
	if r.ShouldRestart() {
		t.Fatalf("ShouldRestart() = true after 5 conflicts, want false (budget grew to 6)")
	}
	r.OnConflict()
	if !r.ShouldRestart() {
		t.Fatalf("ShouldRestart() = false after 6 conflicts, want true (budget grew to 6)")
	}
}

func TestNewLubyLikeRestartPolicy_DefaultBudget(t *testing.T) {
	r := NewLubyLikeRestartPolicy()
	for i := 0; i < 99; i++ {
		r.OnConflict()
	}
	if r.ShouldRestart() {
		t.Fatalf("ShouldRestart() = true after 99 conflicts, want false (default budget 100)")
	}
	r.OnConflict()
	if !r.ShouldRestart() {
		t.Fatalf("ShouldRestart() = false after 100 conflicts, want true (default budget 100)")
	}
}
