package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/me/webextools/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRun(id string) *model.Run {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Run{
		ID:        id,
		Command:   "disable-users",
		File:      "users.csv",
		DryRun:    false,
		Succeeded: 2,
		Failed:    0,
		Skipped:   1,
		CreatedAt: now,
	}
}

// --- Migration tests ---

func TestMigrate_Idempotent(t *testing.T) {
	st := testStore(t)
	// Migrate a second time — should not error.
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

// --- Run CRUD tests ---

func TestCreateAndGetRun(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	run := sampleRun("run_test-1")

	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("got nil run")
	}
	if got.ID != run.ID {
		t.Errorf("id = %q, want %q", got.ID, run.ID)
	}
	if got.Command != "disable-users" {
		t.Errorf("command = %q, want %q", got.Command, "disable-users")
	}
	if got.File != "users.csv" {
		t.Errorf("file = %q, want %q", got.File, "users.csv")
	}
	if got.Succeeded != 2 || got.Failed != 0 || got.Skipped != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/0/1", got.Succeeded, got.Failed, got.Skipped)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, run.CreatedAt)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	st := testStore(t)
	got, err := st.GetRun(context.Background(), "run_missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestCreateRun_DryRunRoundTrip(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	run := sampleRun("run_test-dry")
	run.DryRun = true

	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.DryRun {
		t.Error("DryRun = false, want true")
	}
}

func TestListRuns_OrderAndTotal(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		run := sampleRun(fmt.Sprintf("run_test-%d", i))
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := st.CreateRun(ctx, run); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	runs, total, err := st.ListRuns(ctx, model.ListOptions{Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(runs) != 3 {
		t.Fatalf("len = %d, want 3", len(runs))
	}
	// Newest first.
	if runs[0].ID != "run_test-4" {
		t.Errorf("first id = %q, want run_test-4", runs[0].ID)
	}
	if runs[2].ID != "run_test-2" {
		t.Errorf("third id = %q, want run_test-2", runs[2].ID)
	}
}

func TestListRuns_Offset(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 4; i++ {
		run := sampleRun(fmt.Sprintf("run_test-%d", i))
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := st.CreateRun(ctx, run); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	runs, _, err := st.ListRuns(ctx, model.ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2", len(runs))
	}
	if runs[0].ID != "run_test-1" {
		t.Errorf("first id = %q, want run_test-1", runs[0].ID)
	}
}

// --- Outcome tests ---

func TestAddAndListOutcomes(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	run := sampleRun("run_test-out")
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	outcomes := []*model.RunOutcome{
		{RunID: run.ID, PersonID: "p1", Email: "alice@example.com", DisplayName: "Alice", Status: model.OutcomeSuccess},
		{RunID: run.ID, PersonID: "p2", Email: "bob@example.com", DisplayName: "Bob", Status: model.OutcomeSkipped, Reason: "already inactive"},
		{RunID: run.ID, Email: "carol@example.com", Status: model.OutcomeSkipped, Reason: "not found"},
	}
	if err := st.AddOutcomes(ctx, outcomes); err != nil {
		t.Fatalf("add outcomes: %v", err)
	}

	got, err := st.ListOutcomesByRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("list outcomes: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Insertion order preserved.
	if got[0].Email != "alice@example.com" || got[0].Status != model.OutcomeSuccess {
		t.Errorf("first outcome = %+v", got[0])
	}
	if got[1].Reason != "already inactive" {
		t.Errorf("second reason = %q, want %q", got[1].Reason, "already inactive")
	}
	if got[2].PersonID != "" {
		t.Errorf("third person id = %q, want empty", got[2].PersonID)
	}
}

func TestAddOutcomes_Empty(t *testing.T) {
	st := testStore(t)
	if err := st.AddOutcomes(context.Background(), nil); err != nil {
		t.Fatalf("add outcomes: %v", err)
	}
}

func TestAddOutcomes_ForeignKeyEnforced(t *testing.T) {
	st := testStore(t)
	outcomes := []*model.RunOutcome{
		{RunID: "run_missing", Email: "x@example.com", Status: model.OutcomeFailed},
	}
	if err := st.AddOutcomes(context.Background(), outcomes); err == nil {
		t.Error("expected foreign key error, got nil")
	}
}

func TestListOutcomesByRun_Empty(t *testing.T) {
	st := testStore(t)
	got, err := st.ListOutcomesByRun(context.Background(), "run_none")
	if err != nil {
		t.Fatalf("list outcomes: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}
