package out_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	executionout "ghnb/internal/modules/execution/adapter/out"
	"ghnb/internal/modules/execution/domain"
)

func TestSQLiteRunStoreRecordsAndListsNewestFirst(t *testing.T) {
	t.Parallel()
	store, err := executionout.NewSQLiteRunStore(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	base := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	records := []domain.RunRecord{
		{ID: "r1", RunID: "run-1", Notebook: "/nb/a.github-graphql-nb", CellIndex: 0, Success: true, StartedAt: base, EndedAt: base.Add(time.Second), MIME: domain.MIMEJSON, Output: []byte(`{"a":1}`)},
		{ID: "r2", RunID: "run-1", Notebook: "/nb/a.github-graphql-nb", CellIndex: 2, Success: false, StartedAt: base.Add(2 * time.Second), EndedAt: base.Add(3 * time.Second), MIME: domain.MIMEJSON, Output: []byte(`{"message":"x"}`)},
		{ID: "r3", RunID: "run-2", Notebook: "/nb/b.github-graphql-nb", CellIndex: 0, Success: true, StartedAt: base.Add(4 * time.Second), EndedAt: base.Add(5 * time.Second), MIME: domain.MIMEJSON},
	}
	for _, record := range records {
		if err := store.Record(ctx, record); err != nil {
			t.Fatalf("record %s: %v", record.ID, err)
		}
	}

	got, err := store.Recent(ctx, "/nb/a.github-graphql-nb", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r2" || got[1].ID != "r1" {
		t.Fatalf("unexpected records: %+v", got)
	}
	if got[0].Success || !got[1].Success || string(got[1].Output) != `{"a":1}` {
		t.Fatalf("unexpected record contents: %+v", got)
	}
	if !got[1].StartedAt.Equal(base) || !got[1].EndedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("timestamps did not round-trip: %+v", got[1])
	}

	all, err := store.Recent(ctx, "", 2)
	if err != nil {
		t.Fatalf("recent all: %v", err)
	}
	if len(all) != 2 || all[0].ID != "r3" {
		t.Fatalf("unexpected limited records: %+v", all)
	}
}
