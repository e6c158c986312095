package postgres

import (
	"strings"
	"testing"
)

func TestCASQueriesGuardVersionAndArchive(t *testing.T) {
	for _, query := range []string{casTransitionQuery, casArchiveQuery} {
		if !strings.Contains(query, "version = $") {
			t.Fatalf("expected version predicate in CAS query:\n%s", query)
		}
		if !strings.Contains(query, "archived = FALSE") {
			t.Fatalf("expected archived predicate in CAS query:\n%s", query)
		}
		if !strings.Contains(query, "version = version + 1") {
			t.Fatalf("expected version bump in CAS query:\n%s", query)
		}
		if !strings.Contains(query, "RETURNING version") {
			t.Fatalf("expected RETURNING version in CAS query:\n%s", query)
		}
	}
}

func TestTrailQueriesAreAppendOnly(t *testing.T) {
	if !strings.Contains(insertTransitionRecordQuery, "INSERT INTO transition_records") {
		t.Fatalf("expected insert into transition_records")
	}
	if !strings.Contains(selectHistoryQuery, "ORDER BY record_id ASC") {
		t.Fatalf("expected chronological ordering in history query")
	}
	for _, query := range []string{insertTransitionRecordQuery, selectHistoryQuery} {
		if strings.Contains(query, "UPDATE") || strings.Contains(query, "DELETE") {
			t.Fatalf("trail query must not mutate existing rows:\n%s", query)
		}
	}
}
