package engagement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/reclamacidade/internal/identity"
)

func TestRecomputeMonthlyRankingDenseTies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	top := f.userWithID(uuid.MustParse("00000000-0000-0000-0000-00000000000a"), "cuiaba", identity.RoleCitizen)
	tiedHigh := f.userWithID(uuid.MustParse("00000000-0000-0000-0000-00000000000c"), "cuiaba", identity.RoleCitizen)
	tiedLow := f.userWithID(uuid.MustParse("00000000-0000-0000-0000-00000000000b"), "cuiaba", identity.RoleCitizen)
	outsider := f.user("várzea grande", identity.RoleCitizen)

	grant := func(at time.Time, id uuid.UUID, delta int) {
		t.Helper()
		f.now = at
		if _, err := f.svc.AddPoints(ctx, id, delta, ActionManualAdjustment); err != nil {
			t.Fatalf("add points: %v", err)
		}
	}

	june := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	grant(time.Date(2024, 5, 31, 23, 59, 0, 0, time.UTC), top.ID, 500)
	grant(june, top.ID, 50)
	grant(june, tiedHigh.ID, 40)
	grant(june, tiedHigh.ID, -10)
	grant(june, tiedLow.ID, 30)
	grant(june, outsider.ID, 100)
	grant(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), tiedLow.ID, 70)

	got, err := f.svc.RecomputeMonthlyRanking(ctx, " Cuiaba ", 6, 2024)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}

	want := []struct {
		id       uuid.UUID
		points   int
		position int
	}{
		{top.ID, 50, 1},
		{tiedLow.ID, 30, 2},
		{tiedHigh.ID, 30, 2},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), got)
	}
	for i, w := range want {
		if got[i].UserID != w.id || got[i].Points != w.points || got[i].Position != w.position {
			t.Fatalf("entry %d: expected %+v got %+v", i, w, got[i])
		}
		if got[i].City != "cuiaba" || got[i].Month != 6 || got[i].Year != 2024 {
			t.Fatalf("entry %d has wrong period %+v", i, got[i])
		}
	}

	again, err := f.svc.RecomputeMonthlyRanking(ctx, "cuiaba", 6, 2024)
	if err != nil {
		t.Fatalf("recompute again: %v", err)
	}
	if len(again) != 3 || len(f.store.snapshot().rankings) != 3 {
		t.Fatalf("recompute must upsert, got %d rows", len(f.store.snapshot().rankings))
	}
}

func TestRecomputeKeepsStaleRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idle := f.user("cuiaba", identity.RoleCitizen)
	active := f.user("cuiaba", identity.RoleCitizen)

	f.store.state.rankings[rankKey{"cuiaba", idle.ID, 6, 2024}] = RankingEntry{
		City: "cuiaba", UserID: idle.ID, Month: 6, Year: 2024, Points: 80, Position: 1,
	}
	if _, err := f.svc.AddPoints(ctx, active.ID, 10, ActionComplaintCreated); err != nil {
		t.Fatalf("add points: %v", err)
	}

	if _, err := f.svc.RecomputeMonthlyRanking(ctx, "cuiaba", 6, 2024); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	st := f.store.snapshot()
	stale, ok := st.rankings[rankKey{"cuiaba", idle.ID, 6, 2024}]
	if !ok || stale.Points != 80 || stale.Position != 1 {
		t.Fatalf("stale ranking row must be left untouched, got %+v", stale)
	}
	if fresh := st.rankings[rankKey{"cuiaba", active.ID, 6, 2024}]; fresh.Position != 1 || fresh.Points != 10 {
		t.Fatalf("unexpected fresh row %+v", fresh)
	}
}

func TestRecomputeUsesConfiguredTimezone(t *testing.T) {
	f := newFixture(t)
	loc := time.FixedZone("AMT", -4*60*60)
	f.svc.loc = loc
	u := f.user("cuiaba", identity.RoleCitizen)

	// 02:00 UTC em 1º de julho ainda é 30 de junho no fuso local.
	f.now = time.Date(2024, 7, 1, 2, 0, 0, 0, time.UTC)
	if _, err := f.svc.AddPoints(context.Background(), u.ID, 10, ActionComplaintCreated); err != nil {
		t.Fatalf("add points: %v", err)
	}

	june, err := f.svc.RecomputeMonthlyRanking(context.Background(), "cuiaba", 6, 2024)
	if err != nil || len(june) != 1 {
		t.Fatalf("expected entry in june, got %+v %v", june, err)
	}
	july, err := f.svc.RecomputeMonthlyRanking(context.Background(), "cuiaba", 7, 2024)
	if err != nil || len(july) != 0 {
		t.Fatalf("expected empty july, got %+v %v", july, err)
	}
}

func TestRecomputeRejectsInvalidPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		city        string
		month, year int
	}{
		{"cuiaba", 0, 2024},
		{"cuiaba", 13, 2024},
		{"cuiaba", 6, 1999},
		{"  ", 6, 2024},
	}
	for _, tc := range cases {
		if _, err := f.svc.RecomputeMonthlyRanking(ctx, tc.city, tc.month, tc.year); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", tc, err)
		}
	}
}

func TestMonthlyRankingCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user("cuiaba", identity.RoleCitizen)
	b := f.user("cuiaba", identity.RoleCitizen)

	if _, err := f.svc.AddPoints(ctx, a.ID, 10, ActionComplaintCreated); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.svc.RecomputeMonthlyRanking(ctx, "cuiaba", 6, 2024); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	first, err := f.svc.MonthlyRanking(ctx, "Cuiaba", 6, 2024, 10)
	if err != nil || len(first) != 1 {
		t.Fatalf("expected one entry, got %+v %v", first, err)
	}
	if _, ok := f.cache.entries[cacheKey("cuiaba", 6, 2024)]; !ok {
		t.Fatalf("ranking read must populate cache")
	}

	// sem recálculo a leitura não enxerga novos pontos
	if _, err := f.svc.AddPoints(ctx, b.ID, 20, ActionComplaintResolved); err != nil {
		t.Fatalf("add: %v", err)
	}
	stale, _ := f.svc.MonthlyRanking(ctx, "cuiaba", 6, 2024, 10)
	if len(stale) != 1 {
		t.Fatalf("ranking must only change after recompute, got %+v", stale)
	}

	if _, err := f.svc.RecomputeMonthlyRanking(ctx, "cuiaba", 6, 2024); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(f.cache.invalidated) != 2 {
		t.Fatalf("each recompute must invalidate cache, got %v", f.cache.invalidated)
	}
	fresh, _ := f.svc.MonthlyRanking(ctx, "cuiaba", 6, 2024, 1)
	if len(fresh) != 1 || fresh[0].UserID != b.ID {
		t.Fatalf("expected top entry for b limited to 1, got %+v", fresh)
	}

	pos, err := f.svc.UserRanking(ctx, a.ID, 6, 2024)
	if err != nil || pos.Position != 2 {
		t.Fatalf("expected a at position 2, got %+v %v", pos, err)
	}
	if _, err := f.svc.UserRanking(ctx, a.ID, 5, 2024); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty month, got %v", err)
	}
}
