package indexdb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coverdance.app/internal/persistence/save"
	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/catalogs"
	"coverdance.app/internal/sim/clock"
	"coverdance.app/internal/sim/projects"
	"coverdance.app/internal/sim/tuning"
)

func finished(id string, status projects.Status, day, pop int) *projects.Project {
	p := projects.NewAvailable(projects.Template{
		ID:             id,
		Name:           "cover " + id,
		RequiredSkill:  projects.StyleMale,
		TrainingNeeded: 4,
		TrainingCost:   100,
	})
	p.Status = status
	p.Success = status == projects.StatusCompleted
	p.FailedDueToDeadline = status == projects.StatusFailed
	p.CompletedDay = day
	p.TrainingsCompleted = 4
	p.PopularityChange = pop
	return p
}

func TestIndex_RecordsAndQueries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	idx.RecordProject(14, finished("p1", projects.StatusCompleted, 14, 30))
	idx.RecordProject(40, finished("p2", projects.StatusFailed, 40, 0))
	idx.RecordProject(41, finished("p3", projects.StatusCompleted, 41, 20))
	for _, ev := range []protocol.Event{
		{"type": protocol.EventProjectAccepted, "day": 0, "project_id": "p1"},
		{"type": protocol.EventProjectCompleted, "day": 14, "project_id": "p1"},
		{"type": protocol.EventRelationship, "day": 15, "npc_id": "npc_a", "delta": 5},
	} {
		if err := idx.WriteEvent(ev); err != nil {
			t.Fatalf("write event: %v", err)
		}
	}
	idx.RecordSave("/saves/slot.json.zst", save.Document{
		SaveID:   "save-1",
		SaveName: "slot",
		SavedAt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		GameTime: clock.Clock{Month: 1, Day: 11},
		Player:   save.PlayerState{Money: 1234, Popularity: 50},
	})
	if err := idx.UpsertCatalogs(ctx, &catalogs.Catalogs{}, tuning.Defaults()); err != nil {
		t.Fatalf("catalogs: %v", err)
	}

	rows, err := idx.RecentProjects(ctx, 2)
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	if len(rows) != 2 || rows[0].ProjectID != "p3" || rows[1].ProjectID != "p2" {
		t.Fatalf("rows=%+v", rows)
	}
	if !rows[1].FailedDeadline || rows[1].Success || rows[0].Style != "M_skill" {
		t.Fatalf("row fields=%+v", rows)
	}

	career, err := idx.Career(ctx)
	if err != nil {
		t.Fatalf("career: %v", err)
	}
	if career.Completed != 2 || career.Failed != 1 || career.PopularityGain != 50 {
		t.Fatalf("career=%+v", career)
	}

	counts, err := idx.EventCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[protocol.EventProjectAccepted] != 1 || counts[protocol.EventRelationship] != 1 {
		t.Fatalf("counts=%v", counts)
	}
	evs, err := idx.EventsFor(ctx, "p1")
	if err != nil {
		t.Fatalf("events for: %v", err)
	}
	if len(evs) != 2 || !strings.Contains(evs[1], protocol.EventProjectCompleted) {
		t.Fatalf("events=%v", evs)
	}

	saves, err := idx.Saves(ctx)
	if err != nil {
		t.Fatalf("saves: %v", err)
	}
	if len(saves) != 1 || saves[0].Day != 41 || saves[0].Money != 1234 {
		t.Fatalf("saves=%+v", saves)
	}
	if d, err := idx.CatalogDigest(ctx, "tuning"); err != nil || len(d) != 64 {
		t.Fatalf("tuning digest=%q err=%v", d, err)
	}

	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening reapplies nothing and keeps the data.
	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	idx.RecordProject(50, finished("p1", projects.StatusCompleted, 50, 30))
	all, err := idx.RecentProjects(ctx, 0)
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	if len(all) != 3 || all[0].ProjectID != "p1" || all[0].CompletedDay != 50 {
		t.Fatalf("after reopen=%+v", all)
	}
}

func TestIndex_QueueDropStats(t *testing.T) {
	s := &Index{ch: make(chan req, 1)}
	s.ch <- req{kind: reqEvent}

	_ = s.WriteEvent(protocol.Event{"type": protocol.EventOffersRefreshed, "day": 1})
	s.RecordProject(1, finished("p1", projects.StatusCompleted, 1, 0))
	s.RecordSave("/tmp/x", save.Document{SaveID: "s"})
	s.RecordSave("/tmp/y", save.Document{})

	st := s.Stats()
	if st.DropEventTotal != 1 || st.DropProjectTotal != 1 || st.DropSaveTotal != 1 {
		t.Fatalf("stats=%+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestIndex_ClosedIsNoop(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := idx.WriteEvent(protocol.Event{"type": "X"}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	idx.RecordProject(1, finished("p1", projects.StatusCompleted, 1, 0))
	if st := idx.Stats(); st.DropProjectTotal != 0 {
		t.Fatalf("closed index counted a drop: %+v", st)
	}
}

func TestDialectQueries(t *testing.T) {
	pg := sqlDialect(DialectPostgres)
	got := pg.upsertQuery("meta", "key", []string{"key", "value"})
	want := "INSERT INTO meta (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = excluded.value"
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
	lite := sqlDialect(DialectSQLite)
	if q := lite.insertQuery("events", []string{"day", "type"}); q != "INSERT INTO events (day, type) VALUES (?, ?)" {
		t.Fatalf("sqlite insert=%s", q)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DIALECT", "")
	t.Setenv("DB_SQLITE_PATH", "")
	t.Setenv("DB_POSTGRES_DSN", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/cd")
	c := ConfigFromEnv("/tmp/default.sqlite")
	if c.Dialect != DialectSQLite || c.SQLitePath != "/tmp/default.sqlite" || c.PostgresDSN != "postgres://localhost/cd" {
		t.Fatalf("config=%+v", c)
	}

	t.Setenv("DB_DIALECT", " Postgres ")
	t.Setenv("DB_POSTGRES_DSN", "postgres://db/other")
	c = ConfigFromEnv("")
	if c.Dialect != DialectPostgres || c.PostgresDSN != "postgres://db/other" {
		t.Fatalf("config=%+v", c)
	}
}

func TestOpen_RejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []Config{
		{Dialect: "mysql"},
		{Dialect: DialectPostgres},
		{Dialect: DialectSQLite},
	} {
		if _, err := Open(ctx, cfg, Options{}); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}
