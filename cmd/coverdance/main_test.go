package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"coverdance.app/internal/persistence/save"
	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/session"
)

type cli struct {
	t       *testing.T
	saveDir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("DB_DIALECT", "")
	t.Setenv("DB_SQLITE_PATH", "")
	t.Setenv("DB_POSTGRES_DSN", "")
	t.Setenv("DATABASE_URL", "")
	return &cli{t: t, saveDir: t.TempDir()}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{
		"--config", filepath.Join("..", "..", "configs"),
		"--save-dir", c.saveDir,
		"--log-level", "error",
	}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func (c *cli) doc() save.Document {
	c.t.Helper()
	doc, err := save.Read(filepath.Join(c.saveDir, "career.json.zst"))
	if err != nil {
		c.t.Fatalf("read save: %v", err)
	}
	return doc
}

func TestNewAdvanceAndReload(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("new", "--seed", "5", "--name", "Tester")
	if !strings.Contains(out, "New career") {
		t.Fatalf("new output=%q", out)
	}
	doc := c.doc()
	if doc.Seed != 5 || doc.Player.Name != "Tester" || len(doc.Player.AvailableProjects) != 20 {
		t.Fatalf("fresh save: seed=%d name=%q offers=%d", doc.Seed, doc.Player.Name, len(doc.Player.AvailableProjects))
	}

	c.mustRun("advance", "3")
	if d := c.doc().GameTime.AbsoluteDay(); d != 3 {
		t.Fatalf("day=%d", d)
	}
	if out := c.mustRun("status"); !strings.Contains(out, "Tester") || !strings.Contains(out, "day 4") {
		t.Fatalf("status=%q", out)
	}
	if d := c.doc().GameTime.AbsoluteDay(); d != 3 {
		t.Fatalf("status must not advance the game: day=%d", d)
	}

	if out := c.mustRun("journal", "--type", protocol.EventOffersRefreshed); !strings.Contains(out, protocol.EventOffersRefreshed) {
		t.Fatalf("journal=%q", out)
	}
	out = c.mustRun("index", "saves")
	if n := strings.Count(out, "career"); n != 2 {
		t.Fatalf("indexed saves=%d\n%s", n, out)
	}
}

func TestNewRefusesExistingSlot(t *testing.T) {
	c := newCLI(t)
	c.mustRun("new", "--seed", "1")
	if _, err := c.run("new", "--seed", "2"); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("err=%v", err)
	}
	c.mustRun("new", "--seed", "2", "--force")
	if c.doc().Seed != 2 {
		t.Fatalf("slot not overwritten")
	}
}

func TestRefusedCommandReportsReason(t *testing.T) {
	c := newCLI(t)
	c.mustRun("new", "--seed", "1")
	_, err := c.run("accept", "no_such_project")
	if err == nil || !strings.Contains(err.Error(), protocol.ErrInvalidTarget) {
		t.Fatalf("err=%v", err)
	}
	out := c.mustRun("journal", "--audit")
	if !strings.Contains(out, protocol.EventCommandRejected) || !strings.Contains(out, "no_such_project") {
		t.Fatalf("audit=%q", out)
	}
}

func TestAcceptAndAbandon(t *testing.T) {
	c := newCLI(t)
	c.mustRun("new", "--seed", "9")
	offer := c.doc().Player.AvailableProjects[0]

	c.mustRun("accept", offer.ID)
	doc := c.doc()
	if len(doc.Player.ActiveProjects) != 1 || doc.Player.ActiveProjects[0].ID != offer.ID {
		t.Fatalf("active=%v", doc.Player.ActiveProjects)
	}
	if want := min(offer.TrainingsPerWeek, 3); doc.Player.ActiveProjects[0].BaseTraining != want {
		t.Fatalf("base=%d want %d", doc.Player.ActiveProjects[0].BaseTraining, want)
	}
	if out := c.mustRun("status"); !strings.Contains(out, offer.ID) {
		t.Fatalf("status=%q", out)
	}

	out := c.mustRun("abandon", offer.ID)
	if !strings.Contains(out, "refunded 0") {
		t.Fatalf("abandon=%q", out)
	}
	if len(c.doc().Player.ActiveProjects) != 0 {
		t.Fatalf("project still active")
	}
	if out := c.mustRun("index", "projects"); !strings.Contains(out, offer.ID) || !strings.Contains(out, "cancelled") {
		t.Fatalf("index projects=%q", out)
	}
}

func TestYearEndArchiveAndRestore(t *testing.T) {
	c := newCLI(t)
	c.mustRun("new", "--seed", "3")
	c.mustRun("advance", "361")
	c.mustRun("advance", "5")

	out := c.mustRun("archive")
	if !strings.Contains(out, "361") {
		t.Fatalf("archive list=%q", out)
	}
	c.mustRun("archive", "restore", "1")
	if d := c.doc().GameTime.AbsoluteDay(); d != 361 {
		t.Fatalf("restored day=%d", d)
	}
	if _, err := c.run("archive", "restore", "4"); err == nil {
		t.Fatalf("restoring an unarchived year should fail")
	}
}

func TestSocialCommands(t *testing.T) {
	c := newCLI(t)
	c.mustRun("new", "--seed", "4")
	// npc_01 keeps a private chat that strangers cannot reach.
	if _, err := c.run("gift", "npc_01", "gift_1"); err == nil || !strings.Contains(err.Error(), protocol.ErrBlocked) {
		t.Fatalf("gift to a closed chat: %v", err)
	}
	out := c.mustRun("gift", "npc_02", "gift_1")
	if !strings.Contains(out, "npc_02") {
		t.Fatalf("gift=%q", out)
	}
	points := 0
	for _, n := range c.doc().Player.NPCs {
		if n.ID == "npc_02" {
			points = n.RelationshipPoints
		}
	}
	if points <= 0 {
		t.Fatalf("gift earned no points: %d", points)
	}
	if _, err := c.run("greet", "valentine", "npc_02"); err == nil {
		t.Fatalf("unknown greeting accepted")
	}
	c.mustRun("team", "join", "team_aurora")
	if c.doc().Player.TeamID != "team_aurora" {
		t.Fatalf("team not joined")
	}
	if out := c.mustRun("ratings", "--teams"); !strings.Contains(out, "team_aurora") {
		t.Fatalf("team ratings=%q", out)
	}
	if out := c.mustRun("npcs"); !strings.Contains(out, "Mina") {
		t.Fatalf("npcs=%q", out)
	}
}

type sinkFunc func(protocol.Event) error

func (f sinkFunc) WriteEvent(ev protocol.Event) error { return f(ev) }

func TestFanoutKeepsLastReject(t *testing.T) {
	var got []string
	f := &fanout{sinks: []session.Journal{sinkFunc(func(ev protocol.Event) error {
		got = append(got, ev.Type())
		return nil
	})}}
	_ = f.WriteEvent(protocol.Event{"type": protocol.EventCommandRejected, "msg": "first"})
	_ = f.WriteEvent(protocol.Event{"type": protocol.EventOffersRefreshed})
	if len(got) != 2 {
		t.Fatalf("sink saw %v", got)
	}
	if ev := f.takeReject(); ev == nil || ev["msg"] != "first" {
		t.Fatalf("reject=%v", ev)
	}
	if ev := f.takeReject(); ev != nil {
		t.Fatalf("reject not cleared: %v", ev)
	}
}
