package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"coverdance.app/internal/protocol"
)

func TestSegmentKey(t *testing.T) {
	for day, want := range map[int]string{
		0:   "y000-m00",
		29:  "y000-m00",
		30:  "y000-m01",
		359: "y000-m11",
		360: "y001-m00",
		-5:  "y000-m00",
	} {
		if got := SegmentKey(day); got != want {
			t.Fatalf("day %d: got %s want %s", day, got, want)
		}
	}
}

func TestJournal_RotatesByGameMonth(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)
	for _, ev := range []protocol.Event{
		{"type": protocol.EventProjectAccepted, "day": 3, "project_id": "p1"},
		{"type": protocol.EventCommandRejected, "day": 4, "op": "fund", "code": protocol.ErrNoResource},
		{"type": protocol.EventProjectCompleted, "day": 35, "project_id": "p1"},
		{"type": protocol.EventNPCRetired, "day": 400, "npc_id": "npc_a"},
	} {
		if err := j.WriteEvent(ev); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	segs, err := Segments(filepath.Join(dir, "events"), "events")
	if err != nil {
		t.Fatalf("segments: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("segments=%v", segs)
	}
	if filepath.Base(segs[0]) != "events-y000-m00.jsonl.zst" || filepath.Base(segs[2]) != "events-y001-m01.jsonl.zst" {
		t.Fatalf("segment order=%v", segs)
	}

	var types []string
	if err := ReadJournal(filepath.Join(dir, "events"), "events", func(ev protocol.Event) bool {
		types = append(types, ev.Type())
		return true
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(types) != 4 || types[0] != protocol.EventProjectAccepted || types[3] != protocol.EventNPCRetired {
		t.Fatalf("types=%v", types)
	}

	var audit []protocol.Event
	if err := ReadJournal(filepath.Join(dir, "audit"), "audit", func(ev protocol.Event) bool {
		audit = append(audit, ev)
		return true
	}); err != nil {
		t.Fatalf("read audit: %v", err)
	}
	if len(audit) != 1 || audit[0]["code"] != protocol.ErrNoResource {
		t.Fatalf("audit=%v", audit)
	}
	if n, ok := audit[0]["day"].(json.Number); !ok || n.String() != "4" {
		t.Fatalf("day=%v", audit[0]["day"])
	}
}

func TestJournal_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		j := NewJournal(dir)
		if err := j.WriteEvent(protocol.Event{"type": protocol.EventOffersRefreshed, "day": 1, "n": i}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := j.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	count := 0
	if err := ReadJournal(filepath.Join(dir, "events"), "events", func(protocol.Event) bool {
		count++
		return true
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if count != 2 {
		t.Fatalf("count=%d", count)
	}
}

func TestReadJournal_StopsEarly(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)
	for day := 0; day < 100; day += 10 {
		_ = j.WriteEvent(protocol.Event{"type": protocol.EventOffersRefreshed, "day": day})
	}
	_ = j.Close()

	seen := 0
	if err := ReadJournal(filepath.Join(dir, "events"), "events", func(protocol.Event) bool {
		seen++
		return seen < 2
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if seen != 2 {
		t.Fatalf("seen=%d", seen)
	}
}

func TestReadEvents_RejectsPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events-y000-m00.jsonl.zst")
	if err := os.WriteFile(path, []byte("{\"type\":\"X\"}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ReadEvents(path, func(protocol.Event) bool { return true }); err == nil {
		t.Fatalf("expected a decode error for an uncompressed file")
	}
}
