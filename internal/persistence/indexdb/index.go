// Package indexdb keeps a queryable secondary index of a career: finished
// projects, the event stream, saves and the catalogs they were played with.
// The JSONL journal stays the source of truth; the index may drop writes.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"coverdance.app/internal/persistence/save"
	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/catalogs"
	"coverdance.app/internal/sim/projects"
	"coverdance.app/internal/sim/tuning"
)

type Index struct {
	db      *sql.DB
	dialect sqlDialect
	log     logrus.FieldLogger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvent   atomic.Uint64
	dropProject atomic.Uint64
	dropSave    atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqProject
	reqSave
	reqFlush
)

type req struct {
	kind reqKind

	event   eventRow
	project projectRow
	save    saveRow
	done    chan struct{}
}

type eventRow struct {
	Day    int
	Type   string
	Target string
	Raw    string
}

type projectRow struct {
	Day int
	P   *projects.Project
}

type saveRow struct {
	SaveID         string
	SaveName       string
	Path           string
	Day            int
	Money          int
	Popularity     int
	Reputation     int
	CatalogsDigest string
	SavedAt        string
}

// Options tune the writer queue; zero values pick defaults.
type Options struct {
	QueueSize int
	Logger    logrus.FieldLogger
}

func Open(ctx context.Context, cfg Config, opts Options) (*Index, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d := sqlDialect(cfg.Dialect)
	if err := applyMigrations(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, err
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16384
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(os.Stderr)
		logger = l
	}
	s := &Index{
		db:      db,
		dialect: d,
		log:     logger.WithField("component", "indexdb"),
		ch:      make(chan req, opts.QueueSize),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// OpenSQLite opens a sqlite index at path.
func OpenSQLite(path string) (*Index, error) {
	return Open(context.Background(), Config{Dialect: DialectSQLite, SQLitePath: path}, Options{})
}

func (s *Index) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

type Stats struct {
	DropEventTotal   uint64
	DropProjectTotal uint64
	DropSaveTotal    uint64
	QueueDepth       int
	QueueCapacity    int
}

func (s *Index) Stats() Stats {
	return Stats{
		DropEventTotal:   s.dropEvent.Load(),
		DropProjectTotal: s.dropProject.Load(),
		DropSaveTotal:    s.dropSave.Load(),
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
	}
}

func (s *Index) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; the journal remains the source of truth.
		drops.Add(1)
	}
}

func eventTarget(ev protocol.Event) string {
	for _, k := range []string{"project_id", "npc_id", "team_id", "item_id", "target"} {
		if v, ok := ev[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func eventDay(ev protocol.Event) int {
	switch d := ev["day"].(type) {
	case int:
		return d
	case int64:
		return int(d)
	case float64:
		return int(d)
	case json.Number:
		n, _ := d.Int64()
		return int(n)
	}
	return 0
}

// WriteEvent queues one journal event. It never blocks the session.
func (s *Index) WriteEvent(ev protocol.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	s.enqueue(req{kind: reqEvent, event: eventRow{
		Day:    eventDay(ev),
		Type:   ev.Type(),
		Target: eventTarget(ev),
		Raw:    string(raw),
	}}, &s.dropEvent)
	return nil
}

// RecordProject queues a terminal project. The caller hands over ownership of p.
func (s *Index) RecordProject(day int, p *projects.Project) {
	if s == nil || p == nil {
		return
	}
	s.enqueue(req{kind: reqProject, project: projectRow{Day: day, P: p}}, &s.dropProject)
}

// RecordSave queues the summary of a written save file.
func (s *Index) RecordSave(path string, doc save.Document) {
	if s == nil || doc.SaveID == "" {
		return
	}
	s.enqueue(req{kind: reqSave, save: saveRow{
		SaveID:         doc.SaveID,
		SaveName:       doc.SaveName,
		Path:           path,
		Day:            doc.GameTime.AbsoluteDay(),
		Money:          doc.Player.Money,
		Popularity:     doc.Player.Popularity,
		Reputation:     doc.Player.Reputation,
		CatalogsDigest: doc.CatalogsDigest,
		SavedAt:        doc.SavedAt.UTC().Format(time.RFC3339Nano),
	}}, &s.dropSave)
}

// Flush waits until everything queued so far is committed. Reads and
// synchronous writes call it first: the writer holds the only connection while
// a batch is open. Not safe to call concurrently with Close.
func (s *Index) Flush() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqFlush, done: done}
	<-done
}

// UpsertCatalogs stores the catalogs and tuning a career runs with, synchronously.
func (s *Index) UpsertCatalogs(ctx context.Context, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil || cats == nil {
		return nil
	}
	s.Flush()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		v      any
	}
	rows := []kv{
		{"projects", cats.Projects.Digest, cats.Projects.Seeds},
		{"gifts", cats.Gifts.Digest, cats.Gifts.List},
		{"clothes", cats.Clothes.Digest, cats.Clothes.Items},
		{"npcs", cats.NPCs.Digest, cats.NPCs.List},
		{"teams", cats.Teams.Digest, cats.Teams.List},
		{"tuning", "", tune},
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	meta := s.dialect.upsertQuery("meta", "key", []string{"key", "value"})
	if _, err := tx.ExecContext(ctx, meta, "catalogs_digest", cats.Digest()); err != nil {
		return err
	}
	q := s.dialect.upsertQuery("catalogs", "name", []string{"name", "digest", "json", "updated_at"})
	for _, r := range rows {
		b, err := json.Marshal(r.v)
		if err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
		digest := r.digest
		if digest == "" {
			sum := sha256.Sum256(b)
			digest = hex.EncodeToString(sum[:])
		}
		if _, err := tx.ExecContext(ctx, q, r.name, digest, string(b), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Index) loop() {
	ctx := context.Background()
	d := s.dialect

	insertEvent := d.insertQuery("events", []string{"day", "type", "target", "raw_json"})
	upsertProject := d.upsertQuery("projects", "project_id", []string{
		"project_id", "name", "style", "status", "success", "failed_deadline", "leader_id",
		"accepted_day", "completed_day", "recorded_day", "trainings_completed", "training_needed",
		"training_cost", "costume_cost", "costume_match", "likes", "dislikes",
		"popularity_change", "reputation_change", "raw_json",
	})
	upsertSave := d.upsertQuery("saves", "save_id", []string{
		"save_id", "save_name", "path", "day", "money", "popularity", "reputation", "catalogs_digest", "saved_at",
	})

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.log.WithError(err).Warn("index begin failed")
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.log.WithError(err).Warn("index commit failed")
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func(err error) {
		s.log.WithError(err).Warn("index write failed")
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch r.kind {
		case reqEvent:
			e := r.event
			_, err = tx.ExecContext(ctx, insertEvent, e.Day, e.Type, e.Target, e.Raw)
		case reqProject:
			p := r.project.P
			raw, _ := json.Marshal(p)
			_, err = tx.ExecContext(ctx, upsertProject,
				p.ID, p.Name, p.RequiredSkill.String(), string(p.Status), p.Success, p.FailedDueToDeadline, p.LeaderID,
				p.AcceptedDay, p.CompletedDay, r.project.Day, p.TrainingsCompleted, p.TrainingNeeded,
				p.TrainingCost, p.CostumeCost, p.CostumeMatchPercent, p.Likes, p.Dislikes,
				p.PopularityChange, p.ReputationChange, string(raw),
			)
		case reqSave:
			sv := r.save
			_, err = tx.ExecContext(ctx, upsertSave,
				sv.SaveID, sv.SaveName, sv.Path, sv.Day, sv.Money, sv.Popularity, sv.Reputation, sv.CatalogsDigest, sv.SavedAt,
			)
		}
		if err != nil {
			rollback(err)
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

// DefaultPath is where a save's index lives when no database is configured.
func DefaultPath(saveDir string) string {
	return filepath.Join(saveDir, "index.sqlite")
}
