package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"coverdance.app/internal/persistence/archive"
	"coverdance.app/internal/persistence/indexdb"
	journal "coverdance.app/internal/persistence/log"
	"coverdance.app/internal/persistence/save"
	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/catalogs"
	"coverdance.app/internal/sim/session"
	"coverdance.app/internal/sim/tuning"
)

type rootOptions struct {
	configDir string
	saveDir   string
	slot      string
	logLevel  string
}

func (o *rootOptions) savePath() string {
	return filepath.Join(o.saveDir, o.slot+".json.zst")
}

func (o *rootOptions) logger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	lvl, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		lvl = logrus.WarnLevel
	}
	l.SetLevel(lvl)
	return l
}

// fanout copies every session event to the journal and the index, and keeps
// the last refusal so a command can explain why it did nothing.
type fanout struct {
	sinks      []session.Journal
	lastReject protocol.Event
}

func (f *fanout) WriteEvent(ev protocol.Event) error {
	if ev.Type() == protocol.EventCommandRejected {
		f.lastReject = ev
	}
	var errs []error
	for _, s := range f.sinks {
		if err := s.WriteEvent(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) takeReject() protocol.Event {
	ev := f.lastReject
	f.lastReject = nil
	return ev
}

// game is one open save slot with its journal and index.
type game struct {
	opts    *rootOptions
	log     *logrus.Logger
	cats    *catalogs.Catalogs
	tune    tuning.Tuning
	journal *journal.Journal
	index   *indexdb.Index
	events  *fanout
	sess    *session.Session
}

type newGame struct {
	seed int64
	name string
}

func loadConfig(dir string, log logrus.FieldLogger) (tuning.Tuning, *catalogs.Catalogs, error) {
	tune, err := tuning.Load(filepath.Join(dir, "tuning.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("dir", dir).Warn("no tuning.yaml, using defaults")
	} else if err != nil {
		return tune, nil, err
	}
	cats, err := catalogs.Load(dir)
	if err != nil {
		return tune, nil, fmt.Errorf("load catalogs: %w", err)
	}
	return tune, cats, nil
}

// openGame loads the slot's save, or starts a new game when fresh is set.
func openGame(ctx context.Context, opts *rootOptions, log *logrus.Logger, fresh *newGame) (*game, error) {
	tune, cats, err := loadConfig(opts.configDir, log)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.saveDir, 0o755); err != nil {
		return nil, err
	}

	g := &game{opts: opts, log: log, cats: cats, tune: tune, journal: journal.NewJournal(opts.saveDir)}
	g.events = &fanout{sinks: []session.Journal{g.journal}}

	idx, err := indexdb.Open(ctx, indexdb.ConfigFromEnv(indexdb.DefaultPath(opts.saveDir)), indexdb.Options{Logger: log})
	if err != nil {
		log.WithError(err).Warn("index unavailable, continuing with the journal only")
	} else {
		g.index = idx
		g.events.sinks = append(g.events.sinks, idx)
	}

	sopts := session.Options{
		Tuning:   tune,
		Catalogs: cats,
		Logger:   log,
		Journal:  g.events,
	}
	if g.index != nil {
		sopts.Archive = g.index
	}

	if fresh != nil {
		sopts.Seed = fresh.seed
		sopts.PlayerName = fresh.name
		g.sess, err = session.New(sopts)
		if err == nil {
			err = g.index.UpsertCatalogs(ctx, cats, tune)
		}
	} else {
		var doc save.Document
		doc, err = save.Read(opts.savePath())
		if err == nil {
			g.sess, err = session.Import(doc, sopts)
		}
	}
	if err != nil {
		g.close()
		return nil, err
	}
	return g, nil
}

// save writes the slot, indexes it and archives the year that just ended
// when this is the first save of a new game year.
func (g *game) save() error {
	path := g.opts.savePath()
	doc := g.sess.Export(g.opts.slot, "", time.Now().UTC())
	if err := save.Write(path, doc); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	g.index.RecordSave(path, doc)

	year, archived, ok, err := archive.ArchiveYearEnd(g.opts.saveDir, path, doc)
	if err != nil {
		g.log.WithError(err).Warn("year archive failed")
	} else if ok {
		g.log.WithFields(logrus.Fields{"year": year, "path": archived}).Info("year archived")
	}
	return nil
}

func (g *game) close() {
	if g.journal != nil {
		if err := g.journal.Close(); err != nil {
			g.log.WithError(err).Warn("journal close failed")
		}
	}
	if g.index != nil {
		if err := g.index.Close(); err != nil {
			g.log.WithError(err).Warn("index close failed")
		}
	}
}

// refused turns the last journaled rejection into an error.
func (g *game) refused(op string) error {
	ev := g.events.takeReject()
	if ev == nil {
		return fmt.Errorf("%s refused", op)
	}
	return fmt.Errorf("%s refused: %v (%v)", op, ev["msg"], ev["code"])
}
