package save

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/clock"
	"coverdance.app/internal/sim/escrow"
	"coverdance.app/internal/sim/projects"
	"coverdance.app/schemas"
)

// Document is the persisted game state: enough, together with the catalogs,
// to rebuild a session.
type Document struct {
	Version        int         `json:"version"`
	SaveID         string      `json:"saveId,omitempty"`
	SaveName       string      `json:"saveName"`
	SavedAt        time.Time   `json:"savedAt"`
	Notes          string      `json:"notes,omitempty"`
	Seed           int64       `json:"seed,omitempty"`
	RandDraws      uint64      `json:"randDraws,omitempty"` // values drawn from the Seed stream so far
	CatalogsDigest string      `json:"catalogsDigest,omitempty"`
	GameTime       clock.Clock `json:"gameTime"`
	Player         PlayerState `json:"player"`
}

type PlayerState struct {
	Name       string  `json:"name,omitempty"`
	Money      int     `json:"money"`
	FSkill     float64 `json:"fSkill"`
	MSkill     float64 `json:"mSkill"`
	Tired      int     `json:"tired"`
	Reputation int     `json:"reputation"`
	Popularity int     `json:"popularity"`
	TeamID     string  `json:"teamId,omitempty"`

	FTrainingsThisWeek int `json:"fTrainingsThisWeek"`
	MTrainingsThisWeek int `json:"mTrainingsThisWeek"`

	PendingCollabs        map[string]bool  `json:"pendingCollabs,omitempty"`
	NewYearGreetingsSent  map[string]bool  `json:"newYearGreetingsSent,omitempty"`
	BirthdayGreetingsSent map[string]bool  `json:"birthdayGreetingsSent,omitempty"`
	Inventory             []string         `json:"inventory,omitempty"`
	CollabProposals       []CollabProposal `json:"collabProposals,omitempty"`

	AvailableProjects []*projects.Project `json:"availableProjects"`
	ActiveProjects    []*projects.Project `json:"activeProjects"`
	CompletedProjects []*projects.Project `json:"completedProjects"`
	Reservations      []escrow.Entry      `json:"reservations"`
	NPCs              []NPCState          `json:"npcs"`
}

// CollabProposal is an outgoing collab request waiting for the NPC's answer.
type CollabProposal struct {
	NPCID      string `json:"npcId"`
	CreatedDay int    `json:"createdDay"`
	RespondDay int    `json:"respondDay"`
}

// NPCState is the mutable part of an NPC; static fields come from the catalog.
type NPCState struct {
	ID                 string  `json:"id"`
	RelationshipPoints int     `json:"relationshipPoints"`
	EnemyBadge         bool    `json:"enemyBadge,omitempty"`
	HasPrivateChat     bool    `json:"hasPrivateChat,omitempty"`
	TeamID             string  `json:"teamId,omitempty"`
	Active             bool    `json:"active"`
	FSkill             float64 `json:"fSkill"`
	MSkill             float64 `json:"mSkill"`
	Popularity         int     `json:"popularity"`
	Reputation         int     `json:"reputation"`
	// Reminders maps a lead time in days to the game year it was last sent.
	Reminders map[string]int `json:"reminders,omitempty"`
}

// fillNil keeps empty lists as [] so the document stays schema-valid.
func (p *PlayerState) fillNil() {
	if p.AvailableProjects == nil {
		p.AvailableProjects = []*projects.Project{}
	}
	if p.ActiveProjects == nil {
		p.ActiveProjects = []*projects.Project{}
	}
	if p.CompletedProjects == nil {
		p.CompletedProjects = []*projects.Project{}
	}
	if p.Reservations == nil {
		p.Reservations = []escrow.Entry{}
	}
	if p.NPCs == nil {
		p.NPCs = []NPCState{}
	}
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemas.SaveSchemaURL, strings.NewReader(schemas.SaveSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemas.SaveSchemaURL)
	})
	return schema, schemaErr
}

// Validate checks raw document JSON against the embedded save schema.
func Validate(raw []byte) error {
	s, err := compiled()
	if err != nil {
		return fmt.Errorf("compile save schema: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%s: %w", protocol.ErrSaveBadDocument, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", protocol.ErrSaveBadDocument, err)
	}
	return nil
}

func compressed(path string) bool { return strings.HasSuffix(path, ".zst") }

// Write validates doc against the save schema and stores it at path. Paths
// ending in .zst are zstd-compressed. An invalid document leaves the
// existing file untouched.
func Write(path string, doc Document) error {
	b, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err := Validate(b); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := writeBody(f, path, b); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeBody(w io.Writer, path string, b []byte) error {
	if !compressed(path) {
		_, err := w.Write(b)
		return err
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)
	if _, err := bw.Write(b); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Marshal encodes doc as indented JSON.
func Marshal(doc Document) ([]byte, error) {
	if doc.Version == 0 {
		doc.Version = protocol.SaveVersion
	}
	doc.Player.fillNil()
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return append(b, '\n'), nil
}

// Read loads and validates a document written by Write.
func Read(path string) (Document, error) {
	var doc Document
	f, err := os.Open(path)
	if err != nil {
		return doc, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReaderSize(f, 64*1024)
	if compressed(path) {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return doc, err
		}
		defer dec.Close()
		r = dec
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return doc, fmt.Errorf("read save %s: %w", path, err)
	}
	return Unmarshal(raw)
}

// Unmarshal validates raw and decodes it.
func Unmarshal(raw []byte) (Document, error) {
	var doc Document
	if err := Validate(raw); err != nil {
		return doc, err
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("%s: %w", protocol.ErrSaveBadDocument, err)
	}
	if doc.Version > protocol.SaveVersion {
		return doc, fmt.Errorf("%s: document version %d is newer than %d", protocol.ErrSaveVersion, doc.Version, protocol.SaveVersion)
	}
	return doc, nil
}
