package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/clock"
)

// JSONLZstdWriter appends JSON lines to zstd segments. The caller picks the
// segment key on every write; a new key closes the current segment.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu     sync.Mutex
	curKey string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(key string, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if key != w.curKey || w.w == nil {
		if err := w.rotateLocked(key); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(key string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curKey = key
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathFor(key string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, key))
}

// SegmentKey names the game month an absolute day falls in.
func SegmentKey(day int) string {
	c := clock.FromAbsolute(max(day, 0))
	return fmt.Sprintf("y%03d-m%02d", c.Year, c.Month)
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

// Journal keeps the session's event stream, one segment per game month.
// Refused commands are also copied to a separate audit stream.
type Journal struct {
	events *JSONLZstdWriter
	audit  *JSONLZstdWriter
}

func NewJournal(saveDir string) *Journal {
	return &Journal{
		events: NewJSONLZstdWriter(filepath.Join(saveDir, "events"), "events"),
		audit:  NewJSONLZstdWriter(filepath.Join(saveDir, "audit"), "audit"),
	}
}

func (j *Journal) WriteEvent(ev protocol.Event) error {
	key := SegmentKey(eventDay(ev))
	if err := j.events.Write(key, ev); err != nil {
		return err
	}
	if ev.Type() == protocol.EventCommandRejected {
		return j.audit.Write(key, ev)
	}
	return nil
}

func (j *Journal) Close() error {
	err := j.events.Close()
	if aerr := j.audit.Close(); err == nil {
		err = aerr
	}
	return err
}

// Segments lists the journal files under dir in game order.
func Segments(dir, prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadEvents decodes every line of one segment. fn returning false stops the scan.
func ReadEvents(path string, fn func(protocol.Event) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()
	return scanLines(dec, fn)
}

func scanLines(r io.Reader, fn func(protocol.Event) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		d := json.NewDecoder(strings.NewReader(line))
		d.UseNumber()
		var ev protocol.Event
		if err := d.Decode(&ev); err != nil {
			return fmt.Errorf("decode line: %w", err)
		}
		if !fn(ev) {
			return nil
		}
	}
	return sc.Err()
}

// ReadJournal walks every segment of a journal directory in order.
func ReadJournal(dir, prefix string, fn func(protocol.Event) bool) error {
	paths, err := Segments(dir, prefix)
	if err != nil {
		return err
	}
	stop := false
	for _, p := range paths {
		err := ReadEvents(p, func(ev protocol.Event) bool {
			if !fn(ev) {
				stop = true
				return false
			}
			return true
		})
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		if stop {
			return nil
		}
	}
	return nil
}
