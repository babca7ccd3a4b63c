package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"coverdance.app/internal/persistence/save"
)

type YearArchiveMeta struct {
	Year       int    `json:"year"`
	Day        int    `json:"day"`
	Seed       int64  `json:"seed"`
	Save       string `json:"save"`
	SaveID     string `json:"save_id"`
	Money      int    `json:"money"`
	Popularity int    `json:"popularity"`
	Reputation int    `json:"reputation"`
	Completed  int    `json:"completed_projects"`
	CreatedAt  string `json:"created_at"`
}

// YearDir is where the archive of a finished game year lives.
func YearDir(saveDir string, year int) string {
	return filepath.Join(saveDir, "archives", fmt.Sprintf("year_%03d", year))
}

// ArchiveYearEnd copies the first save written in a new game year into
// saveDir/archives/year_<NNN>/, where NNN is the year that just ended.
// Later saves in the same year are left alone.
func ArchiveYearEnd(saveDir, savePath string, doc save.Document) (year int, archivedPath string, archived bool, err error) {
	if doc.GameTime.Year <= 0 {
		return 0, "", false, nil
	}
	year = doc.GameTime.Year - 1
	archiveDir := YearDir(saveDir, year)
	metaPath := filepath.Join(archiveDir, "meta.json")
	if _, err := os.Stat(metaPath); err == nil {
		return year, "", false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, "", false, err
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(savePath))
	if err := copyFile(savePath, dst); err != nil {
		return 0, "", false, err
	}

	meta := YearArchiveMeta{
		Year:       year,
		Day:        doc.GameTime.AbsoluteDay(),
		Seed:       doc.Seed,
		Save:       filepath.Base(dst),
		SaveID:     doc.SaveID,
		Money:      doc.Player.Money,
		Popularity: doc.Player.Popularity,
		Reputation: doc.Player.Reputation,
		Completed:  len(doc.Player.CompletedProjects),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return 0, "", false, err
	}
	if err := os.WriteFile(metaPath, b, 0o644); err != nil {
		return 0, "", false, err
	}
	return year, dst, true, nil
}

// ReadYearMeta loads the meta of an archived year.
func ReadYearMeta(saveDir string, year int) (YearArchiveMeta, error) {
	var m YearArchiveMeta
	b, err := os.ReadFile(filepath.Join(YearDir(saveDir, year), "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

// Years lists the archived years under saveDir, oldest first.
func Years(saveDir string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(saveDir, "archives"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []int
	for _, e := range entries {
		var year int
		if !e.IsDir() {
			continue
		}
		if _, err := fmt.Sscanf(e.Name(), "year_%d", &year); err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(saveDir, "archives", e.Name(), "meta.json")); err != nil {
			continue
		}
		out = append(out, year)
	}
	sort.Ints(out)
	return out, nil
}

// SavePath is the archived save of a year.
func SavePath(saveDir string, m YearArchiveMeta) string {
	return filepath.Join(YearDir(saveDir, m.Year), m.Save)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
