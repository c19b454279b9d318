package core

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/fs"
	"gopkg.in/yaml.v3"
)

// JournalPath is where the journal lives inside the project tree.
const JournalPath = ".patchwork/journal.yaml"

// Journal remembers which steps already succeeded against a tree, so a
// second run can skip them instead of scaffolding twice.
type Journal interface {
	Completed(recipe string) (map[string]time.Time, error)
	Record(recipe, step, runID string, at time.Time) error
}

// NopJournal remembers nothing.
type NopJournal struct{}

func (NopJournal) Completed(string) (map[string]time.Time, error) { return nil, nil }
func (NopJournal) Record(string, string, string, time.Time) error  { return nil }

type journalEntry struct {
	Step        string    `yaml:"step"`
	RunID       string    `yaml:"run_id"`
	CompletedAt time.Time `yaml:"completed_at"`
}

type journalFile struct {
	Recipe  string         `yaml:"recipe"`
	Entries []journalEntry `yaml:"entries"`
}

// FileJournal stores the journal as YAML in the project tree.
type FileJournal struct {
	fs   *fs.FileSystem
	path string
}

func NewFileJournal(fsys *fs.FileSystem) *FileJournal {
	return &FileJournal{fs: fsys, path: JournalPath}
}

func (j *FileJournal) load() (journalFile, error) {
	var jf journalFile
	if !j.fs.Exists(j.path) {
		return jf, nil
	}
	content, err := j.fs.ReadFile(j.path)
	if err != nil {
		return jf, err
	}
	if err := yaml.Unmarshal([]byte(content), &jf); err != nil {
		return jf, errors.Wrapf(err, "parse %s", j.path)
	}
	return jf, nil
}

// Completed returns the steps recorded for recipe. Entries written by a
// different recipe are ignored.
func (j *FileJournal) Completed(recipe string) (map[string]time.Time, error) {
	jf, err := j.load()
	if err != nil {
		return nil, err
	}
	done := make(map[string]time.Time)
	if jf.Recipe != recipe {
		return done, nil
	}
	for _, e := range jf.Entries {
		done[e.Step] = e.CompletedAt
	}
	return done, nil
}

func (j *FileJournal) Record(recipe, step, runID string, at time.Time) error {
	jf, err := j.load()
	if err != nil {
		return err
	}
	if jf.Recipe != recipe {
		jf = journalFile{Recipe: recipe}
	}
	jf.Entries = append(jf.Entries, journalEntry{Step: step, RunID: runID, CompletedAt: at.UTC()})

	data, err := yaml.Marshal(&jf)
	if err != nil {
		return errors.Wrap(err, "encode journal")
	}
	if _, err := j.fs.EnsureDir(filepath.Dir(j.path)); err != nil {
		return err
	}
	return j.fs.WriteFile(j.path, string(data))
}
