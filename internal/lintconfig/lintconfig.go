// Package lintconfig manages the rule configuration file the linter discovers in
// its working directory.
package lintconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultFileName = ".bpmnlintrc"
	DefaultExtends  = "bpmnlint:recommended"
)

type ruleSet struct {
	Extends string `json:"extends"`
}

// Writer owns the configuration file. The content is constant for the lifetime
// of the writer, so concurrent writes are harmless as long as each one replaces
// the file atomically.
type Writer struct {
	dir      string
	fileName string
	extends  string

	content []byte
	mu      sync.Mutex
}

func NewWriter(options ...func(*Writer)) (*Writer, error) {
	w := &Writer{
		dir:      ".",
		fileName: DefaultFileName,
		extends:  DefaultExtends,
	}

	for _, option := range options {
		option(w)
	}

	if w.fileName == "" || filepath.Base(w.fileName) != w.fileName {
		return nil, fmt.Errorf("invalid config file name: %q", w.fileName)
	}
	if w.extends == "" {
		return nil, errors.New("extends is required")
	}

	content, err := json.MarshalIndent(&ruleSet{Extends: w.extends}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rule set: %w", err)
	}
	w.content = content

	return w, nil
}

// Path returns the location of the configuration file
func (w *Writer) Path() string {
	return filepath.Join(w.dir, w.fileName)
}

// Dir returns the directory holding the configuration file
func (w *Writer) Dir() string {
	return w.dir
}

// Content returns the bytes written to the configuration file
func (w *Writer) Content() []byte {
	return bytes.Clone(w.content)
}

// Write unconditionally replaces the configuration file
func (w *Writer) Write() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.write()
}

// Ensure rewrites the configuration file only if it is missing or its content
// differs from the expected rule set
func (w *Writer) Ensure() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	current, err := os.ReadFile(w.Path())
	switch {
	case err == nil && bytes.Equal(current, w.content):
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		log.Warnf("failed to read config file %s, rewriting it: %v", w.Path(), err)
	}

	return w.write()
}

// Present reports whether the configuration file exists
func (w *Writer) Present() bool {
	_, err := os.Stat(w.Path())

	return err == nil
}

func (w *Writer) write() error {
	if err := replaceFile(w.Path(), w.content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", w.Path(), err)
	}
	log.Debugf("wrote linter configuration file %s", w.Path())

	return nil
}

// replaceFile writes content next to path and renames it into place once it is
// synced, so readers see either the previous or the new configuration.
func replaceFile(path string, content []byte, perm os.FileMode) error {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := file.Name()

	if err := writeSynced(file, content, perm); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			log.Errorf("failed to remove temporary file %s due to: %v", tempPath, removeErr)
		}

		return err
	}

	if err := os.Rename(tempPath, path); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			log.Errorf("failed to remove temporary file %s due to: %v", tempPath, removeErr)
		}

		return fmt.Errorf("failed to move temporary file into place: %w", err)
	}

	return nil
}

// writeSynced writes content to file, flushes it to disk and closes it
func writeSynced(file *os.File, content []byte, perm os.FileMode) error {
	_, err := file.Write(content)
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Chmod(file.Name(), perm); err != nil {
		return fmt.Errorf("failed to set permissions of temporary file: %w", err)
	}

	return nil
}
