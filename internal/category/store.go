package category

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// MalformedCategoryError reports a category file that could not be
// parsed or is missing a required field.
type MalformedCategoryError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedCategoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed category %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed category %s: %s", e.Path, e.Reason)
}

func (e *MalformedCategoryError) Unwrap() error { return e.Err }

// DuplicateCategoryError reports two files that normalize to the same
// category id.
type DuplicateCategoryError struct {
	ID        string
	Path      string
	OtherPath string
}

func (e *DuplicateCategoryError) Error() string {
	return fmt.Sprintf("duplicate category id %q: %s and %s", e.ID, e.OtherPath, e.Path)
}

// Store is the immutable set of loaded categories, ordered by id.
type Store struct {
	categories  []Category
	byID        map[string]int
	fingerprint string
}

// categoryFile mirrors the on-disk TOML schema. Severity stays a raw
// string so a missing field can be told apart from a bad token.
type categoryFile struct {
	Name        string          `toml:"name"`
	Description string          `toml:"description"`
	Severity    string          `toml:"severity"`
	Impact      string          `toml:"impact"`
	Rules       []ruleGroupFile `toml:"rules"`
}

type ruleGroupFile struct {
	Notes       string   `toml:"notes"`
	Domains     []string `toml:"domains"`
	DenyProcess string   `toml:"deny-process"`
}

// Load reads every *.toml file in dir (non-recursive) into a Store.
// Categories are ordered by id; the id is the lowercased file base name
// without extension. A single malformed file fails the whole load.
func Load(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read categories directory: %w", err)
	}

	var files []sourceFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read category file: %w", err)
		}
		files = append(files, sourceFile{name: entry.Name(), path: path, data: data})
	}

	return build(files)
}

// LoadFS is Load over an fs.FS, used for the embedded default
// categories. Semantics match Load.
func LoadFS(fsys fs.FS) (*Store, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read embedded categories: %w", err)
	}

	var files []sourceFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded category: %w", err)
		}
		files = append(files, sourceFile{name: entry.Name(), path: entry.Name(), data: data})
	}

	return build(files)
}

type sourceFile struct {
	name string
	path string
	data []byte
}

func build(files []sourceFile) (*Store, error) {
	sort.Slice(files, func(i, j int) bool { return slugOf(files[i].name) < slugOf(files[j].name) })

	s := &Store{byID: make(map[string]int, len(files))}
	paths := make(map[string]string, len(files))
	hash := sha256.New()

	for _, f := range files {
		id := slugOf(f.name)
		if prev, ok := paths[id]; ok {
			return nil, &DuplicateCategoryError{ID: id, Path: f.path, OtherPath: prev}
		}
		paths[id] = f.path

		cat, err := parseCategory(id, f.path, f.data)
		if err != nil {
			return nil, err
		}

		s.byID[id] = len(s.categories)
		s.categories = append(s.categories, cat)

		hash.Write([]byte(id))
		hash.Write([]byte{0})
		hash.Write(f.data)
	}

	s.fingerprint = hex.EncodeToString(hash.Sum(nil))[:16]
	return s, nil
}

func parseCategory(id, path string, data []byte) (Category, error) {
	var file categoryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return Category{}, &MalformedCategoryError{Path: path, Reason: "invalid TOML", Err: err}
	}

	switch {
	case file.Name == "":
		return Category{}, &MalformedCategoryError{Path: path, Reason: "missing required field: name"}
	case file.Description == "":
		return Category{}, &MalformedCategoryError{Path: path, Reason: "missing required field: description"}
	case file.Severity == "":
		return Category{}, &MalformedCategoryError{Path: path, Reason: "missing required field: severity"}
	}

	severity, err := ParseSeverity(file.Severity)
	if err != nil {
		return Category{}, &MalformedCategoryError{Path: path, Reason: "bad severity", Err: err}
	}

	cat := Category{
		ID:          id,
		Name:        file.Name,
		Description: file.Description,
		Severity:    severity,
		Impact:      file.Impact,
	}
	for _, g := range file.Rules {
		cat.Rules = append(cat.Rules, RuleGroup{
			Notes:       g.Notes,
			Domains:     g.Domains,
			DenyProcess: g.DenyProcess,
		})
	}
	return cat, nil
}

func slugOf(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
}

// Categories returns the loaded categories in id order. Callers must
// not mutate the returned slice.
func (s *Store) Categories() []Category { return s.categories }

// Get returns the category with the given id.
func (s *Store) Get(id string) (Category, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Category{}, false
	}
	return s.categories[i], true
}

// Len returns the number of loaded categories.
func (s *Store) Len() int { return len(s.categories) }

// Fingerprint is a content hash over the loaded files, stable for a
// given directory state. Used to validate cached generation results.
func (s *Store) Fingerprint() string { return s.fingerprint }
