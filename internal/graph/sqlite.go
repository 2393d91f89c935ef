package graph

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docwright/internal/diag"
	"git.home.luguber.info/inful/docwright/internal/doctree"
	"git.home.luguber.info/inful/docwright/internal/errors"
	"git.home.luguber.info/inful/docwright/internal/util/sets"
)

// SQLiteStore is the Store implementation backed by a corpus directory and
// a SQLite snapshot file. The snapshot carries content fingerprints and
// inclusion relations from the last persisted build; Update compares a
// fresh scan against it.
type SQLiteStore struct {
	mu sync.RWMutex

	db      *sql.DB
	srcDir  string
	suffix  string
	rootDoc DocID

	// current scan state
	fingerprints map[DocID]string
	includes     map[DocID]sets.Set[DocID]
	includers    map[DocID]sets.Set[DocID]

	// persisted snapshot state
	prior map[DocID]string

	scanned bool
}

// NewSQLiteStore opens (or creates) the snapshot at dbPath for the corpus
// rooted at srcDir. Use ":memory:" for a throwaway snapshot.
func NewSQLiteStore(dbPath, srcDir, suffix string, rootDoc DocID) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Fatal(errors.CategoryGraph, "creating snapshot directory", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Fatal(errors.CategoryGraph, "opening graph snapshot", err)
	}

	s := &SQLiteStore{
		db:           db,
		srcDir:       srcDir,
		suffix:       suffix,
		rootDoc:      rootDoc,
		fingerprints: make(map[DocID]string),
		includes:     make(map[DocID]sets.Set[DocID]),
		includers:    make(map[DocID]sets.Set[DocID]),
		prior:        make(map[DocID]string),
	}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.Fatal(errors.CategoryGraph, "initializing snapshot schema", err)
	}
	if err := s.loadSnapshot(); err != nil {
		_ = db.Close()
		return nil, errors.Fatal(errors.CategoryGraph, "loading snapshot", err)
	}
	return s, nil
}

// Close releases the snapshot database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		docname TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS relations (
		includer TEXT NOT NULL,
		included TEXT NOT NULL,
		PRIMARY KEY (includer, included)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) loadSnapshot() error {
	rows, err := s.db.Query("SELECT docname, fingerprint FROM documents")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var doc, fp string
		if err := rows.Scan(&doc, &fp); err != nil {
			return err
		}
		s.prior[DocID(doc)] = fp
	}
	return rows.Err()
}

// Update rescans the corpus, rebuilds the relation maps and returns the
// set of documents whose fingerprint differs from the persisted snapshot
// (including documents the snapshot has never seen).
func (s *SQLiteStore) Update(ctx context.Context) (sets.Set[DocID], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fingerprints = make(map[DocID]string)
	s.includes = make(map[DocID]sets.Set[DocID])
	s.includers = make(map[DocID]sets.Set[DocID])

	err := filepath.WalkDir(s.srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), s.suffix) {
			return nil
		}
		rel, err := filepath.Rel(s.srcDir, p)
		if err != nil {
			return err
		}
		doc := Normalize(filepath.ToSlash(rel), s.suffix)

		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(content)
		s.fingerprints[doc] = hex.EncodeToString(sum[:])

		for _, target := range extractDocLinks(content, s.suffix) {
			included := resolveLink(doc, target, s.suffix)
			s.addRelation(doc, included)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Fatal(errors.CategoryGraph, "scanning source directory", err)
	}
	s.scanned = true

	// Inclusion targets pointing at missing files are dropped here; the
	// consistency check reports dangling references separately.
	for includer, included := range s.includes {
		for doc := range included {
			if _, ok := s.fingerprints[doc]; !ok {
				included.Delete(doc)
				s.includers[doc].Delete(includer)
			}
		}
	}

	changed := sets.New[DocID]()
	for doc, fp := range s.fingerprints {
		if prior, ok := s.prior[doc]; !ok || prior != fp {
			changed.Add(doc)
		}
	}
	return changed, nil
}

func (s *SQLiteStore) addRelation(includer, included DocID) {
	if includer == included {
		return
	}
	if s.includes[includer] == nil {
		s.includes[includer] = sets.New[DocID]()
	}
	s.includes[includer].Add(included)
	if s.includers[included] == nil {
		s.includers[included] = sets.New[DocID]()
	}
	s.includers[included].Add(includer)
}

// DependentsOf walks the includer relation transitively: a document that
// includes a changed document is itself stale, and so on upward.
func (s *SQLiteStore) DependentsOf(changed sets.Set[DocID]) sets.Set[DocID] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dependents := sets.New[DocID]()
	queue := make([]DocID, 0, len(changed))
	for doc := range changed {
		queue = append(queue, doc)
	}
	seen := changed.Clone()
	for len(queue) > 0 {
		doc := queue[0]
		queue = queue[1:]
		for includer := range s.includers[doc] {
			if seen.Has(includer) {
				continue
			}
			seen.Add(includer)
			dependents.Add(includer)
			queue = append(queue, includer)
		}
	}
	return dependents
}

// Persist replaces the snapshot with the current scan inside one
// transaction, so a crash mid-write leaves the previous snapshot intact.
func (s *SQLiteStore) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Fatal(errors.CategoryGraph, "starting snapshot transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return errors.Fatal(errors.CategoryGraph, "clearing documents", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM relations"); err != nil {
		return errors.Fatal(errors.CategoryGraph, "clearing relations", err)
	}
	for doc, fp := range s.fingerprints {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents (docname, fingerprint) VALUES (?, ?)", string(doc), fp); err != nil {
			return errors.Fatal(errors.CategoryGraph, "inserting document", err)
		}
	}
	for includer, included := range s.includes {
		for doc := range included {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO relations (includer, included) VALUES (?, ?)", string(includer), string(doc)); err != nil {
				return errors.Fatal(errors.CategoryGraph, "inserting relation", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Fatal(errors.CategoryGraph, "committing snapshot", err)
	}

	s.prior = make(map[DocID]string, len(s.fingerprints))
	for doc, fp := range s.fingerprints {
		s.prior[doc] = fp
	}
	return nil
}

// CheckConsistency warns about documents that no toctree reaches from the
// root document. Warnings are recoverable; only an escalated warning or an
// internal failure aborts.
func (s *SQLiteStore) CheckConsistency(rep diag.Reporter) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reachable := sets.New(s.rootDoc)
	queue := []DocID{s.rootDoc}
	for len(queue) > 0 {
		doc := queue[0]
		queue = queue[1:]
		for included := range s.includes[doc] {
			if !reachable.Has(included) {
				reachable.Add(included)
				queue = append(queue, included)
			}
		}
	}

	for _, doc := range sets.Sorted(s.knownLocked()) {
		if reachable.Has(doc) {
			continue
		}
		err := rep.Warning("document isn't included in any toctree",
			diag.WithLocation(diag.InDocument(string(doc))),
			diag.Tagged("toc", "not_included"))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) knownLocked() sets.Set[DocID] {
	known := sets.New[DocID]()
	if s.scanned {
		for doc := range s.fingerprints {
			known.Add(doc)
		}
		return known
	}
	for doc := range s.prior {
		known.Add(doc)
	}
	return known
}

// KnownDocuments returns the documents of the current scan, or of the
// persisted snapshot when no scan has run yet.
func (s *SQLiteStore) KnownDocuments() sets.Set[DocID] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.knownLocked()
}

// TocIncluders returns the direct includers of doc.
func (s *SQLiteStore) TocIncluders(doc DocID) sets.Set[DocID] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if incl, ok := s.includers[doc]; ok {
		return incl.Clone()
	}
	return sets.New[DocID]()
}

// ResolveTree reads and resolves a single document.
func (s *SQLiteStore) ResolveTree(_ context.Context, doc DocID) (*doctree.Tree, error) {
	srcPath := filepath.Join(s.srcDir, filepath.FromSlash(string(doc))+s.suffix)
	content, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", doc, err)
	}
	return &doctree.Tree{
		Docname:    string(doc),
		SourcePath: string(doc) + s.suffix,
		Title:      documentTitle(content, string(doc)),
		Body:       content,
	}, nil
}

var _ Store = (*SQLiteStore)(nil)
