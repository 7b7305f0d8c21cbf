// Package pubdb reads the sqlite database embedded in a publication
// container. Access is read-only and limited to two typed entry points; no
// dynamic SQL reaches the database.
package pubdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrQuery reports a malformed or unexpectedly shaped database. It is fatal
// for the publication being processed.
var ErrQuery = errors.New("publication database query failed")

// Store holds one extracted publication database for the duration of a single
// publication's processing. Close releases the connection and removes the
// backing temp file when the store owns one.
type Store struct {
	db       *sql.DB
	path     string
	ownsFile bool
}

// Open materializes database bytes from the inner archive into a temp file
// and opens it read-only.
func Open(dbBytes []byte) (*Store, error) {
	dir, err := os.MkdirTemp("", "jwpub-db-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	path := filepath.Join(dir, "publication.db")
	if err := os.WriteFile(path, dbBytes, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write temp database: %w", err)
	}

	store, err := openPath(path, true)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return store, nil
}

// OpenFile opens an on-disk publication database without taking ownership of
// the file.
func OpenFile(path string) (*Store, error) {
	return openPath(path, false)
}

func openPath(path string, ownsFile bool) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// The container database is never written; query_only also guards
	// against accidental writes from future queries.
	if _, err := db.Exec("PRAGMA query_only = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply query_only pragma: %v", ErrQuery, err)
	}

	return &Store{db: db, path: path, ownsFile: ownsFile}, nil
}

// Close releases the database handle and deletes the temp file when owned.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if s.ownsFile {
		_ = os.RemoveAll(filepath.Dir(s.path))
	}
	return err
}

// PublicationMeta carries the four Publication fields that seed key
// derivation. Any change in any field yields an unrelated key.
type PublicationMeta struct {
	MepsLanguageIndex int
	Symbol            string
	Year              int
	IssueTagNumber    string
}

// PubCard renders the key-derivation seed string. The field order and the
// underscore separators are part of the derivation protocol.
func (m PublicationMeta) PubCard() string {
	return fmt.Sprintf("%d_%s_%d_%s", m.MepsLanguageIndex, m.Symbol, m.Year, m.IssueTagNumber)
}

// DocumentRow is one row of the Document table with its still-encrypted
// content blob.
type DocumentRow struct {
	ID      int
	Title   string
	Content []byte
}

// PublicationMetadata reads the single Publication row.
func (s *Store) PublicationMetadata(ctx context.Context) (PublicationMeta, error) {
	var meta PublicationMeta
	row := s.db.QueryRowContext(ctx,
		"SELECT MepsLanguageIndex, Symbol, Year, IssueTagNumber FROM Publication LIMIT 1")
	err := row.Scan(&meta.MepsLanguageIndex, &meta.Symbol, &meta.Year, &meta.IssueTagNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return PublicationMeta{}, fmt.Errorf("%w: Publication table is empty", ErrQuery)
	}
	if err != nil {
		return PublicationMeta{}, fmt.Errorf("%w: read publication metadata: %v", ErrQuery, err)
	}
	return meta, nil
}

// DocumentsByClass reads every Document row matching the given class
// discriminator. Unknown classes simply match no rows.
func (s *Store) DocumentsByClass(ctx context.Context, class int) ([]DocumentRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT MepsDocumentId, Title, Content FROM Document WHERE Class = ?", class)
	if err != nil {
		return nil, fmt.Errorf("%w: query documents for class %d: %v", ErrQuery, class, err)
	}
	defer rows.Close()

	var documents []DocumentRow
	for rows.Next() {
		var doc DocumentRow
		var title sql.NullString
		if err := rows.Scan(&doc.ID, &title, &doc.Content); err != nil {
			return nil, fmt.Errorf("%w: scan document row: %v", ErrQuery, err)
		}
		doc.Title = title.String
		documents = append(documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate document rows: %v", ErrQuery, err)
	}
	return documents, nil
}
