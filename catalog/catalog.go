/*
Package catalog implements a small SQLite database recording every container
produced by the encoder, keyed by a BLAKE3 digest of the container file so a
carrier can be identified later without decoding it.
*/
package catalog

import (
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/zeebo/blake3"
)

// Entry describes one recorded container
type Entry struct {
	Path     string
	Digest   string
	Width    int
	Height   int
	Size     int64
	Flags    uint8
	Length   uint32
	Checksum uint32
	Signed   bool
}

// Catalog is the carrier database
type Catalog struct {
	db *sql.DB
}

// Digest returns the hex encoded BLAKE3 digest of a container
func Digest(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Open opens or creates the catalog in file
func Open(file string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS carrier (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, digest TEXT NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, size INTEGER NOT NULL, flags INTEGER NOT NULL, length INTEGER NOT NULL, checksum INTEGER NOT NULL, signed INTEGER NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS carrier_digest ON carrier (digest)"); err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{
		db: db,
	}, nil
}

// Close closes the underlying database
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record stores e, replacing any earlier entry for the same path
func (c *Catalog) Record(e Entry) error {
	if _, err := c.db.Exec("INSERT OR REPLACE INTO carrier (path, digest, width, height, size, flags, length, checksum, signed) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", e.Path, e.Digest, e.Width, e.Height, e.Size, e.Flags, e.Length, e.Checksum, e.Signed); err != nil {
		return err
	}
	return nil
}

type scanner interface {
	Scan(...interface{}) error
}

func scanEntry(s scanner) (*Entry, error) {
	e := new(Entry)
	if err := s.Scan(&e.Path, &e.Digest, &e.Width, &e.Height, &e.Size, &e.Flags, &e.Length, &e.Checksum, &e.Signed); err != nil {
		return nil, err
	}
	return e, nil
}

// Lookup returns the most recent entry with the given digest, or nil if
// there is none
func (c *Catalog) Lookup(digest string) (*Entry, error) {
	e, err := scanEntry(c.db.QueryRow("SELECT path, digest, width, height, size, flags, length, checksum, signed FROM carrier WHERE digest = ? ORDER BY id DESC LIMIT 1", digest))
	switch err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return e, nil
	default:
		return nil, err
	}
}

// List returns every entry ordered by path
func (c *Catalog) List() ([]Entry, error) {
	rows, err := c.db.Query("SELECT path, digest, width, height, size, flags, length, checksum, signed FROM carrier ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}

	return entries, rows.Err()
}
