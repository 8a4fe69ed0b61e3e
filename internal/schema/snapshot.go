// Package schema captures a read-only view of the connected server (its
// databases and collections) that the language service can complete from.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/sync/errgroup"

	"github.com/nhath/ezmongo/internal/db"
)

// maxConcurrentLists bounds concurrent listCollections calls.
const maxConcurrentLists = 4

// Snapshot is the connection context at one point in time.
type Snapshot struct {
	Host        string              `json:"host"`
	Database    string              `json:"database"`
	Databases   []string            `json:"databases"`
	Collections map[string][]string `json:"collections"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// CollectionsOf returns the collections of database, or of the active one
// when database is empty.
func (s *Snapshot) CollectionsOf(database string) []string {
	if s == nil {
		return nil
	}
	if database == "" {
		database = s.Database
	}
	return s.Collections[database]
}

// DefaultPath returns the XDG state path of the snapshot.
func DefaultPath() (string, error) {
	return xdg.StateFile("ezmongo/schema.json")
}

// Load lists every database of client and their collections.
func Load(ctx context.Context, client db.Client, host, database string) (*Snapshot, error) {
	names, err := client.ListDatabases(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}
	if database != "" && !contains(names, database) {
		names = append(names, database)
	}
	sort.Strings(names)

	snap := &Snapshot{
		Host:        host,
		Database:    database,
		Databases:   names,
		Collections: make(map[string][]string, len(names)),
		UpdatedAt:   time.Now().UTC(),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLists)
	for _, name := range names {
		g.Go(func() error {
			colls, err := client.ListCollections(gctx, name)
			if err != nil {
				return fmt.Errorf("listing collections of %s: %w", name, err)
			}
			sort.Strings(colls)
			mu.Lock()
			snap.Collections[name] = colls
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Write stores the snapshot at path. The file is replaced atomically so a
// watcher never reads a partial snapshot.
func (s *Snapshot) Write(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".schema-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Read loads a snapshot written by Write.
func Read(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if s.Collections == nil {
		s.Collections = map[string][]string{}
	}
	return &s, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
