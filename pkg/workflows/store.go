// Package workflows persists node-graph workflows, one JSON document per
// workflow, under the application data directory.
package workflows

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noder-app/noder/pkg/sanitize"
)

// Workflow is a saved node graph. Nodes and Edges are opaque to the backend
// and round-trip unchanged for the frontend editor.
type Workflow struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Nodes     []json.RawMessage `json:"nodes"`
	Edges     []json.RawMessage `json:"edges"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Summary is the listing view of a workflow, without the graph payload.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	mu  sync.RWMutex
	dir string
}

func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "workflows")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, sanitize.WorkflowID(id)+".json")
}

// Create makes a new empty workflow with a timestamped default name.
func (s *Store) Create() (*Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	wf := &Workflow{
		ID:        fmt.Sprintf("wf_%d", now.UnixMilli()),
		Name:      "New Workflow " + now.Format("2006-01-02 15:04:05"),
		Nodes:     []json.RawMessage{},
		Edges:     []json.RawMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.writeLocked(wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// Save persists a workflow, refreshing its UpdatedAt stamp.
func (s *Store) Save(wf *Workflow) error {
	if wf == nil || strings.TrimSpace(wf.ID) == "" {
		return fmt.Errorf("workflow has no id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if wf.CreatedAt.IsZero() {
		wf.CreatedAt = time.Now().UTC()
	}
	wf.UpdatedAt = time.Now().UTC()
	return s.writeLocked(wf)
}

func (s *Store) Load(id string) (*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("workflow not found: %s", id)
		}
		return nil, err
	}

	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// List returns summaries of every stored workflow, most recently updated
// first. Unreadable or malformed files are skipped.
func (s *Store) List() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	result := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var wf Workflow
		if err := json.Unmarshal(data, &wf); err != nil {
			continue
		}
		result = append(result, Summary{ID: wf.ID, Name: wf.Name, UpdatedAt: wf.UpdatedAt})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *Store) Rename(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("workflow name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("workflow not found: %s", id)
		}
		return err
	}

	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return err
	}
	wf.Name = name
	wf.UpdatedAt = time.Now().UTC()
	return s.writeLocked(&wf)
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("workflow not found: %s", id)
		}
		return err
	}
	return nil
}

func (s *Store) writeLocked(wf *Workflow) error {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(wf.ID), data, 0644)
}
