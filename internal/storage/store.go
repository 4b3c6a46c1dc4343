package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Store persists one JSON document per player under a root directory.
// Writes go through a temp-file rename so a crash mid-write never leaves
// a torn record, and Update serializes read-modify-write cycles behind a
// single mutex so concurrent segment submissions cannot interleave
// partial reward applications.
type Store struct {
	dir Dir

	mu    sync.Mutex
	cache map[string]*PlayerRecord
}

// Dir is the store's root directory.
type Dir string

// Inventory is the persistent economy state of a player.
type Inventory struct {
	Gold            int      `json:"gold"`
	Dust            int      `json:"dust"`
	Heroes          []string `json:"heroes"`
	Turrets         []string `json:"turrets"`
	FortressClasses []string `json:"fortressClasses"`
}

// Progression is the persistent commander level state.
type Progression struct {
	Level int `json:"level"`
	XP    int `json:"xp"`
}

// PlayerRecord is the full persisted document for one player.
type PlayerRecord struct {
	UserID      string      `json:"userId"`
	Inventory   Inventory   `json:"inventory"`
	Progression Progression `json:"progression"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// HasHero reports whether the hero kind is unlocked.
func (r *PlayerRecord) HasHero(kind string) bool {
	return contains(r.Inventory.Heroes, kind)
}

// HasTurret reports whether the turret kind is unlocked.
func (r *PlayerRecord) HasTurret(kind string) bool {
	return contains(r.Inventory.Turrets, kind)
}

// HasFortressClass reports whether the fortress class is unlocked.
func (r *PlayerRecord) HasFortressClass(class string) bool {
	return contains(r.Inventory.FortressClasses, class)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// defaultRecord is the starting loadout for a player seen for the first
// time.
func defaultRecord(userID string) *PlayerRecord {
	return &PlayerRecord{
		UserID: userID,
		Inventory: Inventory{
			Gold:            0,
			Dust:            0,
			Heroes:          []string{"pyromancer", "frostcaller"},
			Turrets:         []string{"bolt", "frost"},
			FortressClasses: []string{"bastion"},
		},
		Progression: Progression{Level: 1},
	}
}

// Open prepares a store rooted at dir, creating the directory as needed.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("storage: root directory must be provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Store{dir: Dir(dir), cache: make(map[string]*PlayerRecord)}, nil
}

func (s *Store) path(userID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, userID)
	return filepath.Join(string(s.dir), safe+".json")
}

// Load returns a copy of the player's record, creating the default
// record on first sight.
func (s *Store) Load(userID string) (PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.loadLocked(userID)
	if err != nil {
		return PlayerRecord{}, err
	}
	return cloneRecord(rec), nil
}

func (s *Store) loadLocked(userID string) (*PlayerRecord, error) {
	if rec, ok := s.cache[userID]; ok {
		return rec, nil
	}
	data, err := os.ReadFile(s.path(userID))
	if errors.Is(err, os.ErrNotExist) {
		rec := defaultRecord(userID)
		s.cache[userID] = rec
		return rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", userID, err)
	}
	var rec PlayerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("storage: parse %s: %w", userID, err)
	}
	rec.UserID = userID
	s.cache[userID] = &rec
	return &rec, nil
}

// Update applies fn to the player's record inside the store lock and
// persists the result atomically. If fn returns an error nothing is
// written and the in-memory record is rolled back, making rejection
// all-or-nothing at this boundary.
func (s *Store) Update(userID string, fn func(*PlayerRecord) error) (PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadLocked(userID)
	if err != nil {
		return PlayerRecord{}, err
	}
	working := cloneRecord(rec)
	if err := fn(&working); err != nil {
		return PlayerRecord{}, err
	}
	working.UpdatedAt = time.Now().UTC()

	if err := s.writeLocked(userID, &working); err != nil {
		return PlayerRecord{}, err
	}
	stored := cloneRecord(&working)
	s.cache[userID] = &stored
	return working, nil
}

func (s *Store) writeLocked(userID string, rec *PlayerRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", userID, err)
	}
	path := s.path(userID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", userID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("storage: commit %s: %w", userID, err)
	}
	return nil
}

func cloneRecord(rec *PlayerRecord) PlayerRecord {
	cloned := *rec
	cloned.Inventory.Heroes = append([]string(nil), rec.Inventory.Heroes...)
	cloned.Inventory.Turrets = append([]string(nil), rec.Inventory.Turrets...)
	cloned.Inventory.FortressClasses = append([]string(nil), rec.Inventory.FortressClasses...)
	return cloned
}
