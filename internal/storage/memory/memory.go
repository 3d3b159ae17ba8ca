package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/storage"
)

// Store keeps transactions and schedules in process memory. It has the
// same semantics as the SQLite repository.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	items     map[int64]core.Transaction
	schedules map[string]core.Schedule
}

func New() *Store {
	return &Store{
		nextID:    1,
		items:     make(map[int64]core.Transaction),
		schedules: make(map[string]core.Schedule),
	}
}

// NewFromFile seeds a store from a text file with one transaction per line:
//
//	TYPE|amount|category|description|YYYY-MM-DD
//
// Blank lines and lines starting with # are ignored. A missing file yields
// an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	for i, line := range readLines(path) {
		tx, err := parseSeedLine(line)
		if err != nil {
			return nil, fmt.Errorf("seed line %d: %w", i+1, err)
		}
		if _, err := s.UpsertTransaction(context.Background(), tx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) ListTransactions(ctx context.Context, filter *core.TransactionType) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, tx := range s.items {
		if filter != nil && tx.Type != *filter {
			continue
		}
		out = append(out, tx)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (s *Store) UpsertTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.IsNew() {
		tx.ID = s.nextID
	}
	if tx.ID >= s.nextID {
		s.nextID = tx.ID + 1
	}
	tx.Date = tx.Date.Truncate(time.Millisecond)
	s.items[tx.ID] = tx
	return tx.ID, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) SumAmount(ctx context.Context, typ core.TransactionType, period core.Period) (core.Money, error) {
	if err := ctx.Err(); err != nil {
		return core.Money{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var total core.Money
	for _, tx := range s.items {
		if tx.Type == typ && period.Contains(tx.Date) {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

func (s *Store) InsertScheduleIfAbsent(ctx context.Context, sc core.Schedule) (core.Schedule, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.Schedule{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.schedules[sc.Name]; ok {
		return existing, false, nil
	}
	sc.LastFired = time.Time{}
	s.schedules[sc.Name] = sc
	return sc, true, nil
}

func (s *Store) GetSchedule(ctx context.Context, name string) (core.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return core.Schedule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schedules[name]
	if !ok {
		return core.Schedule{}, storage.ErrNotFound
	}
	return sc, nil
}

func (s *Store) ListDueSchedules(ctx context.Context, now time.Time) ([]core.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]core.Schedule, 0, len(s.schedules))
	for _, sc := range s.schedules {
		if sc.Due(now) {
			out = append(out, sc)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextRun.Equal(out[j].NextRun) {
			return out[i].NextRun.Before(out[j].NextRun)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) UpdateSchedule(ctx context.Context, sc core.Schedule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.schedules[sc.Name]
	if !ok {
		return storage.ErrNotFound
	}
	existing.NextRun = sc.NextRun
	existing.LastFired = sc.LastFired
	s.schedules[sc.Name] = existing
	return nil
}

func parseSeedLine(line string) (core.Transaction, error) {
	parts := strings.Split(line, "|")
	if len(parts) != 5 {
		return core.Transaction{}, fmt.Errorf("expected 5 fields, got %d", len(parts))
	}
	typ, err := core.ParseTransactionType(parts[0])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(parts[1])
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[4]), time.Local)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date: %w", err)
	}
	tx := core.Transaction{
		Amount:      amount,
		Category:    parts[2],
		Description: parts[3],
		Date:        date,
		Type:        typ,
	}.Normalize()
	return tx, tx.Validate()
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
