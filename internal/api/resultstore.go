package api

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/atlas-desktop/structurelab/pkg/types"
)

// resultEntry is the list-view summary kept in the index; the full trade
// ledger only gets loaded from disk on a Get/Trades call.
type resultEntry struct {
	ID           string    `json:"id"`
	StrategyName string    `json:"strategy_name"`
	Symbol       string    `json:"symbol"`
	TotalTrades  int       `json:"total_trades"`
	FinalBalance string    `json:"final_balance"`
	CompletedAt  time.Time `json:"completed_at"`
}

// ResultStore persists BacktestResults to disk, one JSON file per run ID, and
// serves them back out. It never runs a backtest itself — cmd/backtest calls
// Save after a run completes, and the reporting server only ever reads.
type ResultStore struct {
	mu    sync.RWMutex
	dir   string
	index map[string]resultEntry
}

// NewResultStore opens (creating if necessary) a result store rooted at dir.
func NewResultStore(dir string) (*ResultStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("result store: create directory: %w", err)
	}
	rs := &ResultStore{dir: dir, index: make(map[string]resultEntry)}
	if err := rs.loadIndex(); err != nil {
		return nil, err
	}
	return rs, nil
}

// Save persists result under id, completing at the given timestamp, and
// updates the index.
func (rs *ResultStore) Save(id string, symbol string, result types.BacktestResult, completedAt time.Time) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("result store: marshal result: %w", err)
	}
	if err := os.WriteFile(rs.resultPath(id), raw, 0644); err != nil {
		return fmt.Errorf("result store: write result: %w", err)
	}

	rs.index[id] = resultEntry{
		ID:           id,
		StrategyName: result.StrategyName,
		Symbol:       symbol,
		TotalTrades:  result.Metrics.TotalTrades,
		FinalBalance: result.FinalBalance.String(),
		CompletedAt:  completedAt,
	}
	return rs.saveIndex()
}

// List returns every stored run's summary, most recently completed first.
func (rs *ResultStore) List() []resultEntry {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	entries := make([]resultEntry, 0, len(rs.index))
	for _, e := range rs.index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CompletedAt.After(entries[j].CompletedAt) })
	return entries
}

// Get loads the full BacktestResult for id.
func (rs *ResultStore) Get(id string) (types.BacktestResult, bool, error) {
	rs.mu.RLock()
	_, known := rs.index[id]
	rs.mu.RUnlock()
	if !known {
		return types.BacktestResult{}, false, nil
	}

	raw, err := os.ReadFile(rs.resultPath(id))
	if err != nil {
		return types.BacktestResult{}, false, fmt.Errorf("result store: read result: %w", err)
	}
	var result types.BacktestResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return types.BacktestResult{}, false, fmt.Errorf("result store: parse result: %w", err)
	}
	return result, true, nil
}

func (rs *ResultStore) resultPath(id string) string {
	return filepath.Join(rs.dir, id+".json")
}

func (rs *ResultStore) indexPath() string {
	return filepath.Join(rs.dir, "index.json")
}

func (rs *ResultStore) loadIndex() error {
	raw, err := os.ReadFile(rs.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("result store: read index: %w", err)
	}
	return json.Unmarshal(raw, &rs.index)
}

func (rs *ResultStore) saveIndex() error {
	raw, err := json.MarshalIndent(rs.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(rs.indexPath(), raw, 0644)
}
