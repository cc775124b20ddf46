package portfolio

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore persists a Book as a JSON file. All mutations take a single
// mutex: the file is shared state and every write is a read-modify-write.
type FileStore struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
	now  func() time.Time
}

// NewFileStore creates a store backed by path. The file is created on first
// Load or mutation if absent.
func NewFileStore(path string, log *slog.Logger) *FileStore {
	if log == nil {
		log = slog.Default()
	}
	return &FileStore{path: path, log: log, now: time.Now}
}

// Load reads the book from disk. A missing file yields an empty book, which
// is written out so subsequent readers see a valid file.
func (s *FileStore) Load() (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() (*Book, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.log.Warn("portfolio file not found, creating empty book", "path", s.path)
		book := &Book{Positions: []Position{}}
		if err := s.saveLocked(book); err != nil {
			return nil, err
		}
		return book, nil
	}
	if err != nil {
		return nil, fmt.Errorf("portfolio: read %s: %w", s.path, err)
	}
	var book Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("portfolio: parse %s: %w", s.path, err)
	}
	return &book, nil
}

// Save writes the book atomically: temp file in the same directory, then
// rename. LastUpdated is stamped on every save.
func (s *FileStore) Save(book *Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(book)
}

func (s *FileStore) saveLocked(book *Book) error {
	book.LastUpdated = s.now().Format(time.RFC3339)
	data, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return fmt.Errorf("portfolio: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("portfolio: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".portfolio-*.json")
	if err != nil {
		return fmt.Errorf("portfolio: temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("portfolio: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("portfolio: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("portfolio: rename: %w", err)
	}
	s.log.Debug("saved portfolio", "path", s.path, "positions", book.TotalPositions())
	return nil
}

// Add inserts a new position or merges into an existing one. Merging computes
// the weighted-average cost across old and new shares and keeps the original
// purchase date. purchaseDate defaults to today when empty.
func (s *FileStore) Add(ticker string, shares, price float64, purchaseDate string) (*Position, error) {
	ticker = SanitizeTicker(ticker)
	if purchaseDate == "" {
		purchaseDate = s.now().Format(dateLayout)
	}
	candidate := Position{Ticker: ticker, Shares: shares, PurchasePrice: price, PurchaseDate: purchaseDate}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	book, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	var result *Position
	if existing := book.Get(ticker); existing != nil {
		totalShares := existing.Shares + shares
		totalCost := existing.Shares*existing.PurchasePrice + shares*price
		existing.Shares = totalShares
		existing.PurchasePrice = totalCost / totalShares
		result = existing
		s.log.Info("merged position", "ticker", ticker, "shares", totalShares, "avg_cost", existing.PurchasePrice)
	} else {
		book.Positions = append(book.Positions, candidate)
		result = book.Get(ticker)
		s.log.Info("added position", "ticker", ticker, "shares", shares, "price", price)
	}

	if err := s.saveLocked(book); err != nil {
		return nil, err
	}
	out := *result
	return &out, nil
}

// Remove deletes shares from a position. shares <= 0 or >= the held amount
// removes the whole position; otherwise the position is reduced and its
// average cost left unchanged. Returns the updated position, nil when the
// position was removed entirely.
func (s *FileStore) Remove(ticker string, shares float64) (*Position, error) {
	ticker = SanitizeTicker(ticker)
	if !ValidTicker(ticker) {
		return nil, fmt.Errorf("portfolio: invalid ticker symbol: %s", ticker)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	book, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	position := book.Get(ticker)
	if position == nil {
		return nil, fmt.Errorf("portfolio: position %s not found", ticker)
	}

	if shares <= 0 || shares >= position.Shares {
		kept := book.Positions[:0]
		for _, p := range book.Positions {
			if p.Ticker != ticker {
				kept = append(kept, p)
			}
		}
		book.Positions = kept
		s.log.Info("removed position", "ticker", ticker)
		if err := s.saveLocked(book); err != nil {
			return nil, err
		}
		return nil, nil
	}

	position.Shares -= shares
	s.log.Info("reduced position", "ticker", ticker, "removed", shares, "remaining", position.Shares)
	if err := s.saveLocked(book); err != nil {
		return nil, err
	}
	out := *position
	return &out, nil
}
