package portfolio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "portfolio.json"), nil)
}

func TestLoadCreatesEmptyBook(t *testing.T) {
	s := newTestStore(t)
	book, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if book.TotalPositions() != 0 {
		t.Fatalf("positions=%d want 0", book.TotalPositions())
	}
	if _, err := os.Stat(s.path); err != nil {
		t.Fatalf("file should exist after load: %v", err)
	}
}

func TestAddAveragesCostAndKeepsDate(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add("AAPL", 100, 10, "2024-01-15"); err != nil {
		t.Fatalf("add: %v", err)
	}
	pos, err := s.Add("aapl ", 50, 16, "2025-06-01")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if pos.Shares != 150 {
		t.Fatalf("shares=%v want 150", pos.Shares)
	}
	if math.Abs(pos.PurchasePrice-12) > 1e-9 {
		t.Fatalf("avg cost=%v want 12", pos.PurchasePrice)
	}
	if pos.PurchaseDate != "2024-01-15" {
		t.Fatalf("date=%s want original 2024-01-15", pos.PurchaseDate)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add("toolong", 10, 5, ""); err == nil {
		t.Fatal("expected invalid ticker error")
	}
	if _, err := s.Add("AAPL", -1, 5, ""); err == nil {
		t.Fatal("expected invalid shares error")
	}
	if _, err := s.Add("AAPL", 10, 0, ""); err == nil {
		t.Fatal("expected invalid price error")
	}
	if _, err := s.Add("AAPL", 10, 5, "01/15/2024"); err == nil {
		t.Fatal("expected invalid date error")
	}
}

func TestRemovePartialKeepsAvgCost(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add("MSFT", 100, 200, "2024-03-01"); err != nil {
		t.Fatalf("add: %v", err)
	}
	pos, err := s.Remove("MSFT", 40)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if pos == nil || pos.Shares != 60 {
		t.Fatalf("remaining=%+v want 60 shares", pos)
	}
	if pos.PurchasePrice != 200 {
		t.Fatalf("avg cost=%v want unchanged 200", pos.PurchasePrice)
	}
}

func TestRemoveAllDeletesPosition(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add("MSFT", 100, 200, "2024-03-01"); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Removing more than held deletes the position.
	pos, err := s.Remove("MSFT", 500)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if pos != nil {
		t.Fatalf("expected full removal, got %+v", pos)
	}
	book, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if book.Has("MSFT") {
		t.Fatal("MSFT should be gone")
	}

	// Shares omitted (0) removes the whole position too.
	if _, err := s.Add("JNJ", 10, 150, "2024-03-01"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.Remove("JNJ", 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	book, _ = s.Load()
	if book.Has("JNJ") {
		t.Fatal("JNJ should be gone")
	}
}

func TestRemoveUnknownTicker(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Remove("ZZZ", 10); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portfolio.json")
	s := NewFileStore(path, nil)
	if _, err := s.Add("BRK.B", 5, 400, "2023-11-20"); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Fresh store over the same file sees the saved position.
	s2 := NewFileStore(path, nil)
	book, err := s2.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	pos := book.Get("BRK.B")
	if pos == nil || pos.Shares != 5 || pos.PurchasePrice != 400 {
		t.Fatalf("round trip: %+v", pos)
	}
	if book.LastUpdated == "" {
		t.Fatal("expected last_updated stamp")
	}
}

func TestTickerValidation(t *testing.T) {
	valid := []string{"A", "AAPL", "GOOGL", "BRK.B"}
	invalid := []string{"", "toolong", "AAPL1", "BRK.BB", ".B", "AAPLGG"}
	for _, tk := range valid {
		if !ValidTicker(tk) {
			t.Errorf("%q should be valid", tk)
		}
	}
	for _, tk := range invalid {
		if ValidTicker(tk) {
			t.Errorf("%q should be invalid", tk)
		}
	}
}
