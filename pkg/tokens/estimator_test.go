package tokens

import "testing"

func TestNewTikTokenEstimator(t *testing.T) {
	est, err := NewTikTokenEstimator("gpt-4")
	if err != nil {
		t.Skipf("tiktoken not available for model: %v", err)
	}
	if got := est("hello world"); got <= 0 {
		t.Fatalf("got %d tokens, want > 0", got)
	}
}

func TestHeuristic(t *testing.T) {
	est := Heuristic()
	if got := est(""); got != 0 {
		t.Fatalf("empty text = %d tokens", got)
	}
	if got := est("twelve chars"); got != 3 {
		t.Fatalf("got %d tokens, want 3", got)
	}
}
