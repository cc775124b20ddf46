package errmodel

import (
	"errors"
	"strings"
	"testing"
)

func TestNewAndFrom(t *testing.T) {
	e := InvalidArguments("add_position", "missing required field: ticker")
	if e.Category != CategoryCapability || e.Code != CodeInvalidArguments {
		t.Fatalf("unexpected: %#v", e)
	}
	if got := From(e); got != e {
		t.Fatalf("From should return same error instance")
	}
}

func TestFromPlainError(t *testing.T) {
	e := From(errors.New("boom"))
	if e.Category != CategorySystem || e.Code != "internal" {
		t.Fatalf("unexpected: %#v", e)
	}
	if e.Message != "boom" {
		t.Fatalf("message=%q", e.Message)
	}
}

func TestIsCode(t *testing.T) {
	err := UnknownCapability("frobnicate")
	if !IsCode(err, CodeUnknownCapability) {
		t.Fatal("expected unknown_capability code")
	}
	if !IsCategory(err, CategoryCapability) {
		t.Fatal("expected capability category")
	}
	if IsCode(err, CodeTimeout) {
		t.Fatal("unexpected timeout code")
	}
}

func TestTruncateLongMessage(t *testing.T) {
	e := CapabilityFailure("get_stock_news", strings.Repeat("x", 2000))
	if len(e.Message) != 512 {
		t.Fatalf("message length=%d want 512", len(e.Message))
	}
	if !strings.HasSuffix(e.Message, "...") {
		t.Fatal("expected ellipsis suffix")
	}
}
