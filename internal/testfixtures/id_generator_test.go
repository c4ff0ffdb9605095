package testfixtures

import (
	"reflect"
	"testing"
)

func TestIDGeneratorSequenceAndHistory(t *testing.T) {
	gen := NewIDGenerator("schedule")
	if gen.Last() != "" {
		t.Fatalf("expected no identifier before the first call")
	}

	first := gen.Next()
	second := gen.NextFunc()()

	if first != "schedule-1" || second != "schedule-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if gen.Last() != "schedule-2" {
		t.Fatalf("expected Last to be schedule-2, got %q", gen.Last())
	}

	issued := gen.Issued()
	if !reflect.DeepEqual(issued, []string{"schedule-1", "schedule-2"}) {
		t.Fatalf("unexpected history %v", issued)
	}
	issued[0] = "mutated"
	if gen.Issued()[0] != "schedule-1" {
		t.Fatalf("history must be copied")
	}
}

func TestIDGeneratorDefaultsPrefix(t *testing.T) {
	if got := NewIDGenerator("").Next(); got != "id-1" {
		t.Fatalf("expected id-1, got %q", got)
	}
	var gen *IDGenerator
	if got := gen.NextFunc()(); got != "" {
		t.Fatalf("expected empty identifier from nil generator, got %q", got)
	}
}
