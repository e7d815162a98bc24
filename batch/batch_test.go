package batch

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitCharBudgetScenario(t *testing.T) {
	// 5 ≤ 8 fits; 5+5=10 > 8 starts a new batch; 5+3=8 still fits.
	got := Split([]string{"hello", "world", "foo"}, 50, 8)
	want := [][]string{{"hello"}, {"world", "foo"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split = %v, want %v", got, want)
	}
}

func TestSplitItemLimit(t *testing.T) {
	got := Split([]string{"a", "b", "c", "d", "e"}, 2, 1000)
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split = %v, want %v", got, want)
	}
}

func TestSplitOversizedStringGoesAlone(t *testing.T) {
	long := strings.Repeat("x", 20)
	got := Split([]string{"ab", long, "cd", "ef"}, 10, 10)
	want := [][]string{{"ab"}, {long}, {"cd", "ef"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split = %v, want %v", got, want)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	if got := Split(nil, 10, 10); len(got) != 0 {
		t.Fatalf("Split(nil) = %v, want empty", got)
	}
}

func TestSplitInvariants(t *testing.T) {
	items := []string{"one", "twotwo", "threethree", strings.Repeat("z", 30), "x", "yy", "zzz", ""}
	const maxItems, maxChars = 3, 12

	batches := Split(items, maxItems, maxChars)

	var rejoined []string
	for _, b := range batches {
		if len(b) == 0 {
			t.Fatal("empty batch emitted")
		}
		if len(b) > maxItems {
			t.Fatalf("batch %v exceeds item limit", b)
		}
		total := 0
		for _, s := range b {
			total += len(s)
		}
		if len(b) >= 2 && total > maxChars {
			t.Fatalf("multi-item batch %v exceeds char budget (%d)", b, total)
		}
		if len(b) == 1 && len(b[0]) > maxChars {
			// Oversized singletons are allowed, nothing to check.
			_ = b
		}
		rejoined = append(rejoined, b...)
	}
	if !reflect.DeepEqual(rejoined, items) {
		t.Fatalf("concatenation %v does not reproduce input %v", rejoined, items)
	}
}
