package history

import (
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
)

func TestWindowEvictsOldestFIFO(t *testing.T) {
	w := NewWindow(3)
	for i := 0; i < 5; i++ {
		w.Push(Point{
			Timestamp: strconv.Itoa(i),
			Straddles: map[string]decimal.Decimal{"nifty": decimal.NewFromInt(int64(i))},
		})
	}

	if w.Len() != 3 {
		t.Fatalf("len = %d, want 3", w.Len())
	}
	points := w.Points()
	for i, want := range []string{"2", "3", "4"} {
		if points[i].Timestamp != want {
			t.Errorf("points[%d].Timestamp = %q, want %q", i, points[i].Timestamp, want)
		}
	}
}

func TestWindowDefaultCapacity(t *testing.T) {
	w := NewWindow(0)
	for i := 0; i < DefaultCapacity+10; i++ {
		w.Push(Point{Timestamp: strconv.Itoa(i)})
	}
	if w.Len() != DefaultCapacity {
		t.Fatalf("len = %d, want %d", w.Len(), DefaultCapacity)
	}
	if got := w.Points()[0].Timestamp; got != "10" {
		t.Fatalf("oldest retained = %q, want 10", got)
	}
}

func TestWindowPointsIsCopy(t *testing.T) {
	w := NewWindow(2)
	w.Push(Point{Timestamp: "a"})
	points := w.Points()
	points[0].Timestamp = "mutated"
	if w.Points()[0].Timestamp != "a" {
		t.Fatal("Points must return a copy")
	}
}
