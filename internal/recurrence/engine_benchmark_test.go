package recurrence

import (
	"testing"

	"github.com/example/monitor-scheduler/internal/interval"
)

func BenchmarkEngineExpand(b *testing.B) {
	engine := NewEngine(interval.Bogota())
	base := tuesdayShift()
	from := interval.Date{Year: 2024, Month: 1, Day: 1}
	to := from.AddDays(365)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		occurrences, err := engine.Expand(base, from, to)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) == 0 {
			b.Fatal("expected occurrences to be generated")
		}
	}
}
