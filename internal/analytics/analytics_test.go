package analytics

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/xela07ax/netpulse/internal/domain"
)

func f(v float64) *float64 { return &v }

func sample(ts int64, rtt *float64, sent, lost int64) domain.Sample {
	return domain.Sample{Timestamp: ts, RTTMs: rtt, Sent: sent, Lost: lost}
}

// Пример из описания движка: одна цель, пик потерь на 60-й секунде.
func exampleTarget() domain.Target {
	return domain.Target{Tag: "A", Points: []domain.Sample{
		sample(0, f(10), 10, 0),
		sample(60, nil, 10, 10),
		sample(120, f(12), 10, 0),
	}}
}

func lossValues(series []domain.LossPoint) []any {
	out := make([]any, 0, len(series))
	for _, p := range series {
		if p.Loss == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, *p.Loss)
	}
	return out
}

func TestBuildLossSeries(t *testing.T) {
	t.Run("example", func(t *testing.T) {
		series := BuildLossSeries([]domain.Target{exampleTarget()})
		if len(series) != 3 {
			t.Fatalf("expected 3 points, got %d", len(series))
		}
		want := []float64{0, 100, 0}
		for i, p := range series {
			if p.Timestamp != int64(i*60) || p.Loss == nil || *p.Loss != want[i] {
				t.Fatalf("point %d: expected {%d %v}, got {%d %v}", i, i*60, want[i], p.Timestamp, lossValues(series)[i])
			}
		}
	})

	t.Run("merges targets and keeps one-sided timestamps", func(t *testing.T) {
		a := domain.Target{Tag: "A", Points: []domain.Sample{sample(120, nil, 10, 5), sample(0, nil, 10, 0)}}
		b := domain.Target{Tag: "B", Points: []domain.Sample{sample(0, nil, 30, 10), sample(60, nil, 0, 0)}}
		series := BuildLossSeries([]domain.Target{a, b})
		if len(series) != 3 {
			t.Fatalf("expected 3 points, got %d", len(series))
		}
		if *series[0].Loss != 25 {
			t.Fatalf("expected 10/40 = 25%%, got %v", *series[0].Loss)
		}
		if series[1].Loss != nil {
			t.Fatalf("expected nil loss with sent=0, got %v", *series[1].Loss)
		}
		if series[2].Timestamp != 120 || *series[2].Loss != 50 {
			t.Fatalf("expected {120 50}, got {%d %v}", series[2].Timestamp, lossValues(series)[2])
		}
	})

	t.Run("no targets", func(t *testing.T) {
		series := BuildLossSeries(nil)
		if series == nil || len(series) != 0 {
			t.Fatalf("expected empty non-nil series, got %v", series)
		}
	})
}

func TestDetectAnomalies(t *testing.T) {
	lp := func(ts int64, loss *float64) domain.LossPoint { return domain.LossPoint{Timestamp: ts, Loss: loss} }

	tests := []struct {
		name        string
		series      []domain.LossPoint
		threshold   float64
		granularity int
		rng         *domain.TimeRange
		want        []domain.Interval
		wantMinutes *float64
	}{
		{
			name:        "empty",
			series:      nil,
			threshold:   1,
			granularity: 1,
			want:        nil,
			wantMinutes: nil,
		},
		{
			name:        "isolated point has no interval but counts in minutes",
			series:      []domain.LossPoint{lp(0, f(0)), lp(60, f(100)), lp(120, f(0))},
			threshold:   1,
			granularity: 1,
			want:        nil,
			wantMinutes: f(1),
		},
		{
			name:        "falling back below closes at previous point",
			series:      []domain.LossPoint{lp(0, f(5)), lp(60, f(5)), lp(120, f(0))},
			threshold:   1,
			granularity: 1,
			want:        []domain.Interval{{Start: 0, End: 60}},
			wantMinutes: f(2),
		},
		{
			name:        "trailing run closes at last sample",
			series:      []domain.LossPoint{lp(0, f(0)), lp(300, f(5)), lp(600, f(7))},
			threshold:   1,
			granularity: 5,
			want:        []domain.Interval{{Start: 300, End: 600}},
			wantMinutes: f(10),
		},
		{
			name: "null breaks run",
			series: []domain.LossPoint{
				lp(0, f(2)), lp(60, f(2)), lp(120, nil), lp(180, f(2)), lp(240, f(2)), lp(300, f(0)),
			},
			threshold:   1,
			granularity: 1,
			want:        []domain.Interval{{Start: 0, End: 60}, {Start: 180, End: 240}},
			wantMinutes: f(4),
		},
		{
			name:        "threshold is inclusive",
			series:      []domain.LossPoint{lp(0, f(1)), lp(60, f(1)), lp(120, f(0.99))},
			threshold:   1,
			granularity: 1,
			want:        []domain.Interval{{Start: 0, End: 60}},
			wantMinutes: f(2),
		},
		{
			name:        "unsorted input",
			series:      []domain.LossPoint{lp(180, f(0)), lp(0, f(0)), lp(120, f(50)), lp(60, f(50))},
			threshold:   1,
			granularity: 1,
			want:        []domain.Interval{{Start: 60, End: 120}},
			wantMinutes: f(2),
		},
		{
			name: "range cuts run",
			series: []domain.LossPoint{
				lp(0, f(9)), lp(60, f(9)), lp(120, f(9)), lp(180, f(9)), lp(240, f(9)),
			},
			threshold:   1,
			granularity: 1,
			rng:         domain.NewTimeRange(60, 150),
			want:        []domain.Interval{{Start: 60, End: 120}},
			wantMinutes: f(2),
		},
		{
			name:        "non-positive granularity falls back to one minute",
			series:      []domain.LossPoint{lp(0, f(50))},
			threshold:   1,
			granularity: 0,
			want:        nil,
			wantMinutes: f(1),
		},
		{
			name:        "nothing anomalous",
			series:      []domain.LossPoint{lp(0, f(0)), lp(60, nil)},
			threshold:   1,
			granularity: 1,
			want:        nil,
			wantMinutes: f(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectAnomalies(tt.series, tt.threshold, tt.granularity, tt.rng)
			if got.Intervals == nil {
				t.Fatal("expected non-nil intervals")
			}
			if len(got.Intervals) != len(tt.want) {
				t.Fatalf("expected intervals %v, got %v", tt.want, got.Intervals)
			}
			for i := range tt.want {
				if got.Intervals[i] != tt.want[i] {
					t.Fatalf("expected intervals %v, got %v", tt.want, got.Intervals)
				}
			}
			if (tt.wantMinutes == nil) != (got.Minutes == nil) {
				t.Fatalf("expected minutes %v, got %v", tt.wantMinutes, got.Minutes)
			}
			if tt.wantMinutes != nil && *tt.wantMinutes != *got.Minutes {
				t.Fatalf("expected %v minutes, got %v", *tt.wantMinutes, *got.Minutes)
			}
		})
	}
}

func TestDetectAnomaliesDoesNotMutateInput(t *testing.T) {
	series := []domain.LossPoint{{Timestamp: 60, Loss: f(5)}, {Timestamp: 0, Loss: f(5)}}
	DetectAnomalies(series, 1, 1, nil)
	if series[0].Timestamp != 60 {
		t.Fatal("expected input order to be preserved")
	}
}

// Длительность по всей серии без окна равна длительности с окном [min_ts, max_ts],
// интервалы при этом не выходят за пределы серии.
func TestRangeTotalsConsistency(t *testing.T) {
	series := []domain.LossPoint{
		{Timestamp: 0, Loss: f(3)}, {Timestamp: 60, Loss: f(0)}, {Timestamp: 120, Loss: nil},
		{Timestamp: 180, Loss: f(4)}, {Timestamp: 240, Loss: f(8)}, {Timestamp: 420, Loss: f(1)},
	}
	for _, g := range []int{1, 2, 5} {
		whole := AnomalyMinutes(series, 1, g, nil)
		ranged := AnomalyMinutes(series, 1, g, domain.NewTimeRange(0, 420))
		if whole == nil || ranged == nil || *whole != *ranged {
			t.Fatalf("granularity %d: expected %v minutes, got %v", g, whole, ranged)
		}
		ivs := LossIntervals(series, 1, g)
		if len(ivs) != 1 || ivs[0] != (domain.Interval{Start: 180, End: 420}) {
			t.Fatalf("granularity %d: expected [[180 420]], got %v", g, ivs)
		}
	}
}

func TestTargetStats(t *testing.T) {
	points := []domain.Sample{
		sample(0, f(10), 10, 0),
		sample(60, nil, 10, 10),
		sample(120, f(12), 10, 0),
		{Timestamp: 180, RTTMs: f(30), SentMissing: true, Lost: 7},
		sample(240, f(math.NaN()), 0, 0),
	}

	st := TargetStats("A", points, nil)
	if st.Tag != "A" || st.Count != 3 {
		t.Fatalf("expected 3 valid rtts, got %+v", st)
	}
	if *st.Avg != 52.0/3 || *st.Min != 10 || *st.Max != 30 {
		t.Fatalf("unexpected avg/min/max: %v %v %v", *st.Avg, *st.Min, *st.Max)
	}
	if st.Sent != 30 || st.Lost != 10 {
		t.Fatalf("expected sent/lost 30/10 excluding undefined sent, got %d/%d", st.Sent, st.Lost)
	}

	windowed := TargetStats("A", points, domain.NewTimeRange(60, 120))
	if windowed.Count != 1 || *windowed.Avg != 12 || *windowed.LossRate != 50 {
		t.Fatalf("unexpected windowed stats: %+v", windowed)
	}

	empty := TargetStats("A", points, domain.NewTimeRange(1000, 2000))
	if empty.Avg != nil || empty.Min != nil || empty.Max != nil || empty.LossRate != nil {
		t.Fatalf("expected nil stats for an empty window, got %+v", empty)
	}
}

func TestStatsFullRangeEqualsUnrestricted(t *testing.T) {
	tg := exampleTarget()
	full, ok := FullRange([]domain.Target{tg})
	if !ok {
		t.Fatal("expected a full range")
	}
	a := TargetStats(tg.Tag, tg.Points, nil)
	b := TargetStats(tg.Tag, tg.Points, domain.NewTimeRange(float64(full.Min), float64(full.Max)))
	if *a.Avg != *b.Avg || a.Sent != b.Sent || a.Lost != b.Lost {
		t.Fatalf("expected identical stats, got %+v and %+v", a, b)
	}
}

func TestMergeStatsWeightedAverage(t *testing.T) {
	merged := MergeStats([]domain.Stats{
		{Tag: "A", Count: 10, Avg: f(20), Min: f(5), Max: f(40), Sent: 100, Lost: 10},
		{Tag: "B", Count: 30, Avg: f(10), Min: f(2), Max: f(25), Sent: 300, Lost: 0},
		{Tag: "C"},
	})
	if *merged.Avg != 12.5 {
		t.Fatalf("expected count-weighted avg 12.5, got %v", *merged.Avg)
	}
	if *merged.Min != 2 || *merged.Max != 40 || merged.Count != 40 {
		t.Fatalf("unexpected merged extremes: %+v", merged)
	}
	if *merged.LossRate != 2.5 {
		t.Fatalf("expected 10/400 = 2.5%%, got %v", *merged.LossRate)
	}

	none := MergeStats(nil)
	if none.Avg != nil || none.LossRate != nil || none.Count != 0 {
		t.Fatalf("expected empty merged stats, got %+v", none)
	}
}

// Loss rate по A∪B считается из суммарных счетчиков, а не из процентов A и B.
func TestMergeLossAdditivity(t *testing.T) {
	targets := []domain.Target{
		{Tag: "A", Points: []domain.Sample{sample(0, f(1), 10, 9)}},
		{Tag: "B", Points: []domain.Sample{sample(0, f(1), 90, 1)}},
	}
	a := Compute(Input{Targets: targets, Active: domain.NewActiveTargetSet("A"), Zoom: domain.DefaultZoom(), Threshold: 1, Granularity: 1})
	b := Compute(Input{Targets: targets, Active: domain.NewActiveTargetSet("B"), Zoom: domain.DefaultZoom(), Threshold: 1, Granularity: 1})
	all := Compute(Input{Targets: targets, Active: domain.AllActive(targets), Zoom: domain.DefaultZoom(), Threshold: 1, Granularity: 1})

	want := float64(a.Merged.Lost+b.Merged.Lost) / float64(a.Merged.Sent+b.Merged.Sent) * 100
	if *all.Merged.LossRate != want {
		t.Fatalf("expected %v, got %v", want, *all.Merged.LossRate)
	}
	if *all.Merged.LossRate == (*a.Merged.LossRate+*b.Merged.LossRate)/2 {
		t.Fatal("expected loss rate not to be an average of percentages")
	}
}

func TestMapZoom(t *testing.T) {
	full := domain.FullRange{Min: 1000, Max: 2000}

	w := MapZoom(full, true, domain.ZoomSelection{StartPct: 0, EndPct: 0})
	if w == nil || *w.Start != 1000 || *w.End != 1000 {
		t.Fatalf("expected a degenerate window at min_ts, got %+v", w)
	}

	w = MapZoom(full, true, domain.ZoomSelection{StartPct: 25, EndPct: 50})
	if *w.Start != 1250 || *w.End != 1500 {
		t.Fatalf("expected [1250, 1500], got [%v, %v]", *w.Start, *w.End)
	}

	if MapZoom(domain.FullRange{Min: 5, Max: 5}, true, domain.DefaultZoom()) != nil {
		t.Fatal("expected zero span to mean no restriction")
	}
	if MapZoom(domain.FullRange{}, false, domain.DefaultZoom()) != nil {
		t.Fatal("expected no points to mean no restriction")
	}
}

func TestFullRange(t *testing.T) {
	r, ok := FullRange([]domain.Target{
		{Tag: "A", Points: []domain.Sample{sample(300, nil, 0, 0), sample(100, nil, 0, 0)}},
		{Tag: "B"},
		{Tag: "C", Points: []domain.Sample{sample(900, nil, 0, 0)}},
	})
	if !ok || r.Min != 100 || r.Max != 900 {
		t.Fatalf("expected [100, 900], got %+v ok=%v", r, ok)
	}
	if _, ok := FullRange(nil); ok {
		t.Fatal("expected no range without points")
	}
}

func TestComputeExample(t *testing.T) {
	targets := []domain.Target{exampleTarget()}
	snap := Compute(Input{
		Targets:     targets,
		Active:      domain.AllActive(targets),
		Zoom:        domain.DefaultZoom(),
		Threshold:   domain.DefaultLossThreshold,
		Granularity: 1,
	})

	// Одиночная аномальная точка дает нулевой интервал, он отбрасывается
	if len(snap.LossIntervals) != 0 {
		t.Fatalf("expected no intervals, got %v", snap.LossIntervals)
	}
	if snap.AnomalyMinutes == nil || *snap.AnomalyMinutes != 1 {
		t.Fatalf("expected 1 anomaly minute, got %v", snap.AnomalyMinutes)
	}
	if *snap.Merged.Avg != 11 || snap.Merged.Count != 2 {
		t.Fatalf("expected merged avg 11 over 2 samples, got %+v", snap.Merged)
	}
	if snap.FullRange == nil || snap.FullRange.Max != 120 {
		t.Fatalf("expected full range up to 120, got %+v", snap.FullRange)
	}
}

func TestComputeEmptyInputs(t *testing.T) {
	for name, in := range map[string]Input{
		"no targets":    {Zoom: domain.DefaultZoom(), Threshold: 1},
		"none active":   {Targets: []domain.Target{exampleTarget()}, Zoom: domain.DefaultZoom(), Threshold: 1},
		"no points":     {Targets: []domain.Target{{Tag: "A"}}, Active: domain.NewActiveTargetSet("A"), Threshold: 1},
		"zero zoom":     {Targets: []domain.Target{exampleTarget()}, Active: domain.NewActiveTargetSet("A"), Threshold: 1},
		"negative gran": {Targets: []domain.Target{exampleTarget()}, Active: domain.NewActiveTargetSet("A"), Granularity: -5},
	} {
		t.Run(name, func(t *testing.T) {
			snap := Compute(in)
			if snap.LossSeries == nil || snap.LossIntervals == nil || snap.PerTarget == nil {
				t.Fatalf("expected non-nil slices, got %+v", snap)
			}
			if snap.Granularity < 1 {
				t.Fatalf("expected normalized granularity, got %d", snap.Granularity)
			}
			if _, err := json.Marshal(snap); err != nil {
				t.Fatalf("expected snapshot to marshal, got %v", err)
			}
		})
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	targets := []domain.Target{{Tag: "A", Points: []domain.Sample{sample(120, f(1), 1, 1), sample(0, f(2), 1, 0)}}}
	Compute(Input{Targets: targets, Active: domain.AllActive(targets), Zoom: domain.DefaultZoom(), Threshold: 1})
	if targets[0].Points[0].Timestamp != 120 {
		t.Fatal("expected input points untouched")
	}
}

func TestComputeIdempotent(t *testing.T) {
	targets := []domain.Target{
		exampleTarget(),
		{Tag: "B", Points: []domain.Sample{sample(0, f(7), 20, 1), sample(60, f(9), 20, 0), sample(180, nil, 20, 20)}},
	}
	in := Input{Targets: targets, Active: domain.AllActive(targets), Zoom: domain.ZoomSelection{StartPct: 10, EndPct: 90}, Threshold: 1, Granularity: 1}

	first, err := json.Marshal(Compute(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := json.Marshal(Compute(in))
	if string(first) != string(second) {
		t.Fatalf("expected identical output:\n%s\n%s", first, second)
	}
}

func TestChooseGranularity(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 1},
		{24 * time.Hour, 1},
		{48 * time.Hour, 2},
		{72*time.Hour + time.Minute, 5},
		{7 * 24 * time.Hour, 10},
		{30 * 24 * time.Hour, 30},
		{365 * 24 * time.Hour, 720},
		{3 * 365 * 24 * time.Hour, 1440},
		{5 * 365 * 24 * time.Hour, 1825},
	}
	for _, tt := range tests {
		if got := ChooseGranularity(tt.d); got != tt.want {
			t.Fatalf("ChooseGranularity(%v): expected %d, got %d", tt.d, tt.want, got)
		}
	}
}
