package analytics

import (
	"testing"
	"time"

	"equity-analytics-lab/internal/domain"
)

func TestComputeBreadth_CountsAndADLine(t *testing.T) {
	d1 := domain.Day(2024, time.May, 1)
	d2 := d1.AddDate(0, 0, 1)
	d3 := d1.AddDate(0, 0, 2)

	bars := []*domain.PriceBar{
		// Benchmark trades every day but never counts.
		flatBar(benchTicker, d1, 100, 0), flatBar(benchTicker, d2, 200, 0), flatBar(benchTicker, d3, 300, 0),
		// UP rises both days.
		flatBar("UP", d1, 10, 0), flatBar("UP", d2, 11, 0), flatBar("UP", d3, 12, 0),
		// DOWN rises then falls.
		flatBar("DOWN", d1, 10, 0), flatBar("DOWN", d2, 11, 0), flatBar("DOWN", d3, 9, 0),
		// GAP only trades the middle day: no consecutive pair, never counted.
		flatBar("GAP", d2, 5, 0),
	}

	rows := ComputeBreadth(bars, benchTicker)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	// First date has nothing to compare against.
	if rows[0].Advancers != 0 || rows[0].Decliners != 0 || rows[0].ADLine != 0 {
		t.Errorf("day 1 = %+v, want zeros", rows[0])
	}
	if rows[1].Advancers != 2 || rows[1].Decliners != 0 {
		t.Errorf("day 2 = %+v, want 2 advancers", rows[1])
	}
	if rows[1].ADLine != 2 {
		t.Errorf("day 2 ADLine = %d, want 2", rows[1].ADLine)
	}
	if rows[2].Advancers != 1 || rows[2].Decliners != 1 {
		t.Errorf("day 3 = %+v, want 1 advancer and 1 decliner", rows[2])
	}
	if rows[2].ADLine != 2 {
		t.Errorf("day 3 ADLine = %d, want 2", rows[2].ADLine)
	}
}

func TestComputeBreadth_Empty(t *testing.T) {
	if rows := ComputeBreadth(nil, benchTicker); rows != nil {
		t.Fatalf("got %v, want nil", rows)
	}
}

func TestComputeBreakouts_HighVolumeBreakout(t *testing.T) {
	start := domain.Day(2024, time.January, 1)

	// 50 quiet bars, then a new high on heavy volume.
	var bars []*domain.PriceBar
	for i := 0; i < 50; i++ {
		bars = append(bars, flatBar("BRK", start.AddDate(0, 0, i), 100, 100))
	}
	spikeDate := start.AddDate(0, 0, 50)
	bars = append(bars, flatBar("BRK", spikeDate, 110, 200))

	stats, stocks := ComputeBreakouts(bars)

	if len(stocks) != 1 {
		t.Fatalf("got %d breakout stocks, want 1", len(stocks))
	}
	if stocks[0].Ticker != "BRK" || !stocks[0].Date.Equal(spikeDate) {
		t.Errorf("breakout = %+v, want BRK on %v", stocks[0], spikeDate)
	}

	var spike *domain.BreakoutStat
	for _, s := range stats {
		if s.Date.Equal(spikeDate) {
			spike = s
		}
	}
	if spike == nil {
		t.Fatal("no stat row for the spike date")
	}
	if spike.BreakoutCount != 1 {
		t.Errorf("BreakoutCount = %d, want 1", spike.BreakoutCount)
	}
	if spike.PctAboveAvgVolume != 100 {
		t.Errorf("PctAboveAvgVolume = %v, want 100", spike.PctAboveAvgVolume)
	}
}

func TestComputeBreakouts_NewHighOnQuietVolumeIsNotBreakout(t *testing.T) {
	start := domain.Day(2024, time.January, 1)

	var bars []*domain.PriceBar
	for i := 0; i < 50; i++ {
		bars = append(bars, flatBar("QT", start.AddDate(0, 0, i), 100, 100))
	}
	// New high, but volume only marginally above its mean.
	bars = append(bars, flatBar("QT", start.AddDate(0, 0, 50), 110, 110))

	_, stocks := ComputeBreakouts(bars)
	if len(stocks) != 0 {
		t.Fatalf("got %d breakout stocks, want 0", len(stocks))
	}
}

func TestComputeBreakouts_HeavyVolumeWithoutNewHighIsNotBreakout(t *testing.T) {
	start := domain.Day(2024, time.January, 1)

	var bars []*domain.PriceBar
	for i := 0; i < 50; i++ {
		bars = append(bars, flatBar("HV", start.AddDate(0, 0, i), 100, 100))
	}
	bars = append(bars, flatBar("HV", start.AddDate(0, 0, 50), 95, 500))

	stats, stocks := ComputeBreakouts(bars)
	if len(stocks) != 0 {
		t.Fatalf("got %d breakout stocks, want 0", len(stocks))
	}
	// The heavy-volume bar still counts toward pct_above_avg_volume.
	last := stats[len(stats)-1]
	if last.PctAboveAvgVolume != 100 {
		t.Errorf("PctAboveAvgVolume = %v, want 100", last.PctAboveAvgVolume)
	}
}

func TestComputeBreakouts_ColdWindowYieldsNoSignals(t *testing.T) {
	start := domain.Day(2024, time.January, 1)

	var bars []*domain.PriceBar
	for i := 0; i < 30; i++ {
		bars = append(bars, flatBar("NEW", start.AddDate(0, 0, i), 100+float64(i), 1000))
	}

	stats, stocks := ComputeBreakouts(bars)
	if len(stocks) != 0 {
		t.Fatalf("got %d breakout stocks before the volume window warmed, want 0", len(stocks))
	}
	for _, s := range stats {
		if s.PctAboveAvgVolume != 0 {
			t.Errorf("stat %v has PctAboveAvgVolume = %v, want 0 before warm-up", s.Date, s.PctAboveAvgVolume)
		}
	}
}

func TestRollingMax(t *testing.T) {
	vals := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	out := rollingMax(vals, 3)

	want := []float64{0, 0, 4, 4, 5, 9, 9, 9}
	for i := 2; i < len(vals); i++ {
		if out[i] != want[i] {
			t.Errorf("rollingMax[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}
