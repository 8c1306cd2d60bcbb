package chain

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fleet-monitor/telemetry/internal/domain"
	"fleet-monitor/telemetry/internal/strategy"
)

var testLogger = slog.New(slog.DiscardHandler)

// recordingSink collects alerts; Publish may be called concurrently.
type recordingSink struct {
	mu     sync.Mutex
	alerts []domain.Alert
	failOn map[string]error
}

func (s *recordingSink) Publish(_ context.Context, a domain.Alert) error {
	if err := s.failOn[a.Series]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *recordingSink) byType(t domain.AlertType) []domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Alert
	for _, a := range s.alerts {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

// spyStage records the history it was handed.
type spyStage struct {
	calls int
	got   []domain.Reading
}

func (s *spyStage) Handle(_ context.Context, history []domain.Reading) error {
	s.calls++
	s.got = history
	return nil
}

func readings(temps, hums []float64) []domain.Reading {
	out := make([]domain.Reading, len(temps))
	for i := range temps {
		out[i] = domain.Reading{Timestamp: int64(i + 1), Temperature: temps[i], Humidity: hums[i]}
	}
	return out
}

func TestExtractSeries(t *testing.T) {
	history := []domain.Reading{
		{Timestamp: 1, Temperature: 20, Humidity: 50},
		{Timestamp: 2, Temperature: 22, Humidity: 55},
	}
	temps, hums := ExtractSeries(history)

	if len(temps) != len(history) || len(hums) != len(history) {
		t.Fatalf("lengths = %d/%d, want %d", len(temps), len(hums), len(history))
	}
	for i, r := range history {
		if temps[i] != r.Temperature || hums[i] != r.Humidity {
			t.Errorf("index %d = (%v, %v), want (%v, %v)", i, temps[i], hums[i], r.Temperature, r.Humidity)
		}
	}
}

func TestExtractSeriesEmpty(t *testing.T) {
	temps, hums := ExtractSeries(nil)
	if len(temps) != 0 || len(hums) != 0 {
		t.Errorf("got %v %v, want empty series", temps, hums)
	}
}

func TestTail(t *testing.T) {
	history := readings([]float64{1, 2, 3, 4, 5}, []float64{1, 2, 3, 4, 5})

	tests := []struct {
		n         int
		wantLen   int
		wantFirst float64
	}{
		{n: 3, wantLen: 3, wantFirst: 3},
		{n: 5, wantLen: 5, wantFirst: 1},
		{n: 12, wantLen: 5, wantFirst: 1},
		{n: 0, wantLen: 0},
	}
	for _, tt := range tests {
		got := Tail(history, tt.n)
		if len(got) != tt.wantLen {
			t.Errorf("Tail(%d) len = %d, want %d", tt.n, len(got), tt.wantLen)
			continue
		}
		if tt.wantLen > 0 && got[0].Temperature != tt.wantFirst {
			t.Errorf("Tail(%d) first = %v, want %v", tt.n, got[0].Temperature, tt.wantFirst)
		}
	}
}

func TestStatisticsStageRequiresStrategy(t *testing.T) {
	next := &spyStage{}
	stage := NewStatisticsStage(testLogger, next)

	err := stage.Handle(context.Background(), readings([]float64{20}, []float64{50}))
	if !errors.Is(err, ErrNoStrategy) {
		t.Fatalf("Handle() error = %v, want ErrNoStrategy", err)
	}
	if next.calls != 0 {
		t.Errorf("successor called %d times after failure", next.calls)
	}
}

func TestStatisticsStageRunsStrategyAndForwards(t *testing.T) {
	next := &spyStage{}
	stage := NewStatisticsStage(testLogger, next)
	mean := strategy.MeanDeviation{}
	stage.SetStrategy(mean)

	history := []domain.Reading{{Timestamp: 1, Temperature: 20, Humidity: 50}}
	if err := stage.Handle(context.Background(), history); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if stage.Strategy() != mean {
		t.Errorf("Strategy() = %v, want the one set", stage.Strategy())
	}
	res := stage.LastResult()
	if temp := res.Temperature(); temp.Mean != 20 || temp.StdDev != 0 {
		t.Errorf("temperature = %+v, want mean 20 stddev 0", temp)
	}
	if hum := res.Humidity(); hum.Mean != 50 || hum.StdDev != 0 {
		t.Errorf("humidity = %+v, want mean 50 stddev 0", hum)
	}
	if next.calls != 1 || len(next.got) != 1 {
		t.Errorf("successor calls = %d with %d readings, want 1 and 1", next.calls, len(next.got))
	}
}

func TestStatisticsStageEmptyHistory(t *testing.T) {
	stage := NewStatisticsStage(testLogger, nil)
	stage.SetStrategy(strategy.MaxMin{})

	err := stage.Handle(context.Background(), nil)
	if !errors.Is(err, strategy.ErrEmptySeries) {
		t.Errorf("Handle() error = %v, want ErrEmptySeries", err)
	}
}

func TestStatisticsStageStrategySwap(t *testing.T) {
	stage := NewStatisticsStage(testLogger, nil)
	history := readings([]float64{1, 2, 3}, []float64{4, 5, 6})

	for _, st := range strategy.All() {
		stage.SetStrategy(st)
		if err := stage.Handle(context.Background(), history); err != nil {
			t.Fatalf("%s: Handle() error = %v", st.Name(), err)
		}
		if got := stage.LastResult().Strategy; got != st.Name() {
			t.Errorf("LastResult().Strategy = %s, want %s", got, st.Name())
		}
	}
}

func TestThresholdStage(t *testing.T) {
	tests := []struct {
		name      string
		temps     []float64
		wantAlert bool
	}{
		{"empty history", nil, false},
		{"below", []float64{20, 30}, false},
		{"exactly at threshold", []float64{35}, false},
		{"last above", []float64{20, 40}, true},
		{"earlier above only", []float64{40, 20}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			next := &spyStage{}
			stage := NewThresholdStage(sink, testLogger, next)

			history := readings(tt.temps, make([]float64, len(tt.temps)))
			if err := stage.Handle(context.Background(), history); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			alerts := sink.byType(domain.AlertTemperatureThreshold)
			if (len(alerts) == 1) != tt.wantAlert || len(alerts) > 1 {
				t.Fatalf("alerts = %v, want alert: %v", alerts, tt.wantAlert)
			}
			if tt.wantAlert {
				a := alerts[0]
				if a.Value != 40 || a.Limit != TemperatureThreshold {
					t.Errorf("alert = %+v, want value 40 limit 35", a)
				}
			}
			if next.calls != 1 {
				t.Errorf("successor calls = %d, want 1", next.calls)
			}
		})
	}
}

func TestThresholdStageSinkFailureStillForwards(t *testing.T) {
	sink := &recordingSink{failOn: map[string]error{domain.SeriesTemperature: errors.New("down")}}
	next := &spyStage{}
	stage := NewThresholdStage(sink, testLogger, next)

	if err := stage.Handle(context.Background(), readings([]float64{41}, []float64{0})); err != nil {
		t.Fatalf("Handle() error = %v, want nil", err)
	}
	if next.calls != 1 {
		t.Errorf("successor calls = %d, want 1", next.calls)
	}
}

func TestVariationStage(t *testing.T) {
	tests := []struct {
		name     string
		temps    []float64
		hums     []float64
		wantTemp bool
		wantHum  bool
	}{
		{"single reading", []float64{20}, []float64{50}, false, false},
		{"temperature jump", []float64{20, 23}, []float64{50, 50}, true, false},
		{"temperature small", []float64{20, 21}, []float64{50, 51}, false, false},
		{"exactly delta", []float64{20, 22}, []float64{50, 52}, false, false},
		{"humidity drop", []float64{20, 20}, []float64{60, 50}, false, true},
		{"both", []float64{10, 15}, []float64{40, 30}, true, true},
		// only the last six readings count: first is 0, sub-window starts at 30
		{"outside sub-window", []float64{0, 30, 30, 30, 30, 30, 31}, []float64{0, 50, 50, 50, 50, 50, 50}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			stage := NewVariationStage(sink, testLogger)

			if err := stage.Handle(context.Background(), readings(tt.temps, tt.hums)); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := len(sink.byType(domain.AlertTemperatureVariation)) == 1; got != tt.wantTemp {
				t.Errorf("temperature alert = %v, want %v", got, tt.wantTemp)
			}
			if got := len(sink.byType(domain.AlertHumidityVariation)) == 1; got != tt.wantHum {
				t.Errorf("humidity alert = %v, want %v", got, tt.wantHum)
			}
		})
	}
}

func TestVariationStageAlertValue(t *testing.T) {
	sink := &recordingSink{}
	stage := NewVariationStage(sink, testLogger)

	if err := stage.Handle(context.Background(), readings([]float64{20, 23}, []float64{50, 50})); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	alerts := sink.byType(domain.AlertTemperatureVariation)
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].Value != 3 || alerts[0].Series != domain.SeriesTemperature {
		t.Errorf("alert = %+v, want temperature delta 3", alerts[0])
	}
}

func TestVariationStageFailureDoesNotSuppressOtherCheck(t *testing.T) {
	sink := &recordingSink{failOn: map[string]error{domain.SeriesTemperature: errors.New("sink down")}}
	stage := NewVariationStage(sink, testLogger)

	err := stage.Handle(context.Background(), readings([]float64{10, 20}, []float64{40, 60}))
	if err != nil {
		t.Fatalf("Handle() error = %v, want nil", err)
	}
	if got := len(sink.byType(domain.AlertHumidityVariation)); got != 1 {
		t.Errorf("humidity alerts = %d, want 1", got)
	}
}

func TestVariationStageReportsBothFailures(t *testing.T) {
	tempErr := errors.New("temperature sink down")
	humErr := errors.New("humidity sink down")
	sink := &recordingSink{failOn: map[string]error{
		domain.SeriesTemperature: tempErr,
		domain.SeriesHumidity:    humErr,
	}}
	var logs bytes.Buffer
	stage := NewVariationStage(sink, slog.New(slog.NewTextHandler(&logs, nil)))

	err := stage.runChecks(context.Background(), []float64{10, 20}, []float64{40, 60}, 0)
	if !errors.Is(err, tempErr) || !errors.Is(err, humErr) {
		t.Errorf("runChecks() error = %v, want both sink errors", err)
	}

	if err := stage.Handle(context.Background(), readings([]float64{10, 20}, []float64{40, 60})); err != nil {
		t.Fatalf("Handle() error = %v, want nil", err)
	}
	out := logs.String()
	if !strings.Contains(out, "temperature sink down") || !strings.Contains(out, "humidity sink down") {
		t.Errorf("log output missing a failure: %s", out)
	}
}

// barrierSink blocks each Publish until two calls are in flight, so the
// checks only both succeed when they run at the same time.
type barrierSink struct {
	wg       sync.WaitGroup
	timedOut atomic.Bool
	calls    atomic.Int32
}

func (b *barrierSink) Publish(context.Context, domain.Alert) error {
	b.calls.Add(1)
	b.wg.Done()
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		b.timedOut.Store(true)
	}
	return nil
}

func TestVariationChecksRunConcurrently(t *testing.T) {
	sink := &barrierSink{}
	sink.wg.Add(2)
	stage := NewVariationStage(sink, testLogger)

	if err := stage.Handle(context.Background(), readings([]float64{10, 20}, []float64{40, 60})); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if sink.calls.Load() != 2 {
		t.Fatalf("Publish calls = %d, want 2", sink.calls.Load())
	}
	if sink.timedOut.Load() {
		t.Error("checks ran one after the other")
	}
}

func TestChainOrderAndAlerts(t *testing.T) {
	sink := &recordingSink{}
	head := NewChain(sink, testLogger)
	head.SetStrategy(strategy.MaxMin{})

	history := readings([]float64{30, 40}, []float64{50, 50})
	if err := head.Handle(context.Background(), history); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if got := head.LastResult().Temperature(); got.Max != 40 || got.Min != 30 {
		t.Errorf("statistics = %+v, want max 40 min 30", got)
	}
	if len(sink.byType(domain.AlertTemperatureThreshold)) != 1 {
		t.Error("threshold alert missing")
	}
	if len(sink.byType(domain.AlertTemperatureVariation)) != 1 {
		t.Error("variation alert missing")
	}
	if sink.count() != 2 {
		t.Errorf("alerts = %d, want 2", sink.count())
	}
	// threshold publishes before the variation stage is entered
	if first := sink.alerts[0]; first.Type != domain.AlertTemperatureThreshold {
		t.Errorf("first alert = %s, want threshold", first.Type)
	}
}

func TestChainQuietScenario(t *testing.T) {
	sink := &recordingSink{}
	head := NewChain(sink, testLogger)
	head.SetStrategy(strategy.MeanDeviation{})

	if err := head.Handle(context.Background(), readings([]float64{20}, []float64{50})); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if sink.count() != 0 {
		t.Errorf("alerts = %v, want none", sink.alerts)
	}
}
