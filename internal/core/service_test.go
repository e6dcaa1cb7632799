package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/metasync/internal/config"
	"github.com/JonMunkholm/metasync/internal/host"
	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/tabular"
)

func testConfig() *config.Config {
	return &config.Config{
		Reconcile: config.ReconcileConfig{
			MaxConcurrent: 1,
			MaxWaitTime:   50 * time.Millisecond,
			Timeout:       time.Minute,
			MaxRows:       100,
		},
		History: config.HistoryConfig{MaxEntries: 10},
	}
}

func scenePlan() mapping.Plan {
	return mapping.Plan{
		KeyColumn: "File Name",
		Mappings:  []mapping.FieldMapping{{Column: "Scene", MetadataKey: "Scene"}},
	}
}

// =============================================================================
// APPLY
// =============================================================================

func TestApply_RecordsRun(t *testing.T) {
	lib := host.NewMemory()
	clip := lib.AddClip(lib.RootID(), "shot1.mov")
	svc := NewService(host.Static(lib), nil, testConfig())

	ctx := ContextWithIPAddress(context.Background(), "10.0.0.7")
	run, err := svc.Apply(ctx, ApplyRequest{
		Plan:   scenePlan(),
		Rows:   []tabular.Row{{"File Name": "shot1", "Scene": "12"}, {"File Name": "nope.mov", "Scene": "3"}},
		Source: "csv:shots.csv",
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if run.Status != RunCompleted {
		t.Errorf("Status = %q, want %q", run.Status, RunCompleted)
	}
	if run.Stats.Matched != 1 || run.Stats.Missing != 1 || run.Stats.Updated != 1 {
		t.Errorf("Stats = %+v, want matched=1 missing=1 updated=1", run.Stats)
	}
	if got := lib.Metadata(clip)["Scene"]; got != "12" {
		t.Errorf("Scene = %q, want %q", got, "12")
	}
	if run.IPAddress != "10.0.0.7" {
		t.Errorf("IPAddress = %q, want %q", run.IPAddress, "10.0.0.7")
	}

	stored, err := svc.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if stored.Outcome == nil || len(stored.Outcome.MissingRows) != 1 {
		t.Errorf("stored outcome = %+v, want one missing row", stored.Outcome)
	}
	if stored.Source != "csv:shots.csv" {
		t.Errorf("Source = %q", stored.Source)
	}
}

func TestApply_ConfigurationErrorsSkipLibrary(t *testing.T) {
	opened := 0
	opener := host.OpenerFunc(func(ctx context.Context) (host.Host, error) {
		opened++
		return host.NewMemory(), nil
	})
	svc := NewService(opener, nil, testConfig())

	tests := []struct {
		name string
		plan mapping.Plan
		want error
	}{
		{"no key column", mapping.Plan{Mappings: scenePlan().Mappings}, mapping.ErrNoKeyColumn},
		{"no mappings", mapping.Plan{KeyColumn: "File Name"}, mapping.ErrNoMappingsSelected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Apply(context.Background(), ApplyRequest{Plan: tt.plan})
			if !errors.Is(err, tt.want) {
				t.Errorf("Apply() error = %v, want %v", err, tt.want)
			}
		})
	}
	if opened != 0 {
		t.Errorf("library opened %d times, want 0", opened)
	}
}

func TestApply_HostUnavailableIsRecorded(t *testing.T) {
	opener := host.OpenerFunc(func(ctx context.Context) (host.Host, error) {
		return nil, errors.New("no project open")
	})
	svc := NewService(opener, nil, testConfig())

	run, err := svc.Apply(context.Background(), ApplyRequest{
		Plan: scenePlan(),
		Rows: []tabular.Row{{"File Name": "a.mov", "Scene": "1"}},
	})
	if !errors.Is(err, host.ErrUnavailable) {
		t.Fatalf("Apply() error = %v, want ErrUnavailable", err)
	}
	if run == nil || run.Status != RunFailed {
		t.Fatalf("run = %+v, want failed run", run)
	}

	runs, _ := svc.ListRuns(context.Background(), 0)
	if len(runs) != 1 || runs[0].Error == "" {
		t.Errorf("ListRuns() = %+v, want one failed run with error text", runs)
	}
}

func TestApply_TooManyRows(t *testing.T) {
	cfg := testConfig()
	cfg.Reconcile.MaxRows = 1
	svc := NewService(host.Static(host.NewMemory()), nil, cfg)

	_, err := svc.Apply(context.Background(), ApplyRequest{
		Plan: scenePlan(),
		Rows: []tabular.Row{{"File Name": "a"}, {"File Name": "b"}},
	})
	if !errors.Is(err, ErrTooManyRows) {
		t.Errorf("Apply() error = %v, want ErrTooManyRows", err)
	}
}

func TestApply_LimiterBusy(t *testing.T) {
	svc := NewService(host.Static(host.NewMemory()), nil, testConfig())
	if !svc.limiter.TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer svc.limiter.Release()

	_, err := svc.Apply(context.Background(), ApplyRequest{Plan: scenePlan()})
	if !errors.Is(err, ErrTooManyPasses) {
		t.Errorf("Apply() error = %v, want ErrTooManyPasses", err)
	}
}

func TestApply_CancelledRunKeepsPartialOutcome(t *testing.T) {
	lib := host.NewMemory()
	lib.AddClip(lib.RootID(), "a.mov")
	svc := NewService(host.Static(lib), nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := svc.Apply(ctx, ApplyRequest{
		Plan: scenePlan(),
		Rows: []tabular.Row{{"File Name": "a.mov", "Scene": "1"}},
	})
	if err == nil {
		t.Fatal("Apply() expected error for cancelled context")
	}
	// The limiter rejects a dead context before a run exists.
	if run != nil && run.Status != RunCancelled {
		t.Errorf("Status = %q, want %q", run.Status, RunCancelled)
	}
}

// =============================================================================
// DRY RUN / LOAD
// =============================================================================

func TestDryRun_WritesNothing(t *testing.T) {
	lib := host.NewMemory()
	folder := lib.AddFolder(lib.RootID(), "Day 1")
	clip := lib.AddClip(folder, "shot1.mov")
	svc := NewService(host.Static(lib), nil, testConfig())

	res, err := svc.DryRun(context.Background(), ApplyRequest{
		Plan: scenePlan(),
		Rows: []tabular.Row{{"File Name": "SHOT1.MOV", "Scene": "4"}, {"File Name": "x", "Scene": "5"}},
	})
	if err != nil {
		t.Fatalf("DryRun() error = %v", err)
	}
	if res.Matched != 1 || res.Missing != 1 || res.PlannedWrites != 1 {
		t.Errorf("DryRun() = %+v", res)
	}
	if len(lib.Metadata(clip)) != 0 {
		t.Errorf("DryRun wrote metadata: %v", lib.Metadata(clip))
	}
	if runs, _ := svc.ListRuns(context.Background(), 0); len(runs) != 0 {
		t.Errorf("DryRun recorded %d runs, want 0", len(runs))
	}
}

func TestLoadSheet(t *testing.T) {
	svc := NewService(host.Static(host.NewMemory()), nil, testConfig())
	ctx := context.Background()

	_, err := svc.CreatePreset(ctx, mapping.Preset{
		Name:      "Camera report",
		KeyColumn: "Clip",
		Mappings:  []mapping.FieldMapping{{Column: "Scene", MetadataKey: "Scene"}},
		Headers:   []string{"Clip", "Scene", "Take"},
	})
	if err != nil {
		t.Fatalf("CreatePreset() error = %v", err)
	}

	src := tabular.CSVSource{
		Reader: strings.NewReader("Clip,Scene,Take\nA001.mov,1,2\n"),
		Name:   "report.csv",
	}
	preview, err := svc.LoadSheet(ctx, src)
	if err != nil {
		t.Fatalf("LoadSheet() error = %v", err)
	}

	if preview.KeyColumn != "Clip" {
		t.Errorf("KeyColumn = %q, want %q", preview.KeyColumn, "Clip")
	}
	if len(preview.Rows) != 1 || preview.Rows[0]["Take"] != "2" {
		t.Errorf("Rows = %v", preview.Rows)
	}
	if len(preview.Columns) != 3 || preview.Columns[0].Enabled {
		t.Errorf("Columns = %+v, want key column disabled", preview.Columns)
	}
	if len(preview.Presets) != 1 || preview.Presets[0].Preset.Name != "Camera report" {
		t.Errorf("Presets = %+v", preview.Presets)
	}
	if preview.Source != "csv:report.csv" {
		t.Errorf("Source = %q", preview.Source)
	}
}

func TestLoadSheet_SourceErrorsPassThrough(t *testing.T) {
	svc := NewService(host.Static(host.NewMemory()), nil, testConfig())

	_, err := svc.LoadSheet(context.Background(), svc.SheetsSource("", "A:Z"))
	if !errors.Is(err, tabular.ErrSourceUnavailable) {
		t.Errorf("LoadSheet() error = %v, want ErrSourceUnavailable for missing credentials", err)
	}
}

// =============================================================================
// PRESETS / HISTORY
// =============================================================================

func TestCreatePreset_Invalid(t *testing.T) {
	svc := NewService(host.Static(host.NewMemory()), nil, testConfig())

	_, err := svc.CreatePreset(context.Background(), mapping.Preset{Name: "empty"})
	if !errors.Is(err, ErrInvalidPreset) {
		t.Errorf("CreatePreset() error = %v, want ErrInvalidPreset", err)
	}
}

func TestPruneHistory(t *testing.T) {
	store := NewMemoryStore(0)
	svc := NewService(host.Static(host.NewMemory()), store, testConfig())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	_ = store.SaveRun(ctx, Run{ID: "old", StartedAt: now.Add(-100 * 24 * time.Hour)})
	_ = store.SaveRun(ctx, Run{ID: "new", StartedAt: now.Add(-time.Hour)})

	if n := svc.PruneHistory(ctx, 90*24*time.Hour); n != 1 {
		t.Errorf("PruneHistory() = %d, want 1", n)
	}
	if _, err := svc.GetRun(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun(old) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetRun(ctx, "new"); err != nil {
		t.Errorf("GetRun(new) error = %v", err)
	}
}
