// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cartsense/internal/annotate"
	"github.com/tomtom215/cartsense/internal/archive"
	"github.com/tomtom215/cartsense/internal/cartstate"
	"github.com/tomtom215/cartsense/internal/catalog"
	"github.com/tomtom215/cartsense/internal/detection"
	"github.com/tomtom215/cartsense/internal/eventprocessor"
	"github.com/tomtom215/cartsense/internal/inference"
	"github.com/tomtom215/cartsense/internal/models"
	"github.com/tomtom215/cartsense/internal/recommend"
	"github.com/tomtom215/cartsense/internal/registry"
	"github.com/tomtom215/cartsense/internal/vocab"
)

const (
	labelOnion  = 1
	labelTomato = 2
	labelCorn   = 10
)

type fakeDetector struct {
	mu    sync.Mutex
	dets  []models.Detection
	err   error
	calls int
}

func (f *fakeDetector) set(dets []models.Detection, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dets, f.err = dets, err
}

func (f *fakeDetector) Detect(context.Context, []byte) ([]models.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.dets, f.err
}

// recordingPredictor always predicts the same item and keeps every window.
type recordingPredictor struct {
	mu      sync.Mutex
	item    string
	windows [][][]float64
}

func (r *recordingPredictor) PredictNext(_ context.Context, window [][]float64, _ models.Season, _ models.Period) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, window)
	table := vocab.Default()
	scores := make([]float64, table.OutputSize())
	i, _ := table.OutputIndex(r.item)
	scores[i] = 1
	return scores, nil
}

// flakySyncer fails the next n calls before delegating.
type flakySyncer struct {
	mu    sync.Mutex
	fail  int
	inner Syncer
}

func (f *flakySyncer) Sync(ctx context.Context, deviceID, ref string) (bool, error) {
	f.mu.Lock()
	if f.fail > 0 {
		f.fail--
		f.mu.Unlock()
		return false, errors.New("registry unavailable")
	}
	f.mu.Unlock()
	return f.inner.Sync(ctx, deviceID, ref)
}

type recordingNotifier struct {
	mu     sync.Mutex
	states []models.DeviceDisplayState
}

func (r *recordingNotifier) PublishDisplay(_ context.Context, s models.DeviceDisplayState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
	return nil
}

type harness struct {
	processor  *Processor
	detector   *fakeDetector
	predictor  *recordingPredictor
	store      *cartstate.MemoryStore
	registry   *registry.MemoryRegistry
	syncer     *flakySyncer
	notifier   *recordingNotifier
	archiveDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		detector:   &fakeDetector{},
		predictor:  &recordingPredictor{item: vocab.EndItem},
		store:      cartstate.NewMemoryStore(),
		registry:   registry.NewMemoryRegistry(),
		notifier:   &recordingNotifier{},
		archiveDir: t.TempDir(),
	}
	h.syncer = &flakySyncer{inner: registry.NewSynchronizer(h.registry, eventprocessor.DefaultCircuitBreakerConfig("pipeline-test"))}

	table := vocab.Default()
	normalizer, err := detection.NewNormalizer(0.5, table)
	if err != nil {
		t.Fatal(err)
	}
	cat := catalog.New([]models.Recipe{
		{ID: "1", Name: "Tomato beef stir fry", RawLabel: "stirfry", RequiredItems: []string{"onion", "tomato", "beef"}},
		{ID: "2", Name: "Corn soup", RawLabel: "cornsoup", RequiredItems: []string{"corn", "onion"}},
	})
	recCfg := recommend.DefaultConfig()
	recCfg.DisplayBaseURL = "http://dash"
	engine, err := recommend.NewEngine(h.predictor, table, cat, recCfg)
	if err != nil {
		t.Fatal(err)
	}
	store, err := archive.NewLocalStore(h.archiveDir)
	if err != nil {
		t.Fatal(err)
	}

	h.processor, err = NewProcessor(Deps{
		Detector:    h.detector,
		Normalizer:  normalizer,
		Store:       h.store,
		Recommender: engine,
		Syncer:      h.syncer,
		Archiver:    archive.NewArchiver(store),
		Renderer:    annotate.NewRenderer(),
		Notifier:    h.notifier,
	})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func testImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 48)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func capture(t *testing.T, device string) models.CaptureEvent {
	return models.CaptureEvent{
		DeviceID:   device,
		CapturedAt: time.Date(2024, 5, 1, 12, 30, 15, 0, time.UTC),
		Image:      testImage(t),
		MessageID:  "CAPTURES:1",
	}
}

func det(label int, score float64) models.Detection {
	return models.Detection{LabelID: label, Score: score, Box: models.BoundingBox{XMin: 0.1, YMin: 0.1, XMax: 0.5, YMax: 0.5}}
}

func dashboardURL(t *testing.T, reg *registry.MemoryRegistry, device string) string {
	t.Helper()
	cfg, err := reg.ReadConfig(context.Background(), device)
	if err != nil {
		t.Fatal(err)
	}
	var fields struct {
		DashboardURL string `json:"dashboardUrl"`
	}
	if err := json.Unmarshal(cfg.Data, &fields); err != nil {
		t.Fatal(err)
	}
	return fields.DashboardURL
}

func TestProcess_Cart01EndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.registry.Seed("cart01", []byte(`{"dashboardUrl":"http://dash/display?contents=welcome","volume":7}`))
	h.detector.set([]models.Detection{det(labelTomato, 0.93), det(labelOnion, 0.81), det(labelCorn, 0.42)}, nil)

	out, err := h.processor.Process(ctx, capture(t, "cart01"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.Transition != Appended || !out.Updated {
		t.Errorf("outcome = %+v, want appended and updated", out)
	}

	history, _ := h.store.GetHistory(ctx, "cart01")
	wantHistory := models.CartHistory{{}, {"onion", "tomato"}}
	if !reflect.DeepEqual(history, wantHistory) {
		t.Errorf("history = %v, want %v", history, wantHistory)
	}

	table := vocab.Default()
	wantWindow := [][]float64{
		table.OneHot(nil), table.OneHot(nil), table.OneHot(nil),
		table.OneHot(models.NewItemSet("onion", "tomato")),
	}
	if len(h.predictor.windows) != 1 || !reflect.DeepEqual(h.predictor.windows[0], wantWindow) {
		t.Errorf("windows = %v, want one call with %v", h.predictor.windows, wantWindow)
	}

	if got := dashboardURL(t, h.registry, "cart01"); got != "http://dash/display?contents=stirfry" {
		t.Errorf("dashboardUrl = %q", got)
	}
	if h.registry.Writes() != 1 {
		t.Errorf("registry writes = %d, want 1", h.registry.Writes())
	}

	state, err := h.store.GetDisplayState(ctx, "cart01")
	if err != nil {
		t.Fatal(err)
	}
	if !state.Synced || state.NextItemHint != vocab.EndItem {
		t.Errorf("display state = %+v", state)
	}
	wantContents := []models.ContentRef{{Title: "Tomato beef stir fry", Key: "stirfry", MissingItems: []string{"beef"}}}
	if !reflect.DeepEqual(state.Recommendation, wantContents) {
		t.Errorf("recommendation = %+v, want %+v", state.Recommendation, wantContents)
	}
	if len(h.notifier.states) != 1 {
		t.Errorf("notifications = %d, want 1", len(h.notifier.states))
	}

	for _, p := range []string{
		"original/cart01/2024-05-01/12/3015.jpg",
		"original/cart01/latest.jpg",
		"annotated/cart01/2024-05-01/12/3015.jpg",
		"annotated/cart01/latest.jpg",
	} {
		if _, err := os.Stat(filepath.Join(h.archiveDir, filepath.FromSlash(p))); err != nil {
			t.Errorf("archive %s missing: %v", p, err)
		}
	}

	// The same cart again changes nothing.
	out, err = h.processor.Process(ctx, capture(t, "cart01"))
	if err != nil {
		t.Fatalf("second Process() error = %v", err)
	}
	if out.Transition != Unchanged || out.Updated {
		t.Errorf("second outcome = %+v, want unchanged", out)
	}
	if h.registry.Writes() != 1 || len(h.predictor.windows) != 1 {
		t.Errorf("writes = %d, predictions = %d; want 1, 1", h.registry.Writes(), len(h.predictor.windows))
	}
	if history, _ := h.store.GetHistory(ctx, "cart01"); len(history) != 2 {
		t.Errorf("history grew to %v", history)
	}
}

func TestProcess_SameRefNoWrite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.registry.Seed("cart02", []byte(`{"dashboardUrl":"http://dash/display?contents=stirfry"}`))
	h.detector.set([]models.Detection{det(labelOnion, 0.9), det(labelTomato, 0.8)}, nil)

	out, err := h.processor.Process(ctx, capture(t, "cart02"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Transition != Appended || out.Updated {
		t.Errorf("outcome = %+v, want appended without registry write", out)
	}
	if h.registry.Writes() != 0 {
		t.Errorf("writes = %d, want 0", h.registry.Writes())
	}
	if len(h.notifier.states) != 0 {
		t.Error("no notification expected without a registry update")
	}
}

func TestProcess_ResetOnEmptyCart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.detector.set([]models.Detection{det(labelCorn, 0.9), det(labelOnion, 0.7)}, nil)
	if _, err := h.processor.Process(ctx, capture(t, "cart03")); err != nil {
		t.Fatal(err)
	}
	if got := dashboardURL(t, h.registry, "cart03"); got != "http://dash/display?contents=cornsoup" {
		t.Errorf("dashboardUrl = %q", got)
	}

	// Low scores only: the cart reads as empty.
	h.detector.set([]models.Detection{det(labelCorn, 0.3)}, nil)
	out, err := h.processor.Process(ctx, capture(t, "cart03"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Transition != Reset || !out.Updated {
		t.Errorf("outcome = %+v, want reset and updated", out)
	}
	history, _ := h.store.GetHistory(ctx, "cart03")
	if !reflect.DeepEqual(history, models.NewCartHistory()) {
		t.Errorf("history = %v, want [[]]", history)
	}
	if got := dashboardURL(t, h.registry, "cart03"); got != "http://dash/display?contents=welcome" {
		t.Errorf("dashboardUrl = %q, want welcome", got)
	}
	if len(h.predictor.windows) != 1 {
		t.Errorf("reset must not call the predictor, calls = %d", len(h.predictor.windows))
	}

	// Empty again: unchanged.
	out, err = h.processor.Process(ctx, capture(t, "cart03"))
	if err != nil || out.Transition != Unchanged {
		t.Errorf("third Process() = %+v, %v; want unchanged", out, err)
	}
}

func TestProcess_FreshDeviceEmptyCart(t *testing.T) {
	h := newHarness(t)
	h.detector.set(nil, nil)

	out, err := h.processor.Process(context.Background(), capture(t, "cart04"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Transition != Unchanged || out.Updated || h.registry.Writes() != 0 {
		t.Errorf("outcome = %+v, writes = %d", out, h.registry.Writes())
	}
}

func TestProcess_NoPredictionSkips(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.detector.set(nil, inference.ErrNoPrediction)

	out, err := h.processor.Process(ctx, capture(t, "cart05"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.Transition != Skipped {
		t.Errorf("Transition = %s, want skipped", out.Transition)
	}
	if _, err := os.Stat(filepath.Join(h.archiveDir, "original", "cart05", "latest.jpg")); err != nil {
		t.Errorf("raw capture must be archived before detection: %v", err)
	}
	if _, err := h.store.GetDisplayState(ctx, "cart05"); !errors.Is(err, cartstate.ErrNotFound) {
		t.Errorf("display state written for skipped capture: %v", err)
	}
}

func TestProcess_DetectErrorFails(t *testing.T) {
	h := newHarness(t)
	down := errors.New("connection reset")
	h.detector.set(nil, down)

	if _, err := h.processor.Process(context.Background(), capture(t, "cart06")); !errors.Is(err, down) {
		t.Errorf("Process() error = %v, want %v", err, down)
	}
}

func TestProcess_FailedSyncIsFinishedOnRedelivery(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.syncer.fail = 1
	h.detector.set([]models.Detection{det(labelOnion, 0.9), det(labelTomato, 0.8)}, nil)

	if _, err := h.processor.Process(ctx, capture(t, "cart07")); err == nil {
		t.Fatal("expected sync error")
	}
	state, err := h.store.GetDisplayState(ctx, "cart07")
	if err != nil {
		t.Fatal(err)
	}
	if state.Synced || state.DisplayRef != "http://dash/display?contents=stirfry" {
		t.Errorf("state after failed sync = %+v", state)
	}
	if history, _ := h.store.GetHistory(ctx, "cart07"); len(history) != 2 {
		t.Errorf("history = %v, want appended", history)
	}

	out, err := h.processor.Process(ctx, capture(t, "cart07"))
	if err != nil {
		t.Fatalf("redelivery Process() error = %v", err)
	}
	if out.Transition != Unchanged || !out.Updated {
		t.Errorf("redelivery outcome = %+v, want unchanged and updated", out)
	}
	if got := dashboardURL(t, h.registry, "cart07"); got != "http://dash/display?contents=stirfry" {
		t.Errorf("dashboardUrl = %q", got)
	}
	state, _ = h.store.GetDisplayState(ctx, "cart07")
	if !state.Synced {
		t.Error("state should be synced after redelivery")
	}
	if len(h.predictor.windows) != 1 {
		t.Errorf("pending sync must not predict again, calls = %d", len(h.predictor.windows))
	}
}

func TestProcess_NonObjectDeviceConfigLeavesStateUnsynced(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.registry.Seed("cart10", []byte(`[1,2]`))
	h.detector.set([]models.Detection{det(labelOnion, 0.9), det(labelTomato, 0.8)}, nil)

	out, err := h.processor.Process(ctx, capture(t, "cart10"))
	if err != nil {
		t.Fatalf("Process() error = %v, want nil so the capture is acked", err)
	}
	if out.Transition != Appended || out.Updated {
		t.Errorf("outcome = %+v, want appended and not updated", out)
	}
	state, err := h.store.GetDisplayState(ctx, "cart10")
	if err != nil {
		t.Fatal(err)
	}
	if state.Synced {
		t.Error("display state should stay unsynced")
	}
	if h.registry.Writes() != 0 {
		t.Errorf("registry writes = %d, want 0", h.registry.Writes())
	}
}

func TestProcess_AnnotationErrorFailsEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.detector.set([]models.Detection{det(labelOnion, 0.9)}, nil)

	evt := capture(t, "cart08")
	evt.Image = []byte("not a jpeg")
	if _, err := h.processor.Process(ctx, evt); err == nil {
		t.Fatal("expected annotation error")
	}

	// State work finished; the redelivered capture is unchanged.
	out, err := h.processor.Process(ctx, capture(t, "cart08"))
	if err != nil || out.Transition != Unchanged {
		t.Errorf("redelivery = %+v, %v; want unchanged", out, err)
	}
}

func TestProcess_MissingDeviceSkips(t *testing.T) {
	h := newHarness(t)
	out, err := h.processor.Process(context.Background(), models.CaptureEvent{Image: testImage(t)})
	if err != nil || out.Transition != Skipped {
		t.Errorf("Process() = %+v, %v; want skipped", out, err)
	}
	if h.detector.calls != 0 {
		t.Error("detector must not run without a device id")
	}
}

func TestNewProcessor_RequiresDeps(t *testing.T) {
	if _, err := NewProcessor(Deps{}); err == nil {
		t.Error("expected error for missing deps")
	}
}
