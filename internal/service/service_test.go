package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"scopekit/internal/domain"
	"scopekit/internal/repository/sqlite"
)

func newTestService(t *testing.T, opts Options) (*SnapshotService, chan Event) {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})

	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)
	return NewSnapshotService(repo, bus, opts), events
}

func testTree(t *testing.T, score int32) *domain.Scope {
	t.Helper()
	root := domain.NewScope()
	name, err := root.Append("name")
	if err != nil {
		t.Fatal(err)
	}
	if err := domain.Push(name, "arena"); err != nil {
		t.Fatal(err)
	}
	kid, err := root.AppendScope("kids")
	if err != nil {
		t.Fatal(err)
	}
	d, _ := kid.Append("score")
	if err := domain.Push(d, score); err != nil {
		t.Fatal(err)
	}
	return root
}

func nextEvent(t *testing.T, events chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	default:
		t.Fatal("expected an event")
		return Event{}
	}
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	a, b := make(chan Event, 1), make(chan Event, 1)

	t.Run("delivers to every subscriber", func(t *testing.T) {
		bus.Subscribe(a)
		bus.Subscribe(b)
		bus.Publish(Event{Type: EventSnapshotSaved})

		if ev := <-a; ev.Type != EventSnapshotSaved {
			t.Errorf("a got %s", ev.Type)
		}
		if ev := <-b; ev.Type != EventSnapshotSaved {
			t.Errorf("b got %s", ev.Type)
		}
	})

	t.Run("slow subscriber is skipped", func(t *testing.T) {
		slow := make(chan Event)
		bus.Subscribe(slow)
		done := make(chan struct{})
		go func() {
			bus.Publish(Event{Type: EventSnapshotDeleted})
			close(done)
		}()
		<-done
		<-a
		<-b
		if got := bus.Dropped(); got != 1 {
			t.Errorf("Dropped() = %d, want 1", got)
		}
		bus.Unsubscribe(slow)
	})

	t.Run("unsubscribed channel gets nothing", func(t *testing.T) {
		c := make(chan Event, 1)
		bus.Subscribe(c)
		bus.Unsubscribe(c)
		bus.Publish(Event{Type: EventSnapshotSaved})
		select {
		case ev := <-c:
			t.Errorf("unexpected event %s", ev.Type)
		default:
		}
	})
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	svc, events := newTestService(t, Options{SkipUnchanged: true})

	tree := testTree(t, 42)
	res, err := svc.Save(ctx, "arena", tree)
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if !res.Changed {
		t.Error("first save should report a change")
	}
	if res.Snapshot.Format != "yaml" || res.Snapshot.Fingerprint == "" {
		t.Errorf("unexpected snapshot info %+v", res.Snapshot)
	}
	if ev := nextEvent(t, events); ev.Type != EventSnapshotSaved || ev.Snapshot != res.Snapshot {
		t.Errorf("event = %+v, want %s for %+v", ev, EventSnapshotSaved, res.Snapshot)
	}

	loaded, err := svc.Load(ctx, "arena")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !loaded.Equal(tree) {
		t.Error("loaded tree should equal the saved tree")
	}
	kid, _ := loaded.Find("kids").Scope(0)
	score, _ := domain.Get[int32](kid.Find("score"), 0)
	if score != 42 {
		t.Errorf("score = %d, want 42", score)
	}
}

func TestSaveSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, events := newTestService(t, Options{SkipUnchanged: true})

	if _, err := svc.Save(ctx, "k", testTree(t, 1)); err != nil {
		t.Fatal(err)
	}
	nextEvent(t, events)

	res, err := svc.Save(ctx, "k", testTree(t, 1))
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed {
		t.Error("identical tree should not be rewritten")
	}
	if ev := nextEvent(t, events); ev.Type != EventSnapshotUnchanged {
		t.Errorf("event = %s, want %s", ev.Type, EventSnapshotUnchanged)
	}

	res, err = svc.Save(ctx, "k", testTree(t, 2))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed {
		t.Error("changed tree should be rewritten")
	}
}

func TestSaveSeesSmallFloatEdits(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{SkipUnchanged: true})

	tree := domain.NewScope()
	drift, _ := tree.Append("drift")
	if err := domain.Push(drift, float32(0.0000004)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Save(ctx, "k", tree); err != nil {
		t.Fatal(err)
	}

	if err := domain.Set(drift, float32(0.0000001), 0); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Save(ctx, "k", tree)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed {
		t.Error("a small float edit should be written")
	}

	loaded, err := svc.Load(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Equal(tree) {
		t.Error("loaded tree should keep the exact float")
	}
}

func TestSaveAlwaysWritesWhenConfigured(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{SkipUnchanged: false})

	for range 2 {
		res, err := svc.Save(ctx, "k", testTree(t, 1))
		if err != nil {
			t.Fatal(err)
		}
		if !res.Changed {
			t.Error("every save should write")
		}
	}
}

func TestSaveAttributed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	m := &testMonster{health: 80}
	if err := domain.Init(m); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Save(ctx, "monster", m); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := svc.Load(ctx, "monster")
	if err != nil {
		t.Fatal(err)
	}
	hp, _ := domain.Get[int32](loaded.Find("health"), 0)
	if hp != 80 {
		t.Errorf("health = %d, want 80", hp)
	}
	if loaded.Find("health").IsExternal() {
		t.Error("decoded field should own its storage")
	}
}

type testMonster struct {
	domain.Attributed
	health int32
}

func (m *testMonster) Populate(f *domain.Fields) {
	m.Attributed.Populate(f)
	domain.External(f, "health", domain.Slot(&m.health))
}

func (m *testMonster) UpdateExternalStorage(f *domain.Fields) {
	m.Attributed.UpdateExternalStorage(f)
	domain.Rebind(f, "health", domain.Slot(&m.health))
}

func TestSaveErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	if _, err := svc.Save(ctx, "", testTree(t, 1)); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := svc.Save(ctx, "k", nil); err == nil {
		t.Error("expected error for nil tree")
	}

	bad, _ := newTestService(t, Options{Format: "xml"})
	if _, err := bad.Save(ctx, "k", testTree(t, 1)); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{Format: "yaml"})

	if _, err := svc.Save(ctx, "arena", testTree(t, 7)); err != nil {
		t.Fatal(err)
	}

	t.Run("same format copies stored bytes", func(t *testing.T) {
		var buf bytes.Buffer
		if err := svc.Export(ctx, "arena", "", &buf); err != nil {
			t.Fatalf("Export() error: %v", err)
		}
		if !strings.HasPrefix(buf.String(), "- name: name\n") {
			t.Errorf("unexpected YAML:\n%s", buf.String())
		}
	})

	t.Run("converts format", func(t *testing.T) {
		var buf bytes.Buffer
		if err := svc.Export(ctx, "arena", "json", &buf); err != nil {
			t.Fatalf("Export() error: %v", err)
		}
		if !strings.Contains(buf.String(), `"kind": "table"`) {
			t.Errorf("unexpected JSON:\n%s", buf.String())
		}
	})

	t.Run("missing key", func(t *testing.T) {
		err := svc.Export(ctx, "nope", "json", &bytes.Buffer{})
		if !IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := svc.Export(ctx, "arena", "toml", &bytes.Buffer{}); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	input := `[{"name": "hp", "kind": "integer", "values": ["9"]}]`
	res, err := svc.Import(ctx, "imported", "json", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if res.Snapshot.Format != "yaml" {
		t.Errorf("stored format = %s, want yaml", res.Snapshot.Format)
	}

	loaded, err := svc.Load(ctx, "imported")
	if err != nil {
		t.Fatal(err)
	}
	hp, _ := domain.Get[int32](loaded.Find("hp"), 0)
	if hp != 9 {
		t.Errorf("hp = %d, want 9", hp)
	}

	if _, err := svc.Import(ctx, "broken", "json", strings.NewReader("{")); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, events := newTestService(t, Options{})

	for _, key := range []string{"a", "b"} {
		if _, err := svc.Save(ctx, key, testTree(t, 1)); err != nil {
			t.Fatal(err)
		}
		nextEvent(t, events)
	}

	infos, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("List() returned %d snapshots, want 2", len(infos))
	}

	if err := svc.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if ev := nextEvent(t, events); ev.Type != EventSnapshotDeleted || ev.Snapshot.Key != "a" {
		t.Errorf("event = %+v, want %s for a", ev, EventSnapshotDeleted)
	}
	if _, err := svc.Load(ctx, "a"); !IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := svc.Delete(ctx, "a"); !IsNotFound(err) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}
