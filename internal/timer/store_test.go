package timer

import (
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot := Snapshot{
		StartedAt: time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC),
		Duration:  DefaultDuration,
	}
	key := Key("anxious", "room-1")

	if _, found, err := store.Load(key); err != nil || found {
		t.Fatalf("expected empty store, found=%v err=%v", found, err)
	}

	if err := store.Save(key, snapshot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, found, err := store.Load(key)
	if err != nil || !found {
		t.Fatalf("expected snapshot, found=%v err=%v", found, err)
	}
	if !loaded.StartedAt.Equal(snapshot.StartedAt) || loaded.Duration != snapshot.Duration {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}

	if err := store.Remove(key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, found, _ := store.Load(key); found {
		t.Fatal("expected snapshot removal")
	}

	// Removing again is a no-op.
	if err := store.Remove(key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := "unmute-timer-../../etc/passwd"
	if err := store.Save(key, Snapshot{StartedAt: time.Now(), Duration: time.Minute}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, found, err := store.Load(key); err != nil || !found {
		t.Fatalf("expected snapshot under sanitized key, found=%v err=%v", found, err)
	}
}

func TestBroadcasterDeliversToSubscribers(t *testing.T) {
	broadcaster := NewBroadcaster()

	signals, cancel := broadcaster.Subscribe("anxious")
	defer cancel()
	other, cancelOther := broadcaster.Subscribe("lonely")
	defer cancelOther()

	broadcaster.Publish("anxious", SignalClear)

	select {
	case signal := <-signals:
		if signal != SignalClear {
			t.Fatalf("unexpected signal %v", signal)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive signal")
	}

	select {
	case <-other:
		t.Fatal("signal leaked across channels")
	default:
	}
}

func TestBroadcasterUnsubscribe(t *testing.T) {
	broadcaster := NewBroadcaster()

	signals, cancel := broadcaster.Subscribe("anxious")
	cancel()
	cancel()

	broadcaster.Publish("anxious", SignalClear)

	select {
	case <-signals:
		t.Fatal("cancelled subscriber must not receive signals")
	default:
	}
}
