package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"photobatch/internal/model"
)

func sampleDoc() Document {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	done, _ := model.NewTask("Day 1", "Jane Doe", "https://x.test/a.jpg", &d).Start()
	done, _ = done.Complete([]byte{0xff, 0xd8, 0xff})
	return Document{
		SavedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Tasks:   model.Collection{done, model.NewTask("Day 2", "Bob", "https://x.test/b.jpg", nil).WithSelected(false)},
	}
}

func assertRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	want := sampleDoc()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.SavedAt.Equal(want.SavedAt) || len(got.Tasks) != 2 {
		t.Fatalf("Load = %+v", got)
	}
	first := got.Tasks[0]
	if first.ID != want.Tasks[0].ID || first.State != model.StateCompleted || string(first.Payload) != string(want.Tasks[0].Payload) {
		t.Errorf("task lost in round trip: %+v", first)
	}
	if first.RegistrationDate == nil || !first.RegistrationDate.Equal(*want.Tasks[0].RegistrationDate) {
		t.Errorf("registration date lost: %v", first.RegistrationDate)
	}
	if got.Tasks[1].Selected || got.Tasks[1].RegistrationDate != nil {
		t.Errorf("second task = %+v", got.Tasks[1])
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	assertRoundTrip(t, NewFileStore(path))
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestFileStoreMissing(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "none.json")).Load(context.Background())
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileStore(path).Load(context.Background())
	if err == nil || errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("err = %v, want a decode error", err)
	}
}

func TestNopStore(t *testing.T) {
	var s Store = Nop{}
	if err := s.Save(context.Background(), sampleDoc()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("err = %v", err)
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := DialRedis(ctx, url)
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	defer client.Close()

	key := "photobatch:test:" + time.Now().Format("150405.000000")
	t.Cleanup(func() { client.Del(context.Background(), key) })

	store := NewRedisStore(client, key)
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("empty key: err = %v", err)
	}
	assertRoundTrip(t, store)
}

func TestDialRedisBadURL(t *testing.T) {
	if _, err := DialRedis(context.Background(), "not a url"); err == nil {
		t.Error("expected parse error")
	}
}
