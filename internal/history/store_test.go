package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-narrate/internal/history"
	"github.com/alnah/go-narrate/internal/job"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(source string, started time.Time) job.Record {
	subs := "file://local/video_gen/srt/x.srt"
	return job.Record{
		Source:  source,
		Request: job.Request{Prompts: []string{"One.", "Two."}, GenerateSRT: true},
		Result: job.Result{Count: 1, Results: []job.Item{
			{PromptIndex: 0, AudioPath: "file://local/video_gen/tts/x.wav", SRTPath: &subs, SampleRate: 24000, SubtitleBlocks: 2},
		}},
		Started: started,
		Elapsed: 1500 * time.Millisecond,
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := s.Record(ctx, sampleRecord("generate", base)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	failed := job.Record{
		Source:  "worker",
		Request: job.Request{},
		Result:  job.ErrorResult(errors.New("prompts is required")),
		Started: base.Add(time.Minute),
	}
	if err := s.Record(ctx, failed); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	entries, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent() = %d entries, want 2", len(entries))
	}

	newest, oldest := entries[0], entries[1]
	if newest.Source != "worker" || !newest.Failed() || newest.Error != "prompts is required" {
		t.Errorf("newest = %+v", newest)
	}
	if oldest.Source != "generate" || oldest.Failed() {
		t.Errorf("oldest = %+v", oldest)
	}
	if oldest.Prompts != 2 || !oldest.SRT || oldest.Outputs != 1 {
		t.Errorf("oldest counters = %+v", oldest)
	}
	if !oldest.StartedAt.Equal(base) || oldest.Elapsed != 1500*time.Millisecond {
		t.Errorf("oldest timing = %v / %v", oldest.StartedAt, oldest.Elapsed)
	}
	if got := oldest.Result.Results[0]; got.SRTPath == nil || got.SubtitleBlocks != 2 {
		t.Errorf("stored result = %+v", got)
	}
}

func TestStore_RecentLimit(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := range 5 {
		if err := s.Record(ctx, sampleRecord("run", base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Recent(3) = %d entries", len(entries))
	}
	if !entries[0].StartedAt.Equal(base.Add(4 * time.Second)) {
		t.Errorf("first entry started %v, want newest", entries[0].StartedAt)
	}
}

func TestStore_ConcurrentRecords(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Record(ctx, sampleRecord("serve", time.Now().Add(time.Duration(i)))); err != nil {
				t.Errorf("Record() error: %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := s.Recent(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 8 {
		t.Errorf("entries = %d, want 8", len(entries))
	}
}

func TestStore_Reopen(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "history.db")
	s, err := history.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Record(context.Background(), sampleRecord("generate", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = history.Open(p)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if s.Path() != p {
		t.Errorf("Path() = %q", s.Path())
	}
	entries, err := s.Recent(context.Background(), 0)
	if err != nil || len(entries) != 1 {
		t.Errorf("after reopen: %d entries, %v", len(entries), err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := history.Open(""); err == nil {
		t.Error("Open(\"\") succeeded")
	}
}
