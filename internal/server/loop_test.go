package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"groupwarden/internal/chat"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in  string
		cmd string
		arg string
	}{
		{"/start", "/start", ""},
		{"/SD 2h", "/sd", "2h"},
		{"/sd 1d 30m", "/sd", "1d 30m"},
		{"/close@groupwarden_bot", "/close", ""},
		{"/ac 12345", "/ac", "12345"},
	}
	for _, tt := range tests {
		cmd, arg := splitCommand(tt.in)
		if cmd != tt.cmd || arg != tt.arg {
			t.Errorf("splitCommand(%q) = (%q, %q), want (%q, %q)", tt.in, cmd, arg, tt.cmd, tt.arg)
		}
	}
}

func TestExtractLink(t *testing.T) {
	if link, ok := extractLink("check this https://example.com/post out"); !ok || link != "https://example.com/post" {
		t.Errorf("extractLink = (%q, %v)", link, ok)
	}
	if _, ok := extractLink("no links here"); ok {
		t.Error("extractLink matched plain text")
	}
}

type stubSource struct {
	batches [][]chat.Update
	offsets []int64
	cancel  context.CancelFunc
}

func (s *stubSource) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]chat.Update, error) {
	s.offsets = append(s.offsets, offset)
	if len(s.offsets) > len(s.batches) {
		s.cancel()
		return nil, ctx.Err()
	}
	return s.batches[len(s.offsets)-1], nil
}

func TestRun_AdvancesOffsetAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := &stubSource{
		batches: [][]chat.Update{
			{{UpdateID: 1}, {UpdateID: 2}},
			{},
		},
		cancel: cancel,
	}
	loop := NewLoop(source, nil, nil, 1)

	loop.Run(ctx) // returns once the source cancels the context

	if len(source.offsets) != 3 {
		t.Fatalf("poll calls = %d, want 3", len(source.offsets))
	}
	// The loop must ask for updates past the last delivered id.
	if source.offsets[1] != 3 {
		t.Errorf("second poll offset = %d, want 3", source.offsets[1])
	}
}

type flakySource struct {
	calls  int
	cancel context.CancelFunc
}

func (s *flakySource) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]chat.Update, error) {
	s.calls++
	if s.calls == 1 {
		return nil, errors.New("bad gateway")
	}
	s.cancel()
	return nil, ctx.Err()
}

func TestRun_BacksOffAfterPollError(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the retry delay")
	}
	ctx, cancel := context.WithCancel(context.Background())
	source := &flakySource{cancel: cancel}
	loop := NewLoop(source, nil, nil, 1)

	start := time.Now()
	loop.Run(ctx)

	if elapsed := time.Since(start); elapsed < pollRetryDelay {
		t.Errorf("re-polled after %v, want at least %v after a failed poll", elapsed, pollRetryDelay)
	}
	if source.calls != 2 {
		t.Errorf("poll calls = %d, want 2", source.calls)
	}
}
