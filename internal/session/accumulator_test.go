package session

import (
	"sync"
	"testing"
	"time"

	"vecta-client/internal/model"
	"vecta-client/internal/pkg/logger"
)

func newTestAccumulator() (*Accumulator, *Store) {
	store := NewStore(nil, logger.NopLogger{})
	return NewAccumulator(store, logger.NopLogger{}), store
}

func TestAccumulatorAssemblesChunks(t *testing.T) {
	acc, store := newTestAccumulator()
	now := time.Now()

	acc.Apply("Hel", false, now)
	acc.Apply("lo, ", false, now)
	acc.Apply("world", false, now)
	acc.Apply("", true, now)

	log := store.Messages()
	if len(log) != 1 {
		t.Fatalf("len(Messages()) = %d, want 1", len(log))
	}
	if log[0].Content != "Hello, world" {
		t.Errorf("Content = %q, want %q", log[0].Content, "Hello, world")
	}
	if log[0].IsStreaming {
		t.Error("message should not be streaming after the terminator")
	}
	if log[0].Type != model.MessageTypeAssistant {
		t.Errorf("Type = %q, want assistant", log[0].Type)
	}
	if acc.Streaming() {
		t.Error("Streaming() should be false after the terminator")
	}
}

func TestAccumulatorIntermediateStateVisible(t *testing.T) {
	acc, store := newTestAccumulator()
	now := time.Now()

	acc.Apply("Hel", false, now)
	if got := store.Messages()[0]; got.Content != "Hel" || !got.IsStreaming {
		t.Errorf("after first chunk: %+v", got)
	}

	acc.Apply("lo", false, now)
	if got := store.Messages()[0]; got.Content != "Hello" || !got.IsStreaming {
		t.Errorf("after second chunk: %+v", got)
	}
}

func TestAccumulatorSingleCompleteChunk(t *testing.T) {
	acc, store := newTestAccumulator()

	acc.Apply("All at once.", true, time.Now())

	log := store.Messages()
	if len(log) != 1 {
		t.Fatalf("len(Messages()) = %d, want 1", len(log))
	}
	if log[0].Content != "All at once." || log[0].IsStreaming {
		t.Errorf("message = %+v, want finalized in one step", log[0])
	}
	if acc.Streaming() {
		t.Error("single complete chunk must not leave a stream open")
	}
}

func TestAccumulatorTerminatorWithTrailingContent(t *testing.T) {
	acc, store := newTestAccumulator()
	now := time.Now()

	acc.Apply("almost ", false, now)
	acc.Apply("done", true, now)

	log := store.Messages()
	if log[0].Content != "almost done" || log[0].IsStreaming {
		t.Errorf("message = %+v, want %q finalized", log[0], "almost done")
	}
}

func TestAccumulatorEmptyChunkWithoutStreamIsNoop(t *testing.T) {
	acc, store := newTestAccumulator()

	acc.Apply("", false, time.Now())
	acc.Apply("", true, time.Now())

	if len(store.Messages()) != 0 {
		t.Errorf("Messages() = %+v, want empty log", store.Messages())
	}
}

func TestAccumulatorAtMostOneStreamingMessage(t *testing.T) {
	acc, store := newTestAccumulator()
	now := time.Now()

	acc.Apply("first utterance", false, now)
	acc.Apply(" continues", false, now)

	streaming := 0
	for _, msg := range store.Messages() {
		if msg.IsStreaming {
			streaming++
		}
	}
	if streaming != 1 {
		t.Errorf("streaming messages = %d, want exactly 1", streaming)
	}
}

func TestFinalizeOpenClosesStaleStream(t *testing.T) {
	acc, store := newTestAccumulator()

	acc.Apply("interrupted mid", false, time.Now())
	acc.FinalizeOpen()

	log := store.Messages()
	if log[0].Content != "interrupted mid" || log[0].IsStreaming {
		t.Errorf("stale stream = %+v, want finalized with buffered text", log[0])
	}
	if acc.Streaming() {
		t.Error("FinalizeOpen() should close the stream")
	}

	// Idempotent when nothing is open.
	acc.FinalizeOpen()
	if len(store.Messages()) != 1 {
		t.Error("FinalizeOpen() on a closed stream should not touch the log")
	}
}

func TestAccumulatorResetDropsStreamSilently(t *testing.T) {
	acc, store := newTestAccumulator()

	acc.Apply("doomed", false, time.Now())
	acc.Reset()

	if acc.Streaming() {
		t.Error("Reset() should drop the open stream")
	}
	// The log entry stays as-is; Reset never rewrites history.
	if len(store.Messages()) != 1 {
		t.Errorf("Messages() = %+v", store.Messages())
	}

	// A fresh stream after Reset starts a new message.
	acc.Apply("fresh", true, time.Now())
	if len(store.Messages()) != 2 {
		t.Errorf("len(Messages()) = %d, want 2", len(store.Messages()))
	}
}

// Teardown may reset the accumulator from another goroutine while chunks are
// still arriving; run with -race.
func TestAccumulatorConcurrentResetDuringStream(t *testing.T) {
	acc, store := newTestAccumulator()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			acc.Apply("chunk ", false, time.Now())
		}
		acc.Apply("", true, time.Now())
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			acc.Reset()
		}
	}()
	wg.Wait()

	// Whatever interleaving happened, every chunk landed in some message and
	// no message content was torn mid-write.
	for _, msg := range store.Messages() {
		for _, part := range splitChunks(msg.Content) {
			if part != "chunk " {
				t.Fatalf("torn content %q in message %q", part, msg.Content)
			}
		}
	}
}

func splitChunks(content string) []string {
	var out []string
	for len(content) >= 6 {
		out = append(out, content[:6])
		content = content[6:]
	}
	if content != "" {
		out = append(out, content)
	}
	return out
}
