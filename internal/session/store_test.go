package session

import (
	"sync"
	"testing"
	"time"
)

func TestStoreCRUD(t *testing.T) {
	t.Parallel()
	s := NewStore()

	if s.Get(1) != nil {
		t.Fatal("empty store returned a session")
	}

	s.Put(1, &Session{Step: StepAwaitingChannel})
	got := s.Get(1)
	if got == nil || got.Step != StepAwaitingChannel {
		t.Fatalf("Get = %+v, want awaiting_channel", got)
	}
	if s.Get(2) != nil {
		t.Fatal("session leaked across operator ids")
	}

	s.Remove(1)
	if s.Get(1) != nil {
		t.Fatal("session survived Remove")
	}
	// Remove on a missing key is a no-op.
	s.Remove(1)
}

func TestLockSerializesPerOperator(t *testing.T) {
	t.Parallel()
	s := NewStore()

	unlock := s.Lock(1)
	entered := make(chan struct{})
	go func() {
		u := s.Lock(1)
		close(entered)
		u()
	}()

	select {
	case <-entered:
		t.Fatal("second holder entered while lock held")
	case <-time.After(30 * time.Millisecond):
	}

	unlock()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("second holder never entered after unlock")
	}
}

func TestLockIndependentAcrossOperators(t *testing.T) {
	t.Parallel()
	s := NewStore()

	unlock := s.Lock(1)
	defer unlock()

	done := make(chan struct{})
	go func() {
		u := s.Lock(2)
		u()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("operator 2 blocked on operator 1's lock")
	}
}

func TestStepString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		step Step
		want string
	}{
		{StepIdle, "idle"},
		{StepAwaitingChannel, "awaiting_channel"},
		{StepAwaitingMessage, "awaiting_message"},
		{StepReadyToSend, "ready_to_send"},
		{Step(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.step.String(); got != tt.want {
			t.Fatalf("Step(%d).String() = %q, want %q", tt.step, got, tt.want)
		}
	}
}

func TestConcurrentPuts(t *testing.T) {
	t.Parallel()
	s := NewStore()
	var wg sync.WaitGroup
	for i := int64(0); i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Put(id, &Session{Step: StepAwaitingChannel})
			_ = s.Get(id)
			s.Remove(id)
		}(i)
	}
	wg.Wait()
}
