package cancel

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCollectGathersAllItems(t *testing.T) {
	a := Start(func(ctx context.Context, emit func(int)) error {
		for i := 0; i < 5; i++ {
			emit(i)
		}
		return nil
	})
	items, err, cancelled := a.Collect()
	if err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
	if cancelled {
		t.Fatalf("Cancelled() = true, want false")
	}
	if len(items) != 5 {
		t.Fatalf("len(items) = %d, want 5", len(items))
	}
}

func TestCancelStopsProducerAndKeepsPartialItems(t *testing.T) {
	started := make(chan struct{})
	a := Start(func(ctx context.Context, emit func(int)) error {
		emit(1)
		emit(2)
		close(started)
		for i := 3; i < 1000; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			emit(i)
		}
		return nil
	})

	<-started
	a.Cancel()
	items, err, cancelled := a.Collect()

	if !cancelled {
		t.Fatalf("Cancelled() = false, want true")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Err() = %v, want context.Canceled", err)
	}
	if len(items) < 2 {
		t.Fatalf("len(items) = %d, want at least the 2 pre-cancel items", len(items))
	}
}

func TestIsCancelByte(t *testing.T) {
	cases := map[byte]bool{0x03: true, 0x04: true, 'a': false, 0x1b: false}
	for b, want := range cases {
		if got := IsCancelByte(b); got != want {
			t.Fatalf("IsCancelByte(%#x) = %v, want %v", b, got, want)
		}
	}
}

func TestCollectDoesNotHangAfterCancelBeforeProducerStarts(t *testing.T) {
	a := Start(func(ctx context.Context, emit func(int)) error {
		<-ctx.Done()
		return ctx.Err()
	})
	a.Cancel()
	done := make(chan struct{})
	go func() {
		a.Collect()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Collect() did not return after Cancel")
	}
}
