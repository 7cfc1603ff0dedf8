package auth

import (
	"context"
	"sync"
)

// AuthenticationState is the pair published to UI observers.
type AuthenticationState struct {
	IsAuthenticated  bool
	IsAuthenticating bool
}

// stateBroadcaster fans state changes out to subscribers. Slow subscribers only
// ever see the latest value.
type stateBroadcaster struct {
	mu      sync.Mutex
	current AuthenticationState
	subs    map[chan AuthenticationState]struct{}
}

func newStateBroadcaster() *stateBroadcaster {
	return &stateBroadcaster{subs: make(map[chan AuthenticationState]struct{})}
}

func (b *stateBroadcaster) get() AuthenticationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// update applies fn to the current state and notifies subscribers on change.
func (b *stateBroadcaster) update(fn func(*AuthenticationState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := b.current
	fn(&next)
	if next == b.current {
		return
	}
	b.current = next
	for ch := range b.subs {
		deliverLatest(ch, next)
	}
}

func (b *stateBroadcaster) subscribe(ctx context.Context) <-chan AuthenticationState {
	ch := make(chan AuthenticationState, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	ch <- b.current
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

func deliverLatest(ch chan AuthenticationState, state AuthenticationState) {
	select {
	case ch <- state:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- state:
	default:
	}
}
