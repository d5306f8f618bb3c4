package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitDeliversInOrder(t *testing.T) {
	bus := NewBus(nil)

	var got []string
	bus.Subscribe(GenerationFragment, func(e Event) {
		got = append(got, e.Data.(Generation).Fragment)
	})

	for _, f := range []string{"A", "B", "C"} {
		bus.Emit(GenerationFragment, Generation{Fragment: f})
	}

	assert.Equal(t, []string{"A", "B", "C"}, got)
}

func TestEmitOnlyMatchingType(t *testing.T) {
	bus := NewBus(nil)

	var typed, all []EventType
	bus.Subscribe(HistoryChanged, func(e Event) { typed = append(typed, e.Type) })
	bus.SubscribeAll(func(e Event) { all = append(all, e.Type) })

	bus.Emit(GenerationStarted, Generation{})
	bus.Emit(HistoryChanged, History{Count: 1})

	assert.Equal(t, []EventType{HistoryChanged}, typed)
	assert.Equal(t, []EventType{GenerationStarted, HistoryChanged}, all)
}

func TestEmitRecoversFromPanic(t *testing.T) {
	bus := NewBus(nil)

	called := false
	bus.Subscribe(ProjectChanged, func(Event) { panic("boom") })
	bus.Subscribe(ProjectChanged, func(Event) { called = true })

	assert.NotPanics(t, func() { bus.Emit(ProjectChanged, nil) })
	assert.True(t, called)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(nil)

	count := 0
	bus.Subscribe(ModelsLoaded, func(Event) { count++ })
	bus.Emit(ModelsLoaded, nil)
	bus.Unsubscribe(ModelsLoaded)
	bus.Emit(ModelsLoaded, nil)

	assert.Equal(t, 1, count)
}

func TestNilBusIgnoresEmit(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() { bus.Emit(GenerationStarted, nil) })
}

func TestConcurrentSubscribeAndEmit(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Subscribe(ConnectionChanged, func(Event) {
				mu.Lock()
				count++
				mu.Unlock()
			})
		}()
		go func() {
			defer wg.Done()
			bus.Emit(ConnectionChanged, Connection{Connected: true})
		}()
	}
	wg.Wait()

	bus.Emit(ConnectionChanged, nil)
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, count, 8)
}
