package signal

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal_SetNotifiesOnChange(t *testing.T) {
	s := New(1)

	var got []int
	stop := s.Subscribe(func(v int) { got = append(got, v) })

	s.Set(2)
	s.Set(2)
	s.Set(3)
	s.Update(func(v int) int { return v * 10 })

	assert.Equal(t, []int{2, 3, 30}, got)
	assert.Equal(t, 30, s.Get())

	stop()
	stop()
	s.Set(4)
	assert.Equal(t, []int{2, 3, 30}, got)
	assert.Equal(t, 0, s.Subscribers())
}

func TestSignal_Observe(t *testing.T) {
	s := New("a")

	var got []string
	stop := s.Observe(func(v string) { got = append(got, v) })
	defer stop()

	s.Set("b")
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestSignal_DeepEqualByDefault(t *testing.T) {
	s := New([]string{"a"})

	calls := 0
	defer s.Subscribe(func([]string) { calls++ })()

	s.Set([]string{"a"})
	assert.Equal(t, 0, calls)
	s.Set([]string{"a", "b"})
	assert.Equal(t, 1, calls)
}

func TestSignal_WithEqual(t *testing.T) {
	s := New("Hello", WithEqual(strings.EqualFold))

	calls := 0
	defer s.Subscribe(func(string) { calls++ })()

	s.Set("HELLO")
	assert.Equal(t, 0, calls)
	assert.Equal(t, "Hello", s.Get())
}

func TestMap(t *testing.T) {
	type prefs struct {
		Name  string
		Color string
	}
	src := New(prefs{Name: "Ann", Color: "red"})

	name, stop := Map(src, func(p prefs) string { return p.Name })
	assert.Equal(t, "Ann", name.Get())

	var got []string
	defer name.Subscribe(func(v string) { got = append(got, v) })()

	// смена цвета не меняет производное значение
	src.Set(prefs{Name: "Ann", Color: "blue"})
	assert.Empty(t, got)

	src.Set(prefs{Name: "Bob", Color: "blue"})
	assert.Equal(t, []string{"Bob"}, got)

	stop()
	assert.Equal(t, 0, src.Subscribers())
	src.Set(prefs{Name: "Eve"})
	assert.Equal(t, "Bob", name.Get())
}

func TestSignal_ConcurrentSet(t *testing.T) {
	s := New(0)

	var mu sync.Mutex
	count := 0
	defer s.Subscribe(func(int) {
		mu.Lock()
		count++
		mu.Unlock()
	})()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() { s.Set(i + 1) })
	}
	wg.Wait()

	require.NotZero(t, s.Get())
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, count, 1)
	assert.LessOrEqual(t, count, 50)
}
