package throttle

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sink[T any] struct {
	mu  sync.Mutex
	got []T
}

func (s *sink[T]) add(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, v)
}

func (s *sink[T]) values() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.got...)
}

func TestLeadingThenLastValue(t *testing.T) {
	s := &sink[int]{}
	th := New(200*time.Millisecond, s.add)
	defer th.Stop()

	th.Call(1)
	assert.Equal(t, []int{1}, s.values())

	th.Call(2)
	th.Call(3)
	th.Call(4)
	assert.True(t, th.Pending())
	assert.Equal(t, []int{1}, s.values())

	require.Eventually(t, func() bool { return len(s.values()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []int{1, 4}, s.values())
	assert.False(t, th.Pending())
}

func TestFlush(t *testing.T) {
	s := &sink[string]{}
	th := New(time.Hour, s.add)
	defer th.Stop()

	th.Call("a")
	th.Call("b")
	th.Call("c")
	th.Flush()
	assert.Equal(t, []string{"a", "c"}, s.values())

	th.Flush()
	assert.Equal(t, []string{"a", "c"}, s.values())
}

func TestStopDropsPending(t *testing.T) {
	s := &sink[int]{}
	th := New(50*time.Millisecond, s.add)

	th.Call(1)
	th.Call(2)
	th.Stop()
	th.Call(3)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []int{1}, s.values())
}

func TestZeroIntervalPassesThrough(t *testing.T) {
	s := &sink[int]{}
	th := New(0, s.add)
	defer th.Stop()

	for i := 0; i < 5; i++ {
		th.Call(i)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, s.values())
}

func TestGroupKeepsKeysApart(t *testing.T) {
	type call struct {
		key string
		v   int
	}
	s := &sink[call]{}
	g := NewGroup(time.Hour, func(k string, v int) { s.add(call{k, v}) })
	defer g.Stop()

	g.Call("a", 1)
	g.Call("a", 2)
	g.Call("b", 10)
	g.Call("b", 11)
	g.Call("a", 3)

	assert.Equal(t, []call{{"a", 1}, {"b", 10}}, s.values())

	g.Forget("b")
	assert.Equal(t, []call{{"a", 1}, {"b", 10}, {"b", 11}}, s.values())

	g.Flush()
	assert.Equal(t, []call{{"a", 1}, {"b", 10}, {"b", 11}, {"a", 3}}, s.values())
}

func TestGroupStop(t *testing.T) {
	calls := 0
	g := NewGroup(time.Hour, func(string, int) { calls++ })
	g.Call("a", 1)
	g.Call("a", 2)
	g.Stop()
	g.Call("a", 3)
	g.Flush()
	assert.Equal(t, 1, calls)
}
