package eventqueue

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestPushPopFIFO(t *testing.T) {
	q := New[int](3)
	q.Push(1)
	q.Push(2)
	q.Push(3)

	v, ok := q.Pop()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 1)
}

func TestOverflowDropsOldest(t *testing.T) {
	q := New[int](2)
	q.Push(1)
	q.Push(2)
	q.Push(3) // evicts 1

	v, ok := q.Pop()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 2)

	v, ok = q.Pop()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 3)

	test.That(t, q.Dropped, test.ShouldEqual, 1)
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New[int](4)
	resultCh := make(chan int, 1)
	go func() {
		v, _ := q.Pop()
		resultCh <- v
	}()

	select {
	case <-resultCh:
		t.Fatal("Pop returned before any Push")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(42)
	select {
	case v := <-resultCh:
		test.That(t, v, test.ShouldEqual, 42)
	case <-time.After(time.Second):
		t.Fatal("Pop never woke after Push")
	}
}

func TestCloseUnblocksPop(t *testing.T) {
	q := New[int](4)
	doneCh := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		doneCh <- ok
	}()

	q.Close()
	select {
	case ok := <-doneCh:
		test.That(t, ok, test.ShouldBeFalse)
	case <-time.After(time.Second):
		t.Fatal("Pop never woke after Close")
	}
}

func TestDropWhereRemovesMatching(t *testing.T) {
	q := New[int](5)
	q.Push(1)
	q.Push(2)
	q.Push(3)
	q.Push(4)

	q.DropWhere(func(v int) bool { return v%2 == 0 })
	test.That(t, q.Len(), test.ShouldEqual, 2)

	v, ok := q.Pop()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 1)
	v, ok = q.Pop()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 3)
}

func TestTryPopNonBlocking(t *testing.T) {
	q := New[int](2)
	_, ok := q.TryPop()
	test.That(t, ok, test.ShouldBeFalse)

	q.Push(5)
	v, ok := q.TryPop()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 5)
}
