package mpsc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type item struct {
	producer int
	seq      int
}

func TestQueueSingleProducerFIFO(t *testing.T) {
	q := New[item]()

	nodes := make([]Node[item], 10)
	for i := range nodes {
		nodes[i].Value = item{seq: i}
		q.Push(&nodes[i])
	}

	for i := 0; i < len(nodes); i++ {
		n := q.Pop()
		require.NotNil(t, n)
		require.Equal(t, i, n.Value.seq)
	}

	require.Nil(t, q.Pop())
}

func TestQueueManyProducers(t *testing.T) {
	const (
		producers       = 8
		perProducer     = 1000
		total       int = producers * perProducer
	)

	q := New[item]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()

			nodes := make([]Node[item], perProducer)
			for i := range nodes {
				nodes[i].Value = item{producer: p, seq: i}
				q.Push(&nodes[i])
			}
		}(p)
	}

	popped := 0
	lastSeq := make([]int, producers)
	for i := range lastSeq {
		lastSeq[i] = -1
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for popped < total {
		n := q.Pop()
		if n == nil {
			select {
			case <-done:
				// producers finished; anything left must be poppable now
				if n = q.Pop(); n == nil {
					continue
				}
			default:
				continue
			}
		}

		popped++
		require.Greater(t, n.Value.seq, lastSeq[n.Value.producer],
			"per-producer FIFO violated")
		lastSeq[n.Value.producer] = n.Value.seq
	}

	require.Nil(t, q.Pop())
	for p, last := range lastSeq {
		require.Equal(t, perProducer-1, last, "producer %d lost pushes", p)
	}
}

func TestQueueNodeReuseAfterPop(t *testing.T) {
	q := New[int]()

	var n Node[int]
	for i := 0; i < 100; i++ {
		n.Value = i
		q.Push(&n)

		got := q.Pop()
		require.NotNil(t, got)
		require.Equal(t, i, got.Value)
	}
}
