// Copyright 2024-2026 Aiku AI

package rtm

import "sync"

// frameKind discriminates entries on the send queue. Control frames travel
// through the same queue as data frames so that everything reaches the wire
// in enqueue order.
type frameKind int

const (
	frameText frameKind = iota
	framePing
	framePong
	// frameClosed is the sentinel pushed when the connection is lost. It
	// unblocks the drain loop and terminates Run.
	frameClosed
)

type frame struct {
	kind frameKind
	data []byte
}

// sendQueue is an unbounded FIFO with any number of producers and a single
// consumer. push never blocks; pop blocks until a frame is available.
type sendQueue struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	frames   []frame
}

func newSendQueue() *sendQueue {
	q := &sendQueue{}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

func (q *sendQueue) push(f frame) {
	q.mu.Lock()
	q.frames = append(q.frames, f)
	q.mu.Unlock()
	q.nonEmpty.Signal()
}

func (q *sendQueue) pop() frame {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.frames) == 0 {
		q.nonEmpty.Wait()
	}
	f := q.frames[0]
	q.frames = q.frames[1:]
	return f
}

func (q *sendQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}
