package player

import (
	"context"
	"sync"
	"time"
)

// opusBuffer is a bounded ring of Opus packets between the producer reading
// the source and the consumer writing to the voice connection.
type opusBuffer struct {
	mu       sync.Mutex
	packets  [][]byte
	maxSize  int
	readPos  int
	writePos int
	closed   bool
	eos      bool
	notEmpty *sync.Cond
}

func newOpusBuffer(maxPackets int) *opusBuffer {
	if maxPackets < 2 {
		maxPackets = 2
	}
	ob := &opusBuffer{
		packets: make([][]byte, maxPackets),
		maxSize: maxPackets,
	}
	ob.notEmpty = sync.NewCond(&ob.mu)
	return ob
}

func (ob *opusBuffer) usedLocked() int {
	return (ob.writePos - ob.readPos + ob.maxSize) % ob.maxSize
}

// Push appends a packet. It returns false if the buffer is full or closed.
func (ob *opusBuffer) Push(data []byte) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if ob.closed || ob.eos {
		return false
	}
	if ob.usedLocked() >= ob.maxSize-1 {
		return false
	}

	ob.packets[ob.writePos] = data
	ob.writePos = (ob.writePos + 1) % ob.maxSize
	ob.notEmpty.Signal()
	return true
}

// PushWait retries Push until it succeeds, the buffer closes or ctx ends.
func (ob *opusBuffer) PushWait(ctx context.Context, data []byte) bool {
	for {
		if ob.Push(data) {
			return true
		}
		if ob.isClosed() {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// Pop blocks until a packet is available. It returns false once the buffer
// is closed, or drained after MarkEOS.
func (ob *opusBuffer) Pop() ([]byte, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	for {
		if ob.closed {
			return nil, false
		}
		if ob.usedLocked() > 0 {
			pkt := ob.packets[ob.readPos]
			ob.packets[ob.readPos] = nil
			ob.readPos = (ob.readPos + 1) % ob.maxSize
			return pkt, true
		}
		if ob.eos {
			return nil, false
		}
		ob.notEmpty.Wait()
	}
}

// WaitFill blocks until n packets are buffered, the stream ended, or timeout.
func (ob *opusBuffer) WaitFill(ctx context.Context, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		ob.mu.Lock()
		ready := ob.usedLocked() >= n || ob.usedLocked() >= ob.maxSize-1 || ob.eos
		closed := ob.closed
		ob.mu.Unlock()
		if closed {
			return false
		}
		if ready || time.Now().After(deadline) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (ob *opusBuffer) BufferedCount() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.usedLocked()
}

func (ob *opusBuffer) isClosed() bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.closed
}

func (ob *opusBuffer) MarkEOS() {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.eos = true
	ob.notEmpty.Broadcast()
}

func (ob *opusBuffer) Close() {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.closed = true
	ob.notEmpty.Broadcast()
}
