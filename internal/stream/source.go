package stream

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Source yields 20 ms Opus frames. ReadOpus returns io.EOF once the input is
// exhausted.
type Source interface {
	ReadOpus() ([]byte, error)
	Close()
}

// OpusSource encodes a PCM stream into Opus frames on demand.
type OpusSource struct {
	pcm *PCMStreamer
	enc *Encoder

	buf     []byte
	pending [][]byte
	eof     bool

	mu        sync.Mutex // guards enc against Close
	closed    bool
	closeOnce sync.Once
}

func NewOpusSource(pcm *PCMStreamer) (*OpusSource, error) {
	enc, err := NewEncoder()
	if err != nil {
		return nil, err
	}
	return &OpusSource{pcm: pcm, enc: enc, buf: make([]byte, FrameBytes)}, nil
}

func (o *OpusSource) collect(pkt []byte) error {
	cp := make([]byte, len(pkt))
	copy(cp, pkt)
	o.pending = append(o.pending, cp)
	return nil
}

func (o *OpusSource) ReadOpus() ([]byte, error) {
	for len(o.pending) == 0 {
		if o.eof {
			return nil, io.EOF
		}

		n, err := io.ReadFull(o.pcm.Stdout(), o.buf)
		if err := o.encode(n, err); err != nil {
			return nil, err
		}
	}

	pkt := o.pending[0]
	o.pending = o.pending[1:]
	return pkt, nil
}

func (o *OpusSource) encode(n int, readErr error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return io.ErrClosedPipe
	}

	switch {
	case readErr == nil:
		return o.enc.EncodeFrame(o.buf, o.collect)
	case errors.Is(readErr, io.ErrUnexpectedEOF) || errors.Is(readErr, io.EOF):
		// pad the tail with silence so the encoder sees a full frame
		if n > 0 {
			clear(o.buf[n:])
			if err := o.enc.EncodeFrame(o.buf, o.collect); err != nil {
				return err
			}
		}
		o.eof = true
		return o.enc.Flush(o.collect)
	default:
		return fmt.Errorf("read pcm: %w", readErr)
	}
}

// Close stops decoding first so a blocked ReadOpus returns, then frees the
// encoder.
func (o *OpusSource) Close() {
	o.closeOnce.Do(func() {
		o.pcm.Close()
		o.mu.Lock()
		o.closed = true
		o.enc.Close()
		o.mu.Unlock()
	})
}
