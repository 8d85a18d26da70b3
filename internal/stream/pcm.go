package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/asticode/go-astiav"
)

const (
	SampleRate = 48000
	Channels   = 2
	FrameSize  = 960 // samples per channel in 20 ms
	FrameBytes = FrameSize * Channels * 2
)

// PCMStreamer decodes an input with FFmpeg and writes interleaved s16le
// stereo 48 kHz PCM to the reader returned by Stdout.
type PCMStreamer struct {
	fc          *astiav.FormatContext
	audioStream *astiav.Stream
	decCtx      *astiav.CodecContext
	swr         *astiav.SoftwareResampleContext
	srcFrame    *astiav.Frame
	dstFrame    *astiav.Frame
	pkt         *astiav.Packet

	cancel context.CancelFunc
	pr     *io.PipeReader
	pw     *io.PipeWriter
	done   chan struct{}

	closeOnce sync.Once
	errMu     sync.Mutex
	runErr    error
}

// StartPCMStream opens inputURL and starts decoding in the background.
// headers, when non-empty, is passed to FFmpeg's HTTP protocol. ioTimeout
// bounds every blocking network read, including the initial open.
func StartPCMStream(ctx context.Context, inputURL, headers string, ioTimeout time.Duration) (*PCMStreamer, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("alloc format context")
	}

	dict := astiav.NewDictionary()
	defer dict.Free()
	_ = dict.Set("reconnect", "1", 0)
	_ = dict.Set("reconnect_streamed", "1", 0)
	_ = dict.Set("reconnect_delay_max", "5", 0)
	if headers != "" {
		_ = dict.Set("headers", headers, 0)
	}
	if ioTimeout > 0 {
		// microseconds
		_ = dict.Set("rw_timeout", strconv.FormatInt(ioTimeout.Microseconds(), 10), 0)
	}

	if err := fc.OpenInput(inputURL, nil, dict); err != nil {
		fc.Free()
		return nil, fmt.Errorf("open input: %w", err)
	}

	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("find stream info: %w", err)
	}

	st, codec, err := fc.FindBestStream(astiav.MediaTypeAudio, -1, -1)
	if err != nil || st == nil || codec == nil {
		fc.CloseInput()
		fc.Free()
		if err != nil {
			return nil, fmt.Errorf("find best audio stream: %w", err)
		}
		return nil, errors.New("no audio stream found")
	}

	decCtx := astiav.AllocCodecContext(codec)
	if decCtx == nil {
		fc.CloseInput()
		fc.Free()
		return nil, errors.New("alloc codec context")
	}
	if err := decCtx.FromCodecParameters(st.CodecParameters()); err != nil {
		decCtx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("codec from params: %w", err)
	}
	decCtx.SetTimeBase(st.TimeBase())

	if err := decCtx.Open(codec, nil); err != nil {
		decCtx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("open decoder: %w", err)
	}

	swr := astiav.AllocSoftwareResampleContext()
	srcFrame := astiav.AllocFrame()
	dstFrame := astiav.AllocFrame()
	pkt := astiav.AllocPacket()
	if swr == nil || srcFrame == nil || dstFrame == nil || pkt == nil {
		if swr != nil {
			swr.Free()
		}
		if srcFrame != nil {
			srcFrame.Free()
		}
		if dstFrame != nil {
			dstFrame.Free()
		}
		if pkt != nil {
			pkt.Free()
		}
		decCtx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, errors.New("alloc decode state")
	}

	pr, pw := io.Pipe()
	runCtx, cancel := context.WithCancel(ctx)
	ps := &PCMStreamer{
		fc:          fc,
		audioStream: st,
		decCtx:      decCtx,
		swr:         swr,
		srcFrame:    srcFrame,
		dstFrame:    dstFrame,
		pkt:         pkt,
		cancel:      cancel,
		pr:          pr,
		pw:          pw,
		done:        make(chan struct{}),
	}

	go ps.run(runCtx)

	return ps, nil
}

func (s *PCMStreamer) Stdout() io.Reader { return s.pr }

// Err reports why decoding stopped, if it stopped abnormally.
func (s *PCMStreamer) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.runErr
}

// Close stops decoding and releases FFmpeg state. The decode goroutine is
// waited for before anything is freed.
func (s *PCMStreamer) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.pr.Close()
		<-s.done

		s.pkt.Free()
		s.srcFrame.Free()
		s.dstFrame.Free()
		s.swr.Free()
		s.decCtx.Free()
		s.fc.CloseInput()
		s.fc.Free()
	})
}

func (s *PCMStreamer) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		_ = s.pw.CloseWithError(s.Err())
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.pkt.Unref()
		if err := s.fc.ReadFrame(s.pkt); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				s.drain()
				return
			}
			if errors.Is(err, astiav.ErrEagain) {
				continue
			}
			s.setErr(fmt.Errorf("read frame: %w", err))
			return
		}

		if s.pkt.StreamIndex() != s.audioStream.Index() {
			continue
		}

		if err := s.decCtx.SendPacket(s.pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
			s.setErr(fmt.Errorf("send packet: %w", err))
			return
		}

		if err := s.receiveFrames(); err != nil {
			s.setErr(err)
			return
		}
	}
}

// drain flushes frames still buffered in the decoder at end of input.
func (s *PCMStreamer) drain() {
	_ = s.decCtx.SendPacket(nil)
	if err := s.receiveFrames(); err != nil {
		s.setErr(err)
	}
}

func (s *PCMStreamer) receiveFrames() error {
	for {
		s.srcFrame.Unref()
		if err := s.decCtx.ReceiveFrame(s.srcFrame); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("receive frame: %w", err)
		}
		if err := s.convertAndWrite(s.srcFrame); err != nil {
			return err
		}
	}
}

func (s *PCMStreamer) convertAndWrite(src *astiav.Frame) error {
	nb := src.NbSamples()
	if rate := src.SampleRate(); rate > 0 && rate != SampleRate {
		// room for the resampler's output plus its delay
		nb = nb*SampleRate/rate + 64
	}

	s.dstFrame.Unref()
	s.dstFrame.SetNbSamples(nb)
	s.dstFrame.SetChannelLayout(astiav.ChannelLayoutStereo)
	s.dstFrame.SetSampleRate(SampleRate)
	s.dstFrame.SetSampleFormat(astiav.SampleFormatS16)
	if err := s.dstFrame.AllocBuffer(0); err != nil {
		return fmt.Errorf("dst alloc buffer: %w", err)
	}

	if err := s.swr.ConvertFrame(src, s.dstFrame); err != nil {
		return fmt.Errorf("swr convert: %w", err)
	}
	if s.dstFrame.NbSamples() == 0 {
		return nil
	}

	b, err := s.dstFrame.Data().Bytes(0)
	if err != nil {
		return fmt.Errorf("dst bytes: %w", err)
	}
	_, err = s.pw.Write(b)
	return err
}

func (s *PCMStreamer) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.runErr == nil {
		s.runErr = err
	}
}
