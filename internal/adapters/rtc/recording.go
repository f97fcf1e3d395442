package rtc

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/dkeye/roomrec/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

type rtpReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// recording is the RecordingHandle for one attached chain. Close never waits
// for the pump: the pump may be blocked in ReadRTP until the connection closes.
type recording struct {
	spec domain.ChainSpec
	out  *countingFile

	mu     sync.Mutex
	sink   sink
	closed bool
	err    error
}

func newRecording(spec domain.ChainSpec, s sink, out *countingFile) *recording {
	return &recording{spec: spec, sink: s, out: out}
}

func (r *recording) Path() string { return r.spec.OutputPath }

func (r *recording) BytesWritten() int64 {
	if r.out == nil {
		return 0
	}
	return r.out.Written()
}

func (r *recording) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.err
	}
	r.closed = true
	r.err = r.sink.Close()
	if r.out != nil {
		if err := r.out.Close(); err != nil && r.err == nil {
			r.err = err
		}
	}
	return r.err
}

// pump reads RTP from the track into the sink until the track ends or the
// recording is closed.
func (r *recording) pump(ctx context.Context, track rtpReader, logger *zerolog.Logger) {
	var failed int
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("pump ctx done")
			return
		default:
		}
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn().Err(err).Msg("read RTP error, stopping")
			}
			return
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return
		}
		err = r.sink.WriteRTP(pkt)
		r.mu.Unlock()
		if err != nil {
			// Write errors do not stop draining.
			if failed++; failed == 1 || failed%1000 == 0 {
				logger.Error().Err(err).Int("failures", failed).Msg("sink write error")
			}
		}
	}
}
