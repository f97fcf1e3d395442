package rtc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dkeye/roomrec/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/h264writer"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

var ErrUnsupportedContainer = errors.New("unsupported container")

// sink consumes the RTP packets of one track.
type sink interface {
	WriteRTP(pkt *rtp.Packet) error
	Close() error
}

// countingFile counts what reaches disk.
type countingFile struct {
	f    *os.File
	n    atomic.Int64
	once sync.Once
	err  error
}

func createCounting(path string) (*countingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &countingFile{f: f}, nil
}

func (c *countingFile) Write(p []byte) (int, error) {
	n, err := c.f.Write(p)
	c.n.Add(int64(n))
	return n, err
}

func (c *countingFile) Close() error {
	c.once.Do(func() { c.err = c.f.Close() })
	return c.err
}

func (c *countingFile) Written() int64 { return c.n.Load() }

// openSink builds the writer for a chain. The counting file is nil for the
// discard chain.
func openSink(spec domain.ChainSpec, track domain.Track, opts Options) (sink, *countingFile, error) {
	if spec.Container == domain.ContainerNone {
		return discardSink{}, nil, nil
	}
	out, err := createCounting(spec.OutputPath)
	if err != nil {
		return nil, nil, err
	}

	var s sink
	switch spec.Container {
	case domain.ContainerMPEGTS:
		s = h264writer.NewWith(out)
	case domain.ContainerOgg:
		channels := track.Channels
		if channels == 0 {
			channels = 2
		}
		rate := track.ClockRate
		if rate == 0 {
			rate = 48000
		}
		s, err = oggwriter.NewWith(out, rate, channels)
	case domain.ContainerMatroska:
		s, err = newWebmSink(out, track, opts)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedContainer, spec.Container)
	}
	if err != nil {
		_ = out.Close()
		_ = os.Remove(spec.OutputPath)
		return nil, nil, err
	}
	return s, out, nil
}

type discardSink struct{}

func (discardSink) WriteRTP(*rtp.Packet) error { return nil }
func (discardSink) Close() error               { return nil }
