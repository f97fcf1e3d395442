package rtc

import (
	"fmt"
	"io"

	"github.com/at-wat/ebml-go/webm"
	"github.com/dkeye/roomrec/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4/pkg/media/samplebuilder"
)

const maxLate = 128

// webmSink reassembles frames from RTP and writes them as Matroska
// SimpleBlocks, one track per file.
type webmSink struct {
	builder  *samplebuilder.SampleBuilder
	w        webm.BlockWriteCloser
	rate     uint32
	first    uint32
	started  bool
	keyframe func([]byte) bool
}

func newWebmSink(out io.WriteCloser, track domain.Track, opts Options) (*webmSink, error) {
	entry := webm.TrackEntry{
		Name:        string(track.Kind),
		TrackNumber: 1,
		TrackUID:    1,
	}
	s := &webmSink{rate: track.ClockRate}
	var depacketizer rtp.Depacketizer

	switch track.Codec {
	case domain.CodecVP8:
		entry.CodecID, entry.TrackType = "V_VP8", 1
		entry.Video = &webm.Video{PixelWidth: uint64(opts.VideoWidth), PixelHeight: uint64(opts.VideoHeight)}
		depacketizer, s.keyframe = &codecs.VP8Packet{}, vp8Keyframe
	case domain.CodecVP9:
		entry.CodecID, entry.TrackType = "V_VP9", 1
		entry.Video = &webm.Video{PixelWidth: uint64(opts.VideoWidth), PixelHeight: uint64(opts.VideoHeight)}
		depacketizer, s.keyframe = &codecs.VP9Packet{}, vp9Keyframe
	case domain.CodecOpus:
		channels := uint64(track.Channels)
		if channels == 0 {
			channels = 2
		}
		entry.CodecID, entry.TrackType = "A_OPUS", 2
		entry.Audio = &webm.Audio{SamplingFrequency: 48000, Channels: channels}
		depacketizer, s.keyframe = &codecs.OpusPacket{}, func([]byte) bool { return true }
	default:
		return nil, fmt.Errorf("%w: %s in matroska", ErrUnsupportedContainer, track.Codec)
	}
	if s.rate == 0 {
		s.rate = 90000
		if track.Kind == domain.KindAudio {
			s.rate = 48000
		}
	}

	ws, err := webm.NewSimpleBlockWriter(out, []webm.TrackEntry{entry})
	if err != nil {
		return nil, fmt.Errorf("webm writer: %w", err)
	}
	s.w = ws[0]
	s.builder = samplebuilder.New(maxLate, depacketizer, s.rate)
	return s, nil
}

func (s *webmSink) WriteRTP(pkt *rtp.Packet) error {
	s.builder.Push(pkt)
	for sample := s.builder.Pop(); sample != nil; sample = s.builder.Pop() {
		if len(sample.Data) == 0 {
			continue
		}
		key := s.keyframe(sample.Data)
		if !s.started {
			if !key {
				continue
			}
			s.started, s.first = true, sample.PacketTimestamp
		}
		ms := int64(sample.PacketTimestamp-s.first) * 1000 / int64(s.rate)
		if _, err := s.w.Write(key, ms, sample.Data); err != nil {
			return err
		}
	}
	return nil
}

func (s *webmSink) Close() error { return s.w.Close() }

// vp8Keyframe reads the P bit of the VP8 frame tag.
func vp8Keyframe(b []byte) bool {
	return len(b) > 0 && b[0]&0x01 == 0
}

// vp9Keyframe reads frame_type from the uncompressed header.
func vp9Keyframe(b []byte) bool {
	if len(b) == 0 || b[0]>>6 != 0x2 {
		return false
	}
	profile := (b[0]>>5)&0x1 | (b[0]>>3)&0x2
	shift := uint(0)
	if profile == 3 {
		shift = 1
	}
	showExisting := (b[0] >> (3 - shift)) & 0x1
	if showExisting == 1 {
		return false
	}
	return (b[0]>>(2-shift))&0x1 == 0
}
