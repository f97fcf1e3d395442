// Package record decides which processing chain a negotiated track gets.
package record

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkeye/roomrec/internal/domain"
)

var ErrUnsupported = errors.New("unsupported codec")

type AudioMode string

const (
	// AudioStandalone writes Opus to its own Ogg file.
	AudioStandalone AudioMode = "standalone"
	// AudioEmbedded keeps Opus in a Matroska container.
	AudioEmbedded AudioMode = "embedded"
)

type chainKey struct {
	kind  domain.MediaKind
	codec domain.Codec
}

var videoChains = map[chainKey]domain.ChainSpec{
	{domain.KindVideo, domain.CodecH264}: {
		Name:        "h264-ts",
		Container:   domain.ContainerMPEGTS,
		Extension:   "ts",
		Depayloader: "rtph264depay",
		Parser:      "h264parse",
		Muxer:       "mpegtsmux",
	},
	{domain.KindVideo, domain.CodecVP8}: {
		Name:        "vp8-mkv",
		Container:   domain.ContainerMatroska,
		Extension:   "mkv",
		Depayloader: "rtpvp8depay",
		Muxer:       "matroskamux",
	},
	{domain.KindVideo, domain.CodecVP9}: {
		Name:        "vp9-mkv",
		Container:   domain.ContainerMatroska,
		Extension:   "mkv",
		Depayloader: "rtpvp9depay",
		Muxer:       "matroskamux",
	},
}

var audioChains = map[AudioMode]map[chainKey]domain.ChainSpec{
	AudioStandalone: {
		{domain.KindAudio, domain.CodecOpus}: {
			Name:        "opus-ogg",
			Container:   domain.ContainerOgg,
			Extension:   "ogg",
			Depayloader: "rtpopusdepay",
			Muxer:       "oggmux",
		},
	},
	AudioEmbedded: {
		{domain.KindAudio, domain.CodecOpus}: {
			Name:        "opus-mka",
			Container:   domain.ContainerMatroska,
			Extension:   "mka",
			Depayloader: "rtpopusdepay",
			Muxer:       "matroskamux",
		},
	},
}

type Options struct {
	Room      string
	OutputDir string
	AudioMode AudioMode
}

// Selector is a static (kind, codec) -> chain table.
type Selector struct {
	room  string
	dir   string
	table map[chainKey]domain.ChainSpec
}

func NewSelector(opts Options) (*Selector, error) {
	mode := opts.AudioMode
	if mode == "" {
		mode = AudioStandalone
	}
	audio, ok := audioChains[mode]
	if !ok {
		return nil, fmt.Errorf("unknown audio mode %q", mode)
	}
	table := make(map[chainKey]domain.ChainSpec, len(videoChains)+len(audio))
	for k, v := range videoChains {
		table[k] = v
	}
	for k, v := range audio {
		table[k] = v
	}
	for k, v := range table {
		v.Kind, v.Codec = k.kind, k.codec
		table[k] = v
	}
	return &Selector{room: opts.Room, dir: opts.OutputDir, table: table}, nil
}

// Select returns the chain for a track, or ErrUnsupported.
func (s *Selector) Select(kind domain.MediaKind, codec domain.Codec) (domain.ChainSpec, error) {
	spec, ok := s.table[chainKey{kind, codec}]
	if !ok {
		return domain.ChainSpec{}, fmt.Errorf("%w: %s/%s", ErrUnsupported, kind, codec)
	}
	return spec, nil
}

// Prepare fills in where the chain writes: {room}_{stream}_{unix}.{ext}, with an
// "_audio" suffix for audio tracks.
func (s *Selector) Prepare(spec domain.ChainSpec, stream domain.StreamID, now time.Time) domain.ChainSpec {
	name := fmt.Sprintf("%s_%s_%d", sanitize(s.room), sanitize(string(stream)), now.Unix())
	if spec.Kind == domain.KindAudio {
		name += "_audio"
	}
	spec.OutputPath = filepath.Join(s.dir, name+"."+spec.Extension)
	return spec
}

func sanitize(s string) string {
	if s == "" {
		return "room"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}
