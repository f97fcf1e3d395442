package domain

import "strings"

type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// Codec is the upper-case RTP encoding name.
type Codec string

const (
	CodecH264 Codec = "H264"
	CodecH265 Codec = "H265"
	CodecVP8  Codec = "VP8"
	CodecVP9  Codec = "VP9"
	CodecAV1  Codec = "AV1"
	CodecOpus Codec = "OPUS"
	CodecPCMU Codec = "PCMU"
	CodecPCMA Codec = "PCMA"
	CodecG722 Codec = "G722"
)

// CodecFromMimeType splits "video/VP8" into its kind and codec.
func CodecFromMimeType(mime string) (MediaKind, Codec) {
	kind, name, ok := strings.Cut(mime, "/")
	if !ok {
		return "", Codec(strings.ToUpper(mime))
	}
	return MediaKind(strings.ToLower(kind)), Codec(strings.ToUpper(name))
}

// Track is a negotiated remote track reported by the media engine.
type Track struct {
	ID        string    `json:"id"`
	Kind      MediaKind `json:"kind"`
	Codec     Codec     `json:"codec"`
	ClockRate uint32    `json:"clock_rate,omitempty"`
	Channels  uint16    `json:"channels,omitempty"`
}

type Container string

const (
	ContainerMPEGTS   Container = "mpegts"
	ContainerMatroska Container = "matroska"
	ContainerOgg      Container = "ogg"
	// ContainerNone drains the track without writing anything.
	ContainerNone Container = "none"
)

// ChainSpec describes how one negotiated track is processed and stored.
type ChainSpec struct {
	Name        string    `json:"name"`
	Kind        MediaKind `json:"kind"`
	Codec       Codec     `json:"codec"`
	Container   Container `json:"container"`
	Extension   string    `json:"extension,omitempty"`
	Depayloader string    `json:"depayloader,omitempty"`
	Parser      string    `json:"parser,omitempty"`
	Muxer       string    `json:"muxer,omitempty"`
	OutputPath  string    `json:"output_path,omitempty"`
}

// DiscardChain is attached to tracks nothing can record.
func DiscardChain(t Track) ChainSpec {
	return ChainSpec{Name: "discard", Kind: t.Kind, Codec: t.Codec, Container: ContainerNone}
}
