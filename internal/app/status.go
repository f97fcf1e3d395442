package app

import (
	"time"

	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/domain"
)

type RecordingView struct {
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

type SessionView struct {
	ID           string           `json:"id"`
	StreamID     domain.StreamID  `json:"stream_id"`
	UUID         domain.UUID      `json:"uuid,omitempty"`
	Session      domain.SessionID `json:"session,omitempty"`
	State        string           `json:"state"`
	Generation   int              `json:"generation"`
	Degraded     bool             `json:"degraded"`
	Media        []domain.Track   `json:"media,omitempty"`
	Recordings   []RecordingView  `json:"recordings,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	LastActivity time.Time        `json:"last_activity"`
}

// Status is the aggregate view of the recorder. Per-session failures are
// visible only here and in the metrics.
type Status struct {
	Room          string         `json:"room"`
	Counts        map[string]int `json:"counts"`
	Unrouted      int64          `json:"unrouted"`
	Anomalies     int64          `json:"anomalies"`
	Stale         int64          `json:"stale"`
	Late          int64          `json:"late_events"`
	Duplicates    int64          `json:"duplicates"`
	Failures      int64          `json:"failures"`
	Degraded      int            `json:"degraded"`
	RecordedBytes int64          `json:"recorded_bytes"`
	Sessions      []SessionView  `json:"sessions"`
}

type counters struct {
	unrouted   int64
	anomalies  int64
	stale      int64
	late       int64
	duplicates int64
	failures   int64
}

func viewOf(p *core.PeerSession) SessionView {
	v := SessionView{
		ID:           p.ID,
		StreamID:     p.StreamID,
		UUID:         p.UUID,
		Session:      p.SessionID(),
		State:        p.State().String(),
		Generation:   p.Generation,
		Degraded:     p.Degraded,
		Media:        p.Media(),
		CreatedAt:    p.CreatedAt,
		LastActivity: p.LastActivity,
	}
	for _, r := range p.Recordings() {
		v.Recordings = append(v.Recordings, RecordingView{Path: r.Path(), Bytes: r.BytesWritten()})
	}
	return v
}
