package app

import (
	"sort"

	"github.com/dkeye/roomrec/internal/domain"
)

// Diff is what the session table must do to follow a new room snapshot.
type Diff struct {
	ToAdd    []domain.StreamID
	ToRemove []domain.StreamID
}

func (d Diff) Empty() bool { return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 }

// Reconcile diffs two snapshots by stream id. A stream whose UUID changed is a
// new connection attempt and shows up in both lists; apply removals first.
func Reconcile(prev, cur domain.RoomSnapshot) Diff {
	var d Diff
	for id, old := range prev {
		if m, ok := cur[id]; !ok || m.UUID != old.UUID {
			d.ToRemove = append(d.ToRemove, id)
		}
	}
	for id, m := range cur {
		if old, ok := prev[id]; !ok || old.UUID != m.UUID {
			d.ToAdd = append(d.ToAdd, id)
		}
	}
	sortIDs(d.ToAdd)
	sortIDs(d.ToRemove)
	return d
}

func sortIDs(ids []domain.StreamID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
