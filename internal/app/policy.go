package app

import (
	"fmt"

	"github.com/dkeye/roomrec/internal/core"
)

type AnomalyAction int

const (
	// RouteEarliest hands the message to the earliest-created candidate.
	RouteEarliest AnomalyAction = iota
	// DropMessage counts the message as unrouted.
	DropMessage
)

// Policy decides what to do with a message the router could only resolve
// ambiguously, such as an identifier-less offer while several sessions await one.
type Policy interface {
	OnAmbiguous(msg core.Message, res Resolution) AnomalyAction
}

type EarliestPolicy struct{}

func (EarliestPolicy) OnAmbiguous(core.Message, Resolution) AnomalyAction {
	return RouteEarliest
}

type StrictPolicy struct{}

func (StrictPolicy) OnAmbiguous(core.Message, Resolution) AnomalyAction {
	return DropMessage
}

func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "earliest":
		return EarliestPolicy{}, nil
	case "drop":
		return StrictPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown ambiguous offer policy %q", name)
}
