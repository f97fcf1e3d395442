package domain

type PeerState int

const (
	StateAwaitingOffer PeerState = iota
	StateNegotiating
	StateAnswered
	StateConnected
	StateRecording
	StateDisconnected
	StateReconnecting
	StateFailed
	StateCleanedUp
)

var AllStates = []PeerState{
	StateAwaitingOffer,
	StateNegotiating,
	StateAnswered,
	StateConnected,
	StateRecording,
	StateDisconnected,
	StateReconnecting,
	StateFailed,
	StateCleanedUp,
}

func (s PeerState) String() string {
	switch s {
	case StateAwaitingOffer:
		return "AWAITING_OFFER"
	case StateNegotiating:
		return "NEGOTIATING"
	case StateAnswered:
		return "ANSWERED"
	case StateConnected:
		return "CONNECTED"
	case StateRecording:
		return "RECORDING"
	case StateDisconnected:
		return "DISCONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateFailed:
		return "FAILED"
	case StateCleanedUp:
		return "CLEANED_UP"
	}
	return "UNKNOWN"
}

// Connected reports whether media has flowed at some point in this state.
func (s PeerState) Connected() bool {
	return s == StateConnected || s == StateRecording
}

// PreConnect reports whether the peer is still negotiating.
func (s PeerState) PreConnect() bool {
	return s == StateAwaitingOffer || s == StateNegotiating || s == StateAnswered
}

func (s PeerState) Terminal() bool { return s == StateCleanedUp }
