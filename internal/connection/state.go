package connection

import (
	"fmt"

	"github.com/aetherforge/worldserver/internal/wireerr"
)

// State is one node of the per-connection state machine (§4.3):
//
//	Handshake ── success ──▶ Authenticated ── InitRequest ──▶ Loading
//	     │                                                        │
//	     └── timeout/error ──▶ Closed                              │
//	                                                               ▼
//	                                                        ZoneLoaded
//	                                                               │
//	                                                       LoggingOut
//	                                                               │
//	                                                             Closed
//
// Besides the drawn arrows, every state other than Closed may move straight
// to Closed, and ZoneLoaded may move back to Loading. Any other transition
// is an error and closes the connection.
type State uint8

const (
	StateHandshake State = iota
	StateAuthenticated
	StateLoading
	StateZoneLoaded
	StateLoggingOut
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateAuthenticated:
		return "authenticated"
	case StateLoading:
		return "loading"
	case StateZoneLoaded:
		return "zone_loaded"
	case StateLoggingOut:
		return "logging_out"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// transitions lists every permitted edge: the diagram's arrows plus the
// extra edges noted on State. A lookup miss means the caller attempted an
// invalid transition and must close the connection (§7 InvalidTransition).
var transitions = map[State]map[State]bool{
	StateHandshake:     {StateAuthenticated: true, StateClosed: true},
	StateAuthenticated: {StateLoading: true, StateClosed: true},
	StateLoading:       {StateZoneLoaded: true, StateClosed: true},
	StateZoneLoaded:    {StateLoading: true, StateLoggingOut: true, StateClosed: true},
	StateLoggingOut:    {StateClosed: true},
	StateClosed:        {},
}

// canTransition reports whether moving from `from` to `to` is one of the
// permitted edges in transitions.
func canTransition(from, to State) bool {
	return transitions[from][to]
}

// Transition moves from `from` to `to`, returning wireerr.ErrInvalidTransition
// if transitions doesn't permit that edge (§7 InvalidTransition).
func Transition(from, to State) (State, error) {
	if !canTransition(from, to) {
		return from, wireerr.Wrap(wireerr.ErrInvalidTransition, fmt.Sprintf("%s -> %s", from, to))
	}
	return to, nil
}
