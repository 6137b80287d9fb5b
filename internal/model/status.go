package model

// Mode is the dashboard's session mode.
type Mode string

const (
	ModeLive   Mode = "live"
	ModeReplay Mode = "replay"
)

// ConnectionStatus is the displayed connection state.
type ConnectionStatus string

const (
	StatusLive         ConnectionStatus = "connected"
	StatusReplay       ConnectionStatus = "replay"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// DeriveStatus is the only place the displayed status is computed.
// Replay wins over the raw transport flag.
func DeriveStatus(mode Mode, connected bool) ConnectionStatus {
	switch {
	case mode == ModeReplay:
		return StatusReplay
	case connected:
		return StatusLive
	default:
		return StatusDisconnected
	}
}
