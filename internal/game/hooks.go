package game

// Hooks is the seam for optional side effects (voice-channel
// provisioning and the like). Implementations must not block: they are
// invoked from inside the room event loop.
type Hooks interface {
	RoomCreated(code string)
	RoomDestroyed(code string)
	PlayerEliminated(code string, player PublicPlayer, wasImpostor bool)
}

type NopHooks struct{}

func (NopHooks) RoomCreated(string) {}

func (NopHooks) RoomDestroyed(string) {}

func (NopHooks) PlayerEliminated(string, PublicPlayer, bool) {}
