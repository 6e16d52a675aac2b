package game

import "sync"

// recordingHooks captures side-effect notifications for assertions.
type recordingHooks struct {
	mu sync.Mutex

	created            []string
	destroyed          []string
	eliminated         []PublicPlayer
	eliminatedImpostor []bool
}

func (rh *recordingHooks) RoomCreated(code string) {
	rh.mu.Lock()
	defer rh.mu.Unlock()

	rh.created = append(rh.created, code)
}

func (rh *recordingHooks) RoomDestroyed(code string) {
	rh.mu.Lock()
	defer rh.mu.Unlock()

	rh.destroyed = append(rh.destroyed, code)
}

func (rh *recordingHooks) PlayerEliminated(code string, player PublicPlayer, wasImpostor bool) {
	rh.mu.Lock()
	defer rh.mu.Unlock()

	rh.eliminated = append(rh.eliminated, player)
	rh.eliminatedImpostor = append(rh.eliminatedImpostor, wasImpostor)
}
