package service

import (
	"math/rand"
	"sync"
	"time"

	"impostor-arcane-be/internal/config"
	"impostor-arcane-be/internal/game"

	"go.uber.org/zap"
)

// Room codes are human-shareable: a fixed prefix plus four symbols from
// an alphabet with no easily-confused characters.
const (
	CODE_PREFIX   = "ARC-"
	CODE_ALPHABET = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	CODE_LENGTH   = 4
)

// Bounds applied to per-room creation options.
const (
	MIN_ROOM_SIZE     = 3
	MAX_ROOM_SIZE     = 15
	DEFAULT_ROOM_SIZE = 10
	MAX_IMPOSTORS     = 4
)

// A room that never saw a member is swept after this long.
const unusedRoomGrace = 5 * time.Minute

// Registry owns the process-wide room map. It is an injected object,
// not a package global, so tests construct their own.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*game.RoomMachine

	cfg   *config.GameConfig
	hooks game.Hooks

	cleanUpDone chan struct{}
}

func NewRegistry(cfg *config.GameConfig, hooks game.Hooks) *Registry {
	if hooks == nil {
		hooks = game.NopHooks{}
	}

	reg := &Registry{
		rooms:       make(map[string]*game.RoomMachine),
		cfg:         cfg,
		hooks:       hooks,
		cleanUpDone: make(chan struct{}),
	}

	// Rooms normally destroy themselves with their last member; the
	// sweep only collects rooms that were created but never joined.
	go reg.cleanupLoop()

	return reg
}

func (reg *Registry) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-reg.cleanUpDone:
			return

		case <-ticker.C:
			reg.mu.Lock()

			for code, rm := range reg.rooms {
				if rm.Members() == 0 && time.Since(rm.CreatedAt()) > unusedRoomGrace {
					zap.S().Infof("room %s never used, sweeping", code)

					rm.Stop()
					delete(reg.rooms, code)
					reg.hooks.RoomDestroyed(code)
				}
			}

			reg.mu.Unlock()
		}
	}
}

func (reg *Registry) Close() {
	close(reg.cleanUpDone)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	for code, rm := range reg.rooms {
		rm.Stop()
		delete(reg.rooms, code)
	}
}

// CreateRoom spins up a room with a collision-free code and returns its
// machine. The creator still has to join over the gateway; the first
// member becomes host.
func (reg *Registry) CreateRoom(req game.CreateRoomRequest) (*game.RoomMachine, error) {
	opts := reg.buildOptions(req)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	code := reg.generateCodeLocked()

	rm := game.NewRoomMachine(code, opts, reg.hooks, reg.removeRoom)
	reg.rooms[code] = rm

	go rm.Run()

	reg.hooks.RoomCreated(code)

	zap.S().Infof("room %s created (max %d, impostors %d, rule %s)",
		code, opts.MaxPlayers, opts.Impostors, opts.ImpostorRule)

	return rm, nil
}

// Lookup resolves a code to a live room.
func (reg *Registry) Lookup(code string) (*game.RoomMachine, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rm, ok := reg.rooms[code]
	if !ok {
		return nil, game.ErrRoomNotFound
	}

	return rm, nil
}

// RoomCount reports how many rooms are currently live.
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return len(reg.rooms)
}

// removeRoom is handed to each machine as its onEmpty callback: the
// room loop invokes it right before exiting, releasing the code for
// reuse.
func (reg *Registry) removeRoom(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.rooms[code]; !ok {
		return
	}

	delete(reg.rooms, code)
	reg.hooks.RoomDestroyed(code)

	zap.S().Infof("room %s destroyed (no members left)", code)
}

// generateCodeLocked retries until it finds a code unused among live
// rooms. With a 31-symbol alphabet and 4 symbols the space is ~920k, so
// collisions stay negligible at realistic room counts.
func (reg *Registry) generateCodeLocked() string {
	buf := make([]byte, CODE_LENGTH)

	for {
		for i := range buf {
			buf[i] = CODE_ALPHABET[rand.Intn(len(CODE_ALPHABET))]
		}

		code := CODE_PREFIX + string(buf)
		if _, taken := reg.rooms[code]; !taken {
			return code
		}
	}
}

// buildOptions merges server config with the creator's request,
// clamping everything to sane bounds.
func (reg *Registry) buildOptions(req game.CreateRoomRequest) game.RoomOptions {
	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = DEFAULT_ROOM_SIZE
	}
	if maxPlayers < MIN_ROOM_SIZE {
		maxPlayers = MIN_ROOM_SIZE
	}
	if maxPlayers > MAX_ROOM_SIZE {
		maxPlayers = MAX_ROOM_SIZE
	}
	if reg.cfg.MaxPlayers > 0 && maxPlayers > reg.cfg.MaxPlayers {
		maxPlayers = reg.cfg.MaxPlayers
	}

	rule := reg.cfg.ImpostorRule
	impostors := reg.cfg.Impostors

	// An explicit impostor count in the request pins the room to the
	// fixed rule.
	if req.Impostors > 0 {
		rule = game.IMPOSTOR_RULE_FIXED
		impostors = req.Impostors
	}
	if impostors < 1 {
		impostors = 1
	}
	if impostors > MAX_IMPOSTORS {
		impostors = MAX_IMPOSTORS
	}
	if impostors >= maxPlayers {
		impostors = maxPlayers - 1
	}

	minPlayers := reg.cfg.MinPlayers
	if minPlayers < MIN_ROOM_SIZE {
		minPlayers = MIN_ROOM_SIZE
	}

	voteTimeout := time.Duration(reg.cfg.VoteTimeoutSecs) * time.Second
	if voteTimeout <= 0 {
		voteTimeout = 180 * time.Second
	}

	return game.RoomOptions{
		MaxPlayers:   maxPlayers,
		MinPlayers:   minPlayers,
		Impostors:    impostors,
		ImpostorRule: rule,
		VoteTimeout:  voteTimeout,
		TurnSecs:     reg.cfg.TurnSecs,
	}
}
