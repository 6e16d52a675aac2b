package game

// The turn rotation always evaluates over the live subset of the
// insertion-ordered player list. Eliminated players are skipped in
// place, never removed from the order.

// CurrentTurnPlayer returns the player holding the turn, or nil when the
// pointer does not rest on a living player.
func (gc *RoomContext) CurrentTurnPlayer() *Player {
	if gc.TurnIdx < 0 || gc.TurnIdx >= len(gc.Players) {
		return nil
	}

	p := gc.Players[gc.TurnIdx]
	if !p.Alive {
		return nil
	}

	return p
}

// ResetTurn points the turn at the first living player that has not yet
// spoken. Returns false when no such player exists.
func (gc *RoomContext) ResetTurn() bool {
	for i, p := range gc.Players {
		if p.Alive && !p.Spoken {
			gc.TurnIdx = i
			return true
		}
	}

	gc.TurnIdx = 0

	return false
}

// AdvanceTurn scans forward circularly from the current pointer for the
// next living player who has not spoken this round. roundDone reports
// that every living player has spoken.
func (gc *RoomContext) AdvanceTurn() (next *Player, roundDone bool) {
	n := len(gc.Players)
	if n == 0 {
		return nil, true
	}

	idx := gc.TurnIdx
	for i := 0; i < n; i++ {
		idx = (idx + 1) % n

		p := gc.Players[idx]
		if p.Alive && !p.Spoken {
			gc.TurnIdx = idx
			return p, false
		}
	}

	return nil, true
}

// FixTurnAfterRemoval repairs the pointer after the player at removedIdx
// left the room mid-round. roundDone reports that the remaining living
// players have all spoken.
func (gc *RoomContext) FixTurnAfterRemoval(removedIdx int) (current *Player, roundDone bool) {
	if removedIdx < gc.TurnIdx {
		gc.TurnIdx--
	}

	n := len(gc.Players)
	if n == 0 {
		return nil, true
	}

	if gc.TurnIdx >= n || gc.TurnIdx < 0 {
		gc.TurnIdx = 0
	}

	// The pointer may now rest on a dead or already-spoken player; scan
	// forward from it, current position included.
	idx := gc.TurnIdx
	for i := 0; i < n; i++ {
		p := gc.Players[idx]
		if p.Alive && !p.Spoken {
			gc.TurnIdx = idx
			return p, false
		}

		idx = (idx + 1) % n
	}

	return nil, true
}

func (gc *RoomContext) AllSpoken() bool {
	for _, p := range gc.Players {
		if p.Alive && !p.Spoken {
			return false
		}
	}

	return true
}
