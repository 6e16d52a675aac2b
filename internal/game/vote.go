package game

import "go.uber.org/zap"

// TallyVotes counts votes per target. Abstentions and votes for targets
// that are no longer living members are ignored.
func (gc *RoomContext) TallyVotes() map[string]int {
	tally := make(map[string]int)

	for _, targetID := range gc.Votes {
		if targetID == "" {
			continue
		}

		target := gc.PlayerByID(targetID)
		if target == nil || !target.Alive {
			continue
		}

		tally[targetID]++
	}

	return tally
}

// MaxVoteTarget returns the target holding strictly the highest count.
// On a shared maximum it reports a tie and no target: nobody is
// eliminated on a tie.
func MaxVoteTarget(tally map[string]int) (targetID string, tie bool) {
	maxVotes := 0

	for id, count := range tally {
		switch {
		case count > maxVotes:
			maxVotes = count
			targetID = id
			tie = false
		case count == maxVotes:
			tie = true
			targetID = ""
		}
	}

	if targetID == "" {
		tie = len(tally) > 0
	}

	return targetID, tie
}

// resolveVotes finalizes the voting phase: eliminate (or not), reveal,
// decide the next phase, broadcast the outcome, and hand the switch to
// the machine. Votes are cleared atomically as part of resolution.
func resolveVotes(gc *RoomContext, reason string, onSwitch func(string)) {
	gc.ClearVoteTimeout()

	tally := gc.TallyVotes()
	targetID, tie := MaxVoteTarget(tally)

	var eliminatedPub *PublicPlayer
	wasImpostor := false

	if !tie && targetID != "" {
		eliminated := gc.PlayerByID(targetID)
		if eliminated == nil {
			zap.L().Error(
				"vote resolution picked a missing player",
				zap.String("room_code", gc.Code),
				zap.String("target_id", targetID),
			)
		} else {
			eliminated.Alive = false
			wasImpostor = eliminated.Role == ROLE_IMPOSTOR

			eliminatedPub = &PublicPlayer{
				ID:    eliminated.ID,
				Name:  eliminated.Name,
				Alive: false,
			}

			gc.Hooks.PlayerEliminated(gc.Code, *eliminatedPub, wasImpostor)
		}
	}

	gc.Votes = make(map[string]string)

	next := PHASE_SPEAKING
	if _, over := Winner(gc); over {
		next = PHASE_FINISHED
	}

	gc.BroadcastResp(WrapResponse(
		RESP_VOTING_RESULT,
		VotingResultNotification{
			Reason:      reason,
			Eliminated:  eliminatedPub,
			WasImpostor: wasImpostor,
			Tally:       tally,
			Phase:       next,
		},
	))

	zap.L().Info(
		"voting resolved",
		zap.String("room_code", gc.Code),
		zap.String("reason", reason),
		zap.String("eliminated_id", targetID),
		zap.Bool("was_impostor", wasImpostor),
		zap.String("next_phase", next),
	)

	onSwitch(next)
}

// Winner evaluates the win conditions over the current living roles:
// citizens win the moment no impostor remains, impostors win once they
// match or outnumber the citizens.
func Winner(gc *RoomContext) (winner string, over bool) {
	impostors := gc.CountAliveWithRole(ROLE_IMPOSTOR)
	citizens := gc.CountAliveWithRole(ROLE_CITIZEN)

	if impostors == 0 {
		return RESULT_CITIZENS_WIN, true
	}

	if impostors >= citizens {
		return RESULT_IMPOSTORS_WIN, true
	}

	return "", false
}
