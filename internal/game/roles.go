package game

import (
	"math/rand"

	"go.uber.org/zap"
)

// ImpostorCountFor derives the impostor count for a round with
// aliveCount participants. Whatever the rule says, the result is
// clamped so that citizens strictly outnumber impostors at deal time.
func ImpostorCountFor(aliveCount int, opts RoomOptions) int {
	var n int

	switch opts.ImpostorRule {
	case IMPOSTOR_RULE_FIXED:
		n = opts.Impostors
	default:
		// Scaled by room size.
		switch {
		case aliveCount < 7:
			n = 1
		case aliveCount <= 10:
			n = 2
		default:
			n = 3
		}
	}

	if limit := (aliveCount - 1) / 2; n > limit {
		n = limit
	}

	if n < 1 {
		n = 1
	}

	return n
}

// AssignRolesAndWord deals a fresh round among the living players: an
// unbiased shuffle, a prefix of impostors, one shared word for the
// citizens. Spoken flags are reset as part of the deal.
func AssignRolesAndWord(gc *RoomContext) {
	alive := gc.AlivePlayers()
	if len(alive) < 2 {
		zap.L().Error(
			"not enough players to deal roles",
			zap.String("room_code", gc.Code),
			zap.Int("alive", len(alive)),
		)
		return
	}

	rand.Shuffle(len(alive), func(i, j int) {
		alive[i], alive[j] = alive[j], alive[i]
	})

	impostors := ImpostorCountFor(len(alive), gc.Opts)
	word := RandomWord()
	gc.Word = word

	for i, p := range alive {
		p.Spoken = false

		if i < impostors {
			p.Role = ROLE_IMPOSTOR
			p.Word = ""
		} else {
			p.Role = ROLE_CITIZEN
			p.Word = word
		}
	}
}
