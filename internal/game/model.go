package game

import "time"

// Secret roles dealt at round start.
const (
	ROLE_UNSET    = "Unset"
	ROLE_CITIZEN  = "Citizen"
	ROLE_IMPOSTOR = "Impostor"
)

// How the impostor count is derived when a round is dealt.
const (
	IMPOSTOR_RULE_SCALED = "scaled"
	IMPOSTOR_RULE_FIXED  = "fixed"
)

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Alive bool   `json:"alive"`
	// Word is only set for citizens while a round is active.
	Word string `json:"word,omitempty"`
	// Spoken tracks whether the player already took their turn this round.
	Spoken bool `json:"spoken"`

	RespCh chan ResponseWrapper `json:"-"`
}

// PublicPlayer is the member view shared with every client.
// Role and word never travel through it.
type PublicPlayer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Alive bool   `json:"alive"`
}

// RoomOptions freezes the rule knobs for one room at creation time.
type RoomOptions struct {
	MaxPlayers   int
	MinPlayers   int
	Impostors    int
	ImpostorRule string
	VoteTimeout  time.Duration
	// Advisory countdown shown to clients while speaking; never enforced.
	TurnSecs int
}
