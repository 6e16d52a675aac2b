package game

// CreateRoomRequest is consumed by the registry, not by a room machine.
type CreateRoomRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players"`
	Impostors  int    `json:"impostors"`
}

// JoinRoomRequest arrives as the first message of a connection. PlayerID
// and RespCh are filled in server-side before it reaches the room loop.
type JoinRoomRequest struct {
	RoomCode string `json:"room_code"`
	Name     string `json:"name"`

	PlayerID string               `json:"-"`
	RespCh   chan ResponseWrapper `json:"-"`
}

// LeaveRequest is server-originated only, synthesized when a connection
// drops.
type LeaveRequest struct {
	PlayerID string
	RespCh   chan ResponseWrapper
}

type StartGameRequest struct{}

type EndTurnRequest struct{}

type ForceTurnRequest struct{}

type StartVotingRequest struct{}

type CastVoteRequest struct {
	// Empty TargetID is an abstention.
	TargetID string `json:"target_id"`
}

// TimeoutRequest is posted by the room's own deferred timer, never by a
// client. Epoch pairs the timeout with the voting phase that armed it,
// so a late fire cannot resolve a newer vote.
type TimeoutRequest struct {
	Phase string
	Epoch int
}

type JoinedResponse struct {
	RoomCode string         `json:"room_code"`
	PlayerID string         `json:"player_id"`
	IsHost   bool           `json:"is_host"`
	Phase    string         `json:"phase"`
	Players  []PublicPlayer `json:"players"`
}

// RoomStateNotification is the authoritative snapshot broadcast after
// every mutation.
type RoomStateNotification struct {
	Code         string         `json:"code"`
	HostID       string         `json:"host_id"`
	Phase        string         `json:"phase"`
	Round        int            `json:"round"`
	TurnPlayerID string         `json:"turn_player_id,omitempty"`
	TurnSecs     int            `json:"turn_secs,omitempty"`
	MaxPlayers   int            `json:"max_players"`
	Players      []PublicPlayer `json:"players"`
}

// RoleNotification is unicast: only the recipient learns their role, and
// only citizens learn the word.
type RoleNotification struct {
	Role string `json:"role"`
	Word string `json:"word,omitempty"`
}

type RoundStartedNotification struct {
	Round        int    `json:"round"`
	WordLength   int    `json:"word_length"`
	TurnPlayerID string `json:"turn_player_id"`
}

type PlayerSpokenNotification struct {
	PlayerID string `json:"player_id"`
}

type VotingStartedNotification struct {
	Candidates  []PublicPlayer `json:"candidates"`
	TimeoutSecs int            `json:"timeout_secs"`
}

type VoteRegisteredNotification struct {
	VoterID  string `json:"voter_id"`
	TargetID string `json:"target_id,omitempty"`
}

// Resolution reasons carried in the result broadcast.
const (
	VOTE_REASON_ALL_VOTED = "AllVoted"
	VOTE_REASON_TIMEOUT   = "Timeout"
)

type VotingResultNotification struct {
	Reason      string         `json:"reason"`
	Eliminated  *PublicPlayer  `json:"eliminated"`
	WasImpostor bool           `json:"was_impostor"`
	Tally       map[string]int `json:"tally"`
	Phase       string         `json:"phase"`
}

const (
	RESULT_CITIZENS_WIN  = "CitizensWin"
	RESULT_IMPOSTORS_WIN = "ImpostorsWin"
)

type GameOverNotification struct {
	Winner string `json:"winner"`
	Word   string `json:"word"`
	// Full role reveal, player id -> role.
	Roles map[string]string `json:"roles"`
}

type PlayerLeftNotification struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	NewHostID  string `json:"new_host_id,omitempty"`
}
