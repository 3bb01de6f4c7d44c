package chessdto

import "time"

type RequestMeta struct {
	GameID string
	Sender string
}

type CreateGameRequest struct {
	Meta      RequestMeta
	Wager     uint64
	Rated     bool
	Timer     time.Duration
	Increment time.Duration
}

type JoinRequest struct {
	Meta  RequestMeta
	Color string
}

type MoveRequest struct {
	Meta RequestMeta
	Move string
}

type ResignRequest struct {
	Meta      RequestMeta
	Adversary string
}

type OfferDrawRequest struct {
	Meta      RequestMeta
	Adversary string
}

type LeaveRequest struct {
	Meta RequestMeta
}

type CheckTimerRequest struct {
	Meta RequestMeta
}

type StatusRequest struct {
	Meta RequestMeta
}

// GameResponse carries the game as seen by Meta.Sender.
type GameResponse struct {
	Game *GameView
}

type LobbyResponse struct {
	GameIDs []string
}

type HistoryRequest struct {
	Meta  RequestMeta
	Limit int
}

type HistoryResponse struct {
	Games []*GameResult
}
