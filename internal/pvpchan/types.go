package pvpchan

import (
	"strings"
	"time"

	"github.com/park285/wager-chess/internal/chess"
	"github.com/park285/wager-chess/internal/pvpchess"
)

// ChannelState is the lifecycle of a challenge code.
type ChannelState string

const (
	StateLobby   ChannelState = "LOBBY"
	StateActive  ChannelState = "ACTIVE"
	StateAborted ChannelState = "ABORTED"
)

// ColorChoice is the creator's seat preference.
type ColorChoice string

const (
	ColorWhite  ColorChoice = "white"
	ColorBlack  ColorChoice = "black"
	ColorRandom ColorChoice = "random"
)

// ParseColorChoice maps "white"/"w" and "black"/"b"; anything else is random.
func ParseColorChoice(s string) ColorChoice {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return ColorWhite
	case "black", "b":
		return ColorBlack
	}
	return ColorRandom
}

// ChannelMeta is stored as JSON under ch:<code>.
type ChannelMeta struct {
	ID        string       `json:"id"`
	State     ChannelState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`

	CreatorID    string      `json:"creator_id"`
	CreatorRoom  string      `json:"creator_room"`
	CreatorColor chess.Color `json:"creator_color"`
	JoinerID     string      `json:"joiner_id,omitempty"`

	GameID string       `json:"game_id"`
	Config chess.Config `json:"config"`
}

type MakeResult struct {
	Code   string
	Meta   *ChannelMeta
	Record *pvpchess.Record
}

type JoinResult struct {
	Started bool
	GameID  string
	Meta    *ChannelMeta
	Record  *pvpchess.Record
}

var (
	ErrInvalidArgs     = errf("invalid arguments")
	ErrChannelGone     = errf("channel not found or expired")
	ErrChannelActive   = errf("channel already active")
	ErrFull            = errf("channel already has two participants")
	ErrPlayerBusy      = errf("player already has a game in progress")
	ErrCreatorHasLobby = errf("user already has a lobby")
	ErrNotCreator      = errf("only the creator can cancel a challenge")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error        { return staticErr(s) }
