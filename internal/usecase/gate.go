package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-file-vault/internal/domain/ports/adapter"
)

// Decision is the outcome of the access checks run before serving content.
type Decision int

const (
	Allowed Decision = iota
	Banned
	NeedsToken
	NotSubscribed
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Banned:
		return "banned"
	case NeedsToken:
		return "needs_token"
	case NotSubscribed:
		return "not_subscribed"
	}
	return "unknown"
}

// Admission carries the decision and, for NeedsToken, the link to offer.
type Admission struct {
	Decision Decision
	TokenURL string
}

// Gate applies, in order, the ban check, the token check and the forced
// channel subscription. Ban and membership lookup failures are logged and let
// the user through. A failed token lookup counts as no valid token.
type Gate struct {
	users    UserUseCase
	access   AccessUseCase
	msg      adapter.Messenger
	forceSub int64
	log      *zerolog.Logger
}

func NewGate(users UserUseCase, access AccessUseCase, msg adapter.Messenger, forceSub int64, logger *zerolog.Logger) *Gate {
	return &Gate{users: users, access: access, msg: msg, forceSub: forceSub, log: logger}
}

// CheckBan runs only the ban check.
func (g *Gate) CheckBan(ctx context.Context, userID int64) bool {
	banned, err := g.users.IsBanned(ctx, userID)
	if err != nil {
		g.log.Error().Err(err).Int64("user_id", userID).Msg("error checking ban status")
		return false
	}
	return banned
}

// CheckToken reports whether the user may proceed without a token and,
// if not, which URL to offer.
func (g *Gate) CheckToken(ctx context.Context, userID int64) (ok bool, tokenURL string) {
	if !g.access.VerificationEnabled() {
		return true, ""
	}
	valid, err := g.access.HasValid(ctx, userID)
	if err != nil {
		g.log.Error().Err(err).Int64("user_id", userID).Msg("error checking user token")
	}
	if valid {
		return true, ""
	}
	url, err := g.access.TokenURL(ctx, userID)
	if err != nil {
		g.log.Error().Err(err).Int64("user_id", userID).Msg("error generating token url")
	}
	return false, url
}

// Admit runs every check in order.
func (g *Gate) Admit(ctx context.Context, userID int64) Admission {
	if g.CheckBan(ctx, userID) {
		return Admission{Decision: Banned}
	}
	if ok, url := g.CheckToken(ctx, userID); !ok {
		return Admission{Decision: NeedsToken, TokenURL: url}
	}
	if g.forceSub != 0 {
		member, err := g.msg.IsMember(ctx, g.forceSub, userID)
		if err != nil {
			g.log.Error().Err(err).Int64("user_id", userID).Msg("force sub error")
		} else if !member {
			return Admission{Decision: NotSubscribed}
		}
	}
	return Admission{Decision: Allowed}
}
