package round

import (
	"errors"

	"github.com/DenisKelolli/Golf-App/go/internal/course"
	"github.com/DenisKelolli/Golf-App/go/internal/identity"
)

// Kind classifies an error for the transports.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindPermission      Kind = "permission"
	KindPersistence     Kind = "persistence"
	KindUnauthenticated Kind = "unauthenticated"
	KindInternal        Kind = "internal"
)

// Error is a classified scorecard error. Wrap the sentinels below with %w to add context.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrUnknownPlayer       = &Error{Kind: KindNotFound, Message: "player has not joined this round"}
	ErrNoActiveRound       = &Error{Kind: KindNotFound, Message: "no active round for course"}
	ErrCourseNotFound      = &Error{Kind: KindNotFound, Message: "course not found"}
	ErrHoleIndexOutOfRange = &Error{Kind: KindValidation, Message: "hole index out of range"}
	ErrInvalidScore        = &Error{Kind: KindValidation, Message: "invalid score"}
	ErrInvalidRequest      = &Error{Kind: KindValidation, Message: "invalid request"}
	ErrNotYourScorecard    = &Error{Kind: KindPermission, Message: "players may only edit their own scores"}
	ErrPersistence         = &Error{Kind: KindPersistence, Message: "durable store unavailable"}
	ErrNoIdentity          = &Error{Kind: KindUnauthenticated, Message: "caller has no player identity"}
)

// ErrRoundNotFound is returned by a RoundRepository when the course has no durable round.
var ErrRoundNotFound = errors.New("durable round not found")

// KindOf reports how err should be surfaced to a caller
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, course.ErrCourseNotFound), errors.Is(err, ErrRoundNotFound):
		return KindNotFound
	}
	return KindInternal
}
