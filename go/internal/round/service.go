package round

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"github.com/DenisKelolli/Golf-App/go/internal/identity"
	"github.com/DenisKelolli/Golf-App/go/internal/models"
)

// ServiceName is the fully-qualified name of the scorecard RPC service.
const ServiceName = "scorecard.v1.ScorecardService"

const (
	JoinProcedure        = "/" + ServiceName + "/Join"
	EditScoreProcedure   = "/" + ServiceName + "/EditScore"
	GetPresenceProcedure = "/" + ServiceName + "/GetPresence"
	FinishProcedure      = "/" + ServiceName + "/Finish"
	ListArchiveProcedure = "/" + ServiceName + "/ListArchive"
)

// ScorecardApp defines what the service layer needs from the round application
type ScorecardApp interface {
	Join(ctx context.Context, course, player string, conn ConnectionID) (*JoinResult, error)
	EditScore(ctx context.Context, actor string, edit ScoreEdit) (*EditResult, error)
	Presence(ctx context.Context, course string) Presence
	Finish(ctx context.Context, course string) (*models.ArchivedRound, error)
	ListArchive(ctx context.Context) ([]models.ArchivedRound, error)
}

// ConnectionDirectory reports which transport connections are open for a course
type ConnectionDirectory interface {
	HasConnection(course string, id ConnectionID) bool
}

type JoinRequest struct {
	Course string `json:"course"`
	// Player defaults to the caller's identity.
	Player       string       `json:"player"`
	ConnectionID ConnectionID `json:"connection_id"`
}

type EditScoreRequest = ScoreEdit

type EditScoreResponse struct {
	OK bool `json:"ok"`
	EditResult
}

type GetPresenceRequest struct {
	Course string `json:"course"`
}

type FinishRequest struct {
	Course string `json:"course"`
}

type FinishResponse struct {
	Archive ArchiveSummary `json:"archive"`
}

type ListArchiveRequest struct{}

type ListArchiveResponse struct {
	Archives []ArchiveSummary `json:"archives"`
}

// ArchiveSummary is an archived round with per-player totals
type ArchiveSummary struct {
	models.ArchivedRound
	Totals []models.PlayerSummary `json:"totals"`
}

// NewArchiveSummary pairs an archived round with its totals
func NewArchiveSummary(a models.ArchivedRound) ArchiveSummary {
	return ArchiveSummary{ArchivedRound: a, Totals: a.Summaries()}
}

// Service implements the ScorecardService RPC surface over Connect
type Service struct {
	app   ScorecardApp
	conns ConnectionDirectory
}

// NewService creates a new scorecard RPC service
func NewService(app ScorecardApp, conns ConnectionDirectory) *Service {
	return &Service{
		app:   app,
		conns: conns,
	}
}

// Handler returns the path prefix and handler serving every procedure of the service.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec())}, opts...)

	mux := http.NewServeMux()
	mux.Handle(JoinProcedure, connect.NewUnaryHandler(JoinProcedure, s.Join, opts...))
	mux.Handle(EditScoreProcedure, connect.NewUnaryHandler(EditScoreProcedure, s.EditScore, opts...))
	mux.Handle(GetPresenceProcedure, connect.NewUnaryHandler(GetPresenceProcedure, s.GetPresence, opts...))
	mux.Handle(FinishProcedure, connect.NewUnaryHandler(FinishProcedure, s.Finish, opts...))
	mux.Handle(ListArchiveProcedure, connect.NewUnaryHandler(ListArchiveProcedure, s.ListArchive, opts...))
	return "/" + ServiceName + "/", mux
}

// Join attaches an open websocket connection to a player. The connection id is the one the
// gateway announced in its connected message.
func (s *Service) Join(ctx context.Context, req *connect.Request[JoinRequest]) (*connect.Response[JoinResult], error) {
	player := req.Msg.Player
	actor, err := identity.CurrentPlayerName(ctx)
	switch {
	case err == nil && player == "":
		player = actor
	case err == nil && player != actor:
		return nil, connect.NewError(connect.CodePermissionDenied, ErrNotYourScorecard)
	case err != nil && player == "":
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}

	if !s.conns.HasConnection(req.Msg.Course, req.Msg.ConnectionID) {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("connection_id is not an open connection for this course"))
	}

	result, err := s.app.Join(ctx, req.Msg.Course, player, req.Msg.ConnectionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(result), nil
}

// EditScore sets or clears one hole. Only the named player may edit their own line.
func (s *Service) EditScore(ctx context.Context, req *connect.Request[EditScoreRequest]) (*connect.Response[EditScoreResponse], error) {
	actor, err := identity.CurrentPlayerName(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}

	result, err := s.app.EditScore(ctx, actor, *req.Msg)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&EditScoreResponse{OK: true, EditResult: *result}), nil
}

// GetPresence returns the live players of a course
func (s *Service) GetPresence(ctx context.Context, req *connect.Request[GetPresenceRequest]) (*connect.Response[Presence], error) {
	if req.Msg.Course == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("course is required"))
	}
	presence := s.app.Presence(ctx, req.Msg.Course)
	return connect.NewResponse(&presence), nil
}

// Finish archives a course's round
func (s *Service) Finish(ctx context.Context, req *connect.Request[FinishRequest]) (*connect.Response[FinishResponse], error) {
	archive, err := s.app.Finish(ctx, req.Msg.Course)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&FinishResponse{Archive: NewArchiveSummary(*archive)}), nil
}

// ListArchive returns the finished rounds, oldest first
func (s *Service) ListArchive(ctx context.Context, _ *connect.Request[ListArchiveRequest]) (*connect.Response[ListArchiveResponse], error) {
	archives, err := s.app.ListArchive(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &ListArchiveResponse{Archives: make([]ArchiveSummary, 0, len(archives))}
	for _, a := range archives {
		resp.Archives = append(resp.Archives, NewArchiveSummary(a))
	}
	return connect.NewResponse(resp), nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}

	switch KindOf(err) {
	case KindValidation:
		return connect.NewError(connect.CodeInvalidArgument, err)
	case KindNotFound:
		return connect.NewError(connect.CodeNotFound, err)
	case KindPermission:
		return connect.NewError(connect.CodePermissionDenied, err)
	case KindPersistence:
		return connect.NewError(connect.CodeUnavailable, err)
	case KindUnauthenticated:
		return connect.NewError(connect.CodeUnauthenticated, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

type jsonCodec struct{}

// JSONCodec serves and calls the service with plain encoding/json messages.
func JSONCodec() connect.Codec {
	return jsonCodec{}
}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
