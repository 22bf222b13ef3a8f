package round

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
)

// ConnectionID identifies one transport connection. The registry only references it by value.
type ConnectionID string

// NewConnectionID returns a fresh random connection id
func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// RoundLoader defines what the registry needs to seed a live round and add players to it
type RoundLoader interface {
	LoadOrCreate(ctx context.Context, course string) (models.DurableRound, error)
	MergePlayer(ctx context.Context, round models.DurableRound, player string, holeCount int) (models.Player, error)
}

// CourseCatalog defines what the round core needs from course metadata
type CourseCatalog interface {
	GetHoles(ctx context.Context, name string) ([]models.Hole, error)
	GetCourse(ctx context.Context, name string) (models.Course, error)
	List(ctx context.Context) []models.Course
}

// Presence is a name-ordered player list together with the course version it was taken at.
type Presence struct {
	Players models.PresenceList `json:"players"`
	Version uint64              `json:"version"`
}

// ActiveRound summarizes a live round for the state API
type ActiveRound struct {
	Course    string    `json:"course"`
	Players   int       `json:"players"`
	Version   uint64    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

type livePlayer struct {
	player models.Player
	conn   ConnectionID
}

// liveRound is the in-memory state of one course. Every field below ready is guarded by mu.
type liveRound struct {
	// ready is closed once the durable round and hole count are loaded, or loading failed.
	ready chan struct{}
	err   error

	mu         sync.Mutex
	durable    models.DurableRound
	holes      int
	players    map[string]*livePlayer
	version    uint64
	createdAt  time.Time
	emptySince time.Time
	closed     bool

	// inflight counts applied edits whose durable write has not finished. While finishing is
	// non-zero no edit is accepted; drained is closed when inflight drops to zero.
	inflight  int
	finishing int
	drained   chan struct{}
}

// release must be called with lr.mu held.
func (lr *liveRound) release() {
	lr.inflight--
	if lr.inflight == 0 && lr.drained != nil {
		close(lr.drained)
		lr.drained = nil
	}
}

func (lr *liveRound) isReady() bool {
	select {
	case <-lr.ready:
		return lr.err == nil
	default:
		return false
	}
}

// presence must be called with lr.mu held.
func (lr *liveRound) presence() Presence {
	players := make(models.PresenceList, 0, len(lr.players))
	for _, p := range lr.players {
		players = append(players, p.player.Clone())
	}
	models.SortPlayers(players)
	return Presence{Players: players, Version: lr.version}
}

type connRef struct {
	course string
	player string
}

// Registry owns every live round in the process. Mutations of one course are serialized by that
// round's mutex; different courses proceed in parallel. No I/O happens while a round mutex is held.
type Registry struct {
	loader  RoundLoader
	catalog CourseCatalog
	clock   clockwork.Clock

	// seq hands out versions. It is shared by all courses and seeded from the start time in
	// microseconds, so a course's version keeps growing across finished rounds and restarts.
	seq atomic.Uint64

	mu     sync.RWMutex
	rounds map[string]*liveRound

	// lock order: liveRound.mu before connMu
	connMu sync.Mutex
	conns  map[ConnectionID]connRef
}

// NewRegistry creates an empty registry
func NewRegistry(loader RoundLoader, catalog CourseCatalog, clock clockwork.Clock) *Registry {
	r := &Registry{
		loader:  loader,
		catalog: catalog,
		clock:   clock,
		rounds:  make(map[string]*liveRound),
		conns:   make(map[ConnectionID]connRef),
	}
	r.seq.Store(uint64(clock.Now().UnixMicro()))
	return r
}

// acquire returns the loaded live round for course. The first caller loads it; concurrent callers
// wait for that load without holding any lock. A failed load is forgotten so the next call retries.
func (r *Registry) acquire(ctx context.Context, course string) (*liveRound, error) {
	r.mu.Lock()
	lr, exists := r.rounds[course]
	if !exists {
		lr = &liveRound{
			ready:   make(chan struct{}),
			players: make(map[string]*livePlayer),
		}
		r.rounds[course] = lr
	}
	r.mu.Unlock()

	if !exists {
		r.load(ctx, course, lr)
	}

	select {
	case <-lr.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if lr.err != nil {
		return nil, lr.err
	}
	return lr, nil
}

func (r *Registry) load(ctx context.Context, course string, lr *liveRound) {
	var durable models.DurableRound
	holes, err := r.catalog.GetHoles(ctx, course)
	if err == nil {
		durable, err = r.loader.LoadOrCreate(ctx, course)
	}

	if err != nil {
		lr.err = err
		r.mu.Lock()
		if r.rounds[course] == lr {
			delete(r.rounds, course)
		}
		r.mu.Unlock()
		close(lr.ready)
		return
	}

	now := r.clock.Now()
	lr.mu.Lock()
	lr.durable = durable
	lr.holes = len(holes)
	lr.createdAt = now
	lr.emptySince = now
	lr.version = r.seq.Add(1)
	lr.mu.Unlock()
	close(lr.ready)
}

func (r *Registry) get(course string) *liveRound {
	r.mu.RLock()
	lr := r.rounds[course]
	r.mu.RUnlock()
	if lr == nil || !lr.isReady() {
		return nil
	}
	return lr
}

// Join registers player on course under conn and returns the joined player with the course presence.
// Joining a name that is already present swaps its connection and keeps its scores. The first join
// to a course loads the durable round; a new name is merged with its persisted scores.
// conn must not be attached to a different player; callers detach it with Leave first.
func (r *Registry) Join(ctx context.Context, course, player string, conn ConnectionID) (models.Player, Presence, error) {
	for {
		lr, err := r.acquire(ctx, course)
		if err != nil {
			return models.Player{}, Presence{}, err
		}

		lr.mu.Lock()
		if lr.closed {
			lr.mu.Unlock()
			continue
		}
		if p, ok := lr.players[player]; ok {
			joined, presence := r.attach(lr, course, p, conn)
			lr.mu.Unlock()
			return joined, presence, nil
		}
		durable, holes := lr.durable, lr.holes
		lr.mu.Unlock()

		merged, err := r.loader.MergePlayer(ctx, durable, player, holes)
		if err != nil {
			return models.Player{}, Presence{}, err
		}
		merged.Scores = merged.Scores.Fit(holes)

		lr.mu.Lock()
		if lr.closed {
			lr.mu.Unlock()
			continue
		}
		p, ok := lr.players[player]
		if !ok {
			p = &livePlayer{player: merged}
			lr.players[player] = p
		}
		joined, presence := r.attach(lr, course, p, conn)
		lr.mu.Unlock()
		return joined, presence, nil
	}
}

// attach must be called with lr.mu held.
func (r *Registry) attach(lr *liveRound, course string, p *livePlayer, conn ConnectionID) (models.Player, Presence) {
	old := p.conn
	p.conn = conn
	lr.version = r.seq.Add(1)

	r.connMu.Lock()
	if old != "" && old != conn {
		delete(r.conns, old)
	}
	r.conns[conn] = connRef{course: course, player: p.player.Name}
	r.connMu.Unlock()

	return p.player.Clone(), lr.presence()
}

// Leave removes the player attached to conn. ok is false when conn is unknown or was replaced
// by a reconnect.
func (r *Registry) Leave(conn ConnectionID) (course string, presence Presence, ok bool) {
	r.connMu.Lock()
	ref, found := r.conns[conn]
	if found {
		delete(r.conns, conn)
	}
	r.connMu.Unlock()
	if !found {
		return "", Presence{}, false
	}

	lr := r.get(ref.course)
	if lr == nil {
		return "", Presence{}, false
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.closed {
		return "", Presence{}, false
	}
	p, exists := lr.players[ref.player]
	if !exists || p.conn != conn {
		return "", Presence{}, false
	}
	delete(lr.players, ref.player)
	lr.version = r.seq.Add(1)
	if len(lr.players) == 0 {
		lr.emptySince = r.clock.Now()
	}
	return ref.course, lr.presence(), true
}

// Lookup returns the course and player attached to conn
func (r *Registry) Lookup(conn ConnectionID) (course, player string, ok bool) {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	ref, ok := r.conns[conn]
	return ref.course, ref.player, ok
}

// ApplyScore overwrites one score slot. Last write wins. done must be called once the edit's
// durable write has finished or failed; Quiesce waits for it.
func (r *Registry) ApplyScore(course, player string, hole int, value *int) (presence Presence, done func(), err error) {
	lr := r.get(course)
	if lr == nil {
		return Presence{}, nil, fmt.Errorf("%w: %s", ErrNoActiveRound, course)
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.closed {
		return Presence{}, nil, fmt.Errorf("%w: %s", ErrNoActiveRound, course)
	}
	if lr.finishing > 0 {
		return Presence{}, nil, fmt.Errorf("%w: %s is being finished", ErrNoActiveRound, course)
	}
	p, ok := lr.players[player]
	if !ok {
		return Presence{}, nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, player)
	}
	if hole < 0 || hole >= lr.holes {
		return Presence{}, nil, fmt.Errorf("%w: %d is outside [0, %d)", ErrHoleIndexOutOfRange, hole, lr.holes)
	}

	var slot *int
	if value != nil {
		v := *value
		slot = &v
	}
	p.player.Scores[hole] = slot
	lr.version = r.seq.Add(1)
	lr.inflight++

	var once sync.Once
	done = func() {
		once.Do(func() {
			lr.mu.Lock()
			lr.release()
			lr.mu.Unlock()
		})
	}
	return lr.presence(), done, nil
}

// Quiesce stops course from accepting edits and waits until every edit already applied has
// finished its durable write. resume reopens the round; it is a no-op once the round is cleared.
// When ctx ends first the round is reopened and ctx.Err is returned.
func (r *Registry) Quiesce(ctx context.Context, course string) (resume func(), err error) {
	lr := r.get(course)
	if lr == nil {
		return func() {}, nil
	}

	lr.mu.Lock()
	lr.finishing++
	var wait chan struct{}
	if lr.inflight > 0 {
		if lr.drained == nil {
			lr.drained = make(chan struct{})
		}
		wait = lr.drained
	}
	lr.mu.Unlock()

	var once sync.Once
	resume = func() {
		once.Do(func() {
			lr.mu.Lock()
			lr.finishing--
			lr.mu.Unlock()
		})
	}

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			resume()
			return nil, ctx.Err()
		}
	}
	return resume, nil
}

// Snapshot returns the course presence, empty when no round is live.
func (r *Registry) Snapshot(course string) Presence {
	lr := r.get(course)
	if lr == nil {
		return Presence{Players: models.PresenceList{}, Version: r.seq.Load()}
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.closed {
		return Presence{Players: models.PresenceList{}, Version: r.seq.Load()}
	}
	return lr.presence()
}

// Clear drops the live round for course and detaches its connections. The returned version
// orders the clear after every earlier event of the course.
func (r *Registry) Clear(course string) uint64 {
	r.mu.Lock()
	lr := r.rounds[course]
	delete(r.rounds, course)
	r.mu.Unlock()

	version := r.seq.Add(1)
	if lr == nil {
		return version
	}

	lr.mu.Lock()
	lr.closed = true
	lr.version = version
	detached := make([]ConnectionID, 0, len(lr.players))
	for _, p := range lr.players {
		detached = append(detached, p.conn)
	}
	lr.players = make(map[string]*livePlayer)

	r.connMu.Lock()
	for _, conn := range detached {
		if ref, ok := r.conns[conn]; ok && ref.course == course {
			delete(r.conns, conn)
		}
	}
	r.connMu.Unlock()
	lr.mu.Unlock()

	return version
}

// ActiveCourses lists every loaded live round ordered by course name
func (r *Registry) ActiveCourses() []ActiveRound {
	r.mu.RLock()
	rounds := make(map[string]*liveRound, len(r.rounds))
	for course, lr := range r.rounds {
		rounds[course] = lr
	}
	r.mu.RUnlock()

	out := make([]ActiveRound, 0, len(rounds))
	for course, lr := range rounds {
		if !lr.isReady() {
			continue
		}
		lr.mu.Lock()
		if !lr.closed {
			out = append(out, ActiveRound{
				Course:    course,
				Players:   len(lr.players),
				Version:   lr.version,
				CreatedAt: lr.createdAt,
			})
		}
		lr.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Course < out[j].Course })
	return out
}

// EvictIdle drops live rounds that have had no players for at least ttl. The durable round is
// untouched, so the next join resumes it.
func (r *Registry) EvictIdle(now time.Time, ttl time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for course, lr := range r.rounds {
		if !lr.isReady() {
			continue
		}
		lr.mu.Lock()
		if len(lr.players) == 0 && now.Sub(lr.emptySince) >= ttl {
			lr.closed = true
			delete(r.rounds, course)
			evicted = append(evicted, course)
		}
		lr.mu.Unlock()
	}
	sort.Strings(evicted)
	return evicted
}
