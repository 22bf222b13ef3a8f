package round

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DenisKelolli/Golf-App/go/internal/course"
	"github.com/DenisKelolli/Golf-App/go/internal/models"
)

type fakeLoader struct {
	loads   atomic.Int32
	merges  atomic.Int32
	delay   time.Duration
	loadErr error

	mu      sync.Mutex
	resumed map[string]models.Scores
}

func (f *fakeLoader) LoadOrCreate(_ context.Context, c string) (models.DurableRound, error) {
	f.loads.Add(1)
	time.Sleep(f.delay)
	if f.loadErr != nil {
		return models.DurableRound{}, f.loadErr
	}
	return models.DurableRound{CourseName: c}, nil
}

func (f *fakeLoader) MergePlayer(_ context.Context, _ models.DurableRound, player string, holes int) (models.Player, error) {
	f.merges.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if scores, ok := f.resumed[player]; ok {
		return models.Player{Name: player, Scores: scores.Clone()}, nil
	}
	return models.Player{Name: player, Scores: models.NewScores(holes)}, nil
}

func testCatalog(t *testing.T) *course.Catalog {
	t.Helper()
	holes := make([]models.Hole, 9)
	for i := range holes {
		holes[i] = models.Hole{Number: i + 1, Par: 4}
	}
	cat, err := course.NewCatalog(
		models.Course{Name: "front9", Holes: holes},
		models.Course{Name: "back9", Holes: holes},
	)
	require.NoError(t, err)
	return cat
}

func newTestRegistry(t *testing.T, loader *fakeLoader) (*Registry, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewRegistry(loader, testCatalog(t), clock), clock
}

func TestRegistryConcurrentJoinsLoadOnce(t *testing.T) {
	loader := &fakeLoader{delay: 20 * time.Millisecond}
	reg, _ := newTestRegistry(t, loader)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := reg.Join(context.Background(), "front9", fmt.Sprintf("player-%02d", i), NewConnectionID())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), loader.loads.Load())
	presence := reg.Snapshot("front9")
	assert.Len(t, presence.Players, 25)
	assert.Len(t, reg.ActiveCourses(), 1)
}

func TestRegistryConcurrentJoinsSameName(t *testing.T) {
	reg, _ := newTestRegistry(t, &fakeLoader{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := reg.Join(context.Background(), "front9", "Alice", NewConnectionID())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	presence := reg.Snapshot("front9")
	require.Len(t, presence.Players, 1)
	assert.Equal(t, "Alice", presence.Players[0].Name)
}

func TestRegistryFailedLoadIsRetried(t *testing.T) {
	loader := &fakeLoader{loadErr: errors.New("dial tcp: connection refused")}
	reg, _ := newTestRegistry(t, loader)

	_, _, err := reg.Join(context.Background(), "front9", "Alice", NewConnectionID())
	require.Error(t, err)
	assert.Empty(t, reg.ActiveCourses())

	loader.loadErr = nil
	_, presence, err := reg.Join(context.Background(), "front9", "Alice", NewConnectionID())
	require.NoError(t, err)
	assert.Len(t, presence.Players, 1)
	assert.Equal(t, int32(2), loader.loads.Load())
}

func TestRegistryUnknownCourse(t *testing.T) {
	loader := &fakeLoader{}
	reg, _ := newTestRegistry(t, loader)

	_, _, err := reg.Join(context.Background(), "augusta", "Alice", NewConnectionID())
	assert.ErrorIs(t, err, course.ErrCourseNotFound)
	assert.Equal(t, int32(0), loader.loads.Load())
}

func TestRegistryReconnectSwapsConnection(t *testing.T) {
	reg, _ := newTestRegistry(t, &fakeLoader{})
	first, second := NewConnectionID(), NewConnectionID()

	_, _, err := reg.Join(context.Background(), "front9", "Alice", first)
	require.NoError(t, err)
	_, _, err = reg.ApplyScore("front9", "Alice", 0, models.IntPtr(4))
	require.NoError(t, err)

	joined, presence, err := reg.Join(context.Background(), "front9", "Alice", second)
	require.NoError(t, err)
	assert.Len(t, presence.Players, 1)
	assert.Equal(t, 4, *joined.Scores[0])

	_, _, ok := reg.Leave(first)
	assert.False(t, ok, "stale connection must not remove the reconnected player")
	assert.Len(t, reg.Snapshot("front9").Players, 1)

	c, presence, ok := reg.Leave(second)
	assert.True(t, ok)
	assert.Equal(t, "front9", c)
	assert.Empty(t, presence.Players)
}

func TestRegistryLeaveUnknownConnection(t *testing.T) {
	reg, _ := newTestRegistry(t, &fakeLoader{})
	_, _, ok := reg.Leave(NewConnectionID())
	assert.False(t, ok)
}

func TestRegistryVersionsIncrease(t *testing.T) {
	reg, _ := newTestRegistry(t, &fakeLoader{})
	conn := NewConnectionID()

	_, joined, err := reg.Join(context.Background(), "front9", "Alice", conn)
	require.NoError(t, err)
	edited, _, err := reg.ApplyScore("front9", "Alice", 2, models.IntPtr(3))
	require.NoError(t, err)
	_, left, ok := reg.Leave(conn)
	require.True(t, ok)
	cleared := reg.Clear("front9")

	assert.Less(t, joined.Version, edited.Version)
	assert.Less(t, edited.Version, left.Version)
	assert.Less(t, left.Version, cleared)

	_, rejoined, err := reg.Join(context.Background(), "front9", "Alice", conn)
	require.NoError(t, err)
	assert.Less(t, cleared, rejoined.Version)
}

func TestRegistryApplyScoreErrors(t *testing.T) {
	reg, _ := newTestRegistry(t, &fakeLoader{})

	_, _, err := reg.ApplyScore("front9", "Alice", 0, models.IntPtr(1))
	assert.ErrorIs(t, err, ErrNoActiveRound)

	_, _, err = reg.Join(context.Background(), "front9", "Alice", NewConnectionID())
	require.NoError(t, err)

	_, _, err = reg.ApplyScore("front9", "Bob", 0, models.IntPtr(1))
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	_, _, err = reg.ApplyScore("front9", "Alice", 9, models.IntPtr(1))
	assert.ErrorIs(t, err, ErrHoleIndexOutOfRange)
	_, _, err = reg.ApplyScore("front9", "Alice", -1, models.IntPtr(1))
	assert.ErrorIs(t, err, ErrHoleIndexOutOfRange)
}

func TestRegistrySnapshotDoesNotAlias(t *testing.T) {
	reg, _ := newTestRegistry(t, &fakeLoader{})
	_, _, err := reg.Join(context.Background(), "front9", "Alice", NewConnectionID())
	require.NoError(t, err)

	value := 4
	_, _, err = reg.ApplyScore("front9", "Alice", 0, &value)
	require.NoError(t, err)
	value = 7

	snap := reg.Snapshot("front9")
	*snap.Players[0].Scores[0] = 9
	assert.Equal(t, 4, *reg.Snapshot("front9").Players[0].Scores[0])
}

func TestRegistryResumesMergedScores(t *testing.T) {
	loader := &fakeLoader{resumed: map[string]models.Scores{
		"Alice": {models.IntPtr(4), nil},
	}}
	reg, _ := newTestRegistry(t, loader)

	joined, _, err := reg.Join(context.Background(), "front9", "Alice", NewConnectionID())
	require.NoError(t, err)
	require.Len(t, joined.Scores, 9, "persisted lines are fitted to the course")
	assert.Equal(t, 4, *joined.Scores[0])
	assert.Nil(t, joined.Scores[1])
}

func TestRegistryClearDetachesConnections(t *testing.T) {
	reg, _ := newTestRegistry(t, &fakeLoader{})
	conn := NewConnectionID()
	_, _, err := reg.Join(context.Background(), "front9", "Alice", conn)
	require.NoError(t, err)

	reg.Clear("front9")

	_, _, ok := reg.Lookup(conn)
	assert.False(t, ok)
	assert.Empty(t, reg.Snapshot("front9").Players)
	_, _, err = reg.ApplyScore("front9", "Alice", 0, models.IntPtr(1))
	assert.ErrorIs(t, err, ErrNoActiveRound)
}

func TestRegistryEvictIdle(t *testing.T) {
	reg, clock := newTestRegistry(t, &fakeLoader{})
	ctx := context.Background()

	conn := NewConnectionID()
	_, _, err := reg.Join(ctx, "front9", "Alice", conn)
	require.NoError(t, err)
	_, _, err = reg.Join(ctx, "back9", "Bob", NewConnectionID())
	require.NoError(t, err)
	_, _, ok := reg.Leave(conn)
	require.True(t, ok)

	assert.Empty(t, reg.EvictIdle(clock.Now(), time.Hour))

	clock.Advance(time.Hour)
	assert.Equal(t, []string{"front9"}, reg.EvictIdle(clock.Now(), time.Hour))

	active := reg.ActiveCourses()
	require.Len(t, active, 1)
	assert.Equal(t, "back9", active[0].Course)
}

func TestRegistryQuiesceWaitsForAppliedEdits(t *testing.T) {
	reg, _ := newTestRegistry(t, &fakeLoader{})
	ctx := context.Background()
	_, _, err := reg.Join(ctx, "front9", "Alice", NewConnectionID())
	require.NoError(t, err)

	_, done, err := reg.ApplyScore("front9", "Alice", 0, models.IntPtr(4))
	require.NoError(t, err)

	quiesced := make(chan func(), 1)
	go func() {
		resume, err := reg.Quiesce(ctx, "front9")
		assert.NoError(t, err)
		quiesced <- resume
	}()

	require.Eventually(t, func() bool {
		_, d, err := reg.ApplyScore("front9", "Alice", 1, models.IntPtr(3))
		if err == nil {
			d()
			return false
		}
		return errors.Is(err, ErrNoActiveRound)
	}, time.Second, 5*time.Millisecond, "a quiescing round rejects new edits")
	assert.Empty(t, quiesced)

	done()
	var resume func()
	select {
	case resume = <-quiesced:
	case <-time.After(2 * time.Second):
		t.Fatal("quiesce did not return after the pending edit finished")
	}

	resume()
	_, d, err := reg.ApplyScore("front9", "Alice", 1, models.IntPtr(3))
	require.NoError(t, err)
	d()
}

func TestRegistryQuiesceHonorsContext(t *testing.T) {
	reg, _ := newTestRegistry(t, &fakeLoader{})
	_, _, err := reg.Join(context.Background(), "front9", "Alice", NewConnectionID())
	require.NoError(t, err)
	_, done, err := reg.ApplyScore("front9", "Alice", 0, models.IntPtr(4))
	require.NoError(t, err)
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = reg.Quiesce(ctx, "front9")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, d, err := reg.ApplyScore("front9", "Alice", 1, models.IntPtr(3))
	require.NoError(t, err, "a quiesce that gave up reopens the round")
	d()
}
