package session

import (
	"sync"
	"time"

	"github.com/victornm/livequiz/internal/domain"
)

// liveSession is a session plus its single timer slot. All reads and
// writes of the embedded state happen under mu; a manual trigger and a
// timer firing for the same session can never apply concurrently.
type liveSession struct {
	mu sync.Mutex

	s domain.Session

	// timer is the one pending callback owned by this session, nil when
	// none. timerGen increments on every arm/cancel so a superseded
	// callback that already left its timer goroutine bails out instead
	// of mutating state.
	timer    Timer
	timerGen uint64

	questionOpenAt time.Time
}

// store is the in-memory registry of live sessions. Sessions are never
// deleted; ended ones remain for queries.
type store struct {
	mu           sync.RWMutex
	sessions     map[string]*liveSession
	players      map[int64]*liveSession
	lastPlayerID int64
}

func newStore() *store {
	return &store{
		sessions: make(map[string]*liveSession),
		players:  make(map[int64]*liveSession),
	}
}

func (st *store) add(ls *liveSession) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.sessions[ls.s.SessionID] = ls
}

func (st *store) get(sessionID string) (*liveSession, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	ls, ok := st.sessions[sessionID]
	return ls, ok
}

func (st *store) byPlayer(playerID int64) (*liveSession, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	ls, ok := st.players[playerID]
	return ls, ok
}

func (st *store) forQuiz(quizID string) []*liveSession {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var sessions []*liveSession
	for _, ls := range st.sessions {
		if ls.s.QuizID == quizID {
			sessions = append(sessions, ls)
		}
	}
	return sessions
}

func (st *store) all() []*liveSession {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sessions := make([]*liveSession, 0, len(st.sessions))
	for _, ls := range st.sessions {
		sessions = append(sessions, ls)
	}
	return sessions
}

// admitPlayer allocates the next player id and indexes it to ls. Player
// ids are issued from one counter across sessions so a player id alone
// identifies its session.
func (st *store) admitPlayer(ls *liveSession) int64 {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.lastPlayerID++
	st.players[st.lastPlayerID] = ls
	return st.lastPlayerID
}
