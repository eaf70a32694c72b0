package artifacts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/models"
)

// ErrConflict 는 동시 쓰기가 계속 버전 경쟁에서 이길 때 반환된다.
var ErrConflict = errors.New("artifacts: version conflict")

const defaultMaxAttempts = 5

// Backend 는 artifacts 문서를 버전 토큰과 함께 저장한다.
type Backend interface {
	LoadArtifacts(ctx context.Context, runID primitive.ObjectID) (models.Artifacts, int64, error)
	SwapArtifacts(ctx context.Context, runID primitive.ObjectID, version int64, artifacts models.Artifacts) (bool, error)
}

// Store 는 프로세스 안에서는 실행별로 병합을 직렬화하고,
// 프로세스 간에는 backend 의 버전 compare-and-swap 을 사용한다.
type Store struct {
	backend     Backend
	maxAttempts int

	mu    sync.Mutex
	locks map[primitive.ObjectID]*runLock
}

type runLock struct {
	mu   sync.Mutex
	refs int
}

func NewStore(backend Backend) *Store {
	return &Store{
		backend:     backend,
		maxAttempts: defaultMaxAttempts,
		locks:       make(map[primitive.ObjectID]*runLock),
	}
}

// Load 는 실행의 현재 artifacts 문서를 돌려준다.
func (s *Store) Load(ctx context.Context, runID primitive.ObjectID) (models.Artifacts, error) {
	a, _, err := s.backend.LoadArtifacts(ctx, runID)
	return a, err
}

// Merge 는 fragment 를 실행의 artifacts 에 깊은 병합하고 병합된 문서를 돌려준다.
func (s *Store) Merge(ctx context.Context, runID primitive.ObjectID, fragment models.Artifacts) (models.Artifacts, error) {
	unlock := s.lock(runID)
	defer unlock()

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current, version, err := s.backend.LoadArtifacts(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load artifacts: %w", err)
		}
		merged := Merge(current, fragment)
		ok, err := s.backend.SwapArtifacts(ctx, runID, version, merged)
		if err != nil {
			return nil, fmt.Errorf("save artifacts: %w", err)
		}
		if ok {
			return merged, nil
		}
	}
	return nil, ErrConflict
}

func (s *Store) lock(runID primitive.ObjectID) func() {
	s.mu.Lock()
	l, ok := s.locks[runID]
	if !ok {
		l = &runLock{}
		s.locks[runID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, runID)
		}
		s.mu.Unlock()
	}
}
