package quota

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"content-forge/config"
)

// ErrDailyLimitReached 는 일일 한도를 모두 사용했을 때 반환된다.
var ErrDailyLimitReached = errors.New("llm daily quota exhausted")

// Limiter 는 LLM 호출에 대한 분당/일일 한도를 관리한다.
// 인메모리로 동작하므로 프로세스가 재시작되면 일일 카운터가 초기화된다.
type Limiter struct {
	minute *rate.Limiter

	mu         sync.Mutex
	dailyLimit int
	usedToday  int
	dayKey     string
	now        func() time.Time
}

// NewLimiterFromConfig 는 config.yaml 의 llm_quota 설정으로 Limiter 를 만든다.
// 0 이하인 값은 해당 방향의 제한을 두지 않는다.
func NewLimiterFromConfig(cfg config.AppConfig) *Limiter {
	return NewLimiter(cfg.LLMQuota.RequestsPerMinute, cfg.LLMQuota.RequestsPerDay)
}

func NewLimiter(requestsPerMinute, requestsPerDay int) *Limiter {
	l := &Limiter{now: time.Now}
	if requestsPerMinute > 0 {
		l.minute = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	if requestsPerDay > 0 {
		l.dailyLimit = requestsPerDay
	}
	return l
}

// Reserve 는 호출 전에 일일 한도를 차감하고 분당 속도에 맞춰 대기한다.
// 일일 한도를 넘으면 ErrDailyLimitReached, 컨텍스트가 끝나면 ctx.Err() 를 돌려준다.
func (l *Limiter) Reserve(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.takeDaily(); err != nil {
		return err
	}
	if l.minute == nil {
		return nil
	}
	if err := l.minute.Wait(ctx); err != nil {
		l.refundDaily()
		return err
	}
	return nil
}

// Remaining 은 오늘 남은 호출 수를 돌려준다. 제한이 없으면 -1.
func (l *Limiter) Remaining() int {
	if l == nil || l.dailyLimit == 0 {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDay()
	return l.dailyLimit - l.usedToday
}

func (l *Limiter) takeDaily() error {
	if l.dailyLimit == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDay()
	if l.usedToday >= l.dailyLimit {
		return ErrDailyLimitReached
	}
	l.usedToday++
	return nil
}

func (l *Limiter) refundDaily() {
	if l.dailyLimit == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.usedToday > 0 {
		l.usedToday--
	}
}

func (l *Limiter) rollDay() {
	key := l.now().UTC().Format("2006-01-02")
	if l.dayKey != key {
		l.dayKey = key
		l.usedToday = 0
	}
}
