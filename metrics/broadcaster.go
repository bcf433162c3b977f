package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Listener receives published samples. Errors and panics are logged by the broadcaster and do not
// affect other listeners.
type Listener func(sample string) error

// Token identifies a registration. The zero Token identifies nothing.
type Token struct{ id uint64 }

// Valid reports whether the token was returned by [Broadcaster.Register].
func (t Token) Valid() bool { return t.id != 0 }

type registration struct {
	token    Token
	listener Listener
}

// Broadcaster fans published samples out to registered listeners. It is safe for concurrent use: a
// publish delivers to the listeners registered when it started, registrations during a publish take
// effect for the next one.
type Broadcaster struct {
	logs *zap.Logger

	mu     sync.Mutex
	lastID uint64
	regs   atomic.Pointer[[]registration]
}

// NewBroadcaster inits a broadcaster that logs listener failures to logs.
func NewBroadcaster(logs *zap.Logger) *Broadcaster {
	if logs == nil {
		logs = zap.NewNop()
	}

	return &Broadcaster{logs: logs}
}

// Register adds l and returns the token to remove it with.
func (b *Broadcaster) Register(l Listener) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastID++
	tok := Token{b.lastID}

	next := append(append([]registration(nil), b.snapshot()...), registration{tok, l})
	b.regs.Store(&next)

	return tok
}

// Remove removes the listener registered with t. Unknown and already removed tokens are ignored.
func (b *Broadcaster) Remove(t Token) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.snapshot()
	next := lo.Reject(cur, func(r registration, _ int) bool { return r.token == t })
	if len(next) == len(cur) {
		return
	}

	b.regs.Store(&next)
}

// Publish delivers sample to every listener, in registration order.
func (b *Broadcaster) Publish(sample string) {
	for _, reg := range b.snapshot() {
		b.deliver(reg, sample)
	}
}

// Len returns the number of registered listeners.
func (b *Broadcaster) Len() int { return len(b.snapshot()) }

func (b *Broadcaster) snapshot() []registration {
	if p := b.regs.Load(); p != nil {
		return *p
	}

	return nil
}

func (b *Broadcaster) deliver(reg registration, sample string) {
	defer func() {
		if e := recover(); e != nil {
			b.logs.Warn("metrics listener panicked",
				zap.Uint64("listener", reg.token.id), zap.Error(errors.Newf("%v", e)))
		}
	}()

	if err := reg.listener(sample); err != nil {
		b.logs.Warn("metrics listener failed", zap.Uint64("listener", reg.token.id), zap.Error(err))
	}
}
