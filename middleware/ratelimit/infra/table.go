package infra

import (
	"context"
	"sync"
	"time"

	"middleware-gateway/middleware/ratelimit/domain"

	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"
)

// CounterTable é o limiter de janela fixa em memória.
//
// A tabela é dividida em shards (murmur3 da chave) e cada contador tem o seu
// próprio mutex: a sequência ler-comparar-incrementar de CheckAndConsume só
// serializa requisições da mesma chave (sujeito + regra).
type CounterTable struct {
	shards       []*shard
	thresholds   domain.Thresholds
	retention    time.Duration
	cleanupEvery time.Duration
	clock        func() time.Time
	logger       *zap.Logger
	events       *notifier
}

type shard struct {
	mu      sync.RWMutex
	entries map[domain.Key]*counterEntry
}

type counterEntry struct {
	mu      sync.Mutex
	rule    *domain.Rule
	counter domain.Counter
	// dead é marcado pelo janitor ao remover a entrada; quem já tinha o ponteiro
	// precisa refazer o lookup.
	dead bool
}

var _ domain.Limiter = (*CounterTable)(nil)

type TableOption func(*CounterTable)

// WithRetention define por quanto tempo um contador inativo sobrevive depois do
// fim da sua janela antes de ser removido pelo janitor.
func WithRetention(d time.Duration) TableOption {
	return func(t *CounterTable) { t.retention = d }
}

func WithCleanupEvery(d time.Duration) TableOption {
	return func(t *CounterTable) { t.cleanupEvery = d }
}

func WithShards(n int) TableOption {
	return func(t *CounterTable) {
		if n > 0 {
			t.shards = newShards(n)
		}
	}
}

func WithThresholds(th domain.Thresholds) TableOption {
	return func(t *CounterTable) { t.thresholds = th }
}

// WithClock troca o relógio usado pelo janitor (testes).
func WithClock(clock func() time.Time) TableOption {
	return func(t *CounterTable) { t.clock = clock }
}

func WithLogger(l *zap.Logger) TableOption {
	return func(t *CounterTable) {
		if l != nil {
			t.logger = l
		}
	}
}

func NewCounterTable(opts ...TableOption) *CounterTable {
	t := &CounterTable{
		shards:       newShards(32),
		thresholds:   domain.DefaultThresholds,
		retention:    15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		clock:        time.Now,
		logger:       zap.NewNop(),
		events:       newNotifier(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func newShards(n int) []*shard {
	out := make([]*shard, n)
	for i := range out {
		out[i] = &shard{entries: make(map[domain.Key]*counterEntry)}
	}
	return out
}

func (t *CounterTable) shardFor(key domain.Key) *shard {
	h := murmur3.Sum32([]byte(key))
	return t.shards[h%uint32(len(t.shards))]
}

func (t *CounterTable) Thresholds() domain.Thresholds { return t.thresholds }

// CheckAndConsume implementa domain.Limiter.
func (t *CounterTable) CheckAndConsume(_ context.Context, subject string, rule *domain.Rule, now time.Time) (domain.Result, error) {
	if err := validateCall(subject, rule); err != nil {
		return domain.Result{}, err
	}

	ent := t.lockEntry(subject, rule, now)
	c := &ent.counter
	if c.Expired(rule, now) {
		c.Requests = 0
		c.WindowStartedAt = now
	}
	allowed := c.Requests < rule.Limit()
	if allowed {
		c.Requests++
	}
	st := domain.ComputeStatus(rule, *c, t.thresholds)

	kind := domain.EventConsumed
	if !allowed {
		kind = domain.EventRejected
	}
	// publish não bloqueia; com o lock da entrada a ordem dos eventos de uma
	// chave é a ordem das seções críticas
	t.events.publish(domain.Event{Kind: kind, Status: st, At: now})
	ent.mu.Unlock()

	return domain.Result{Allowed: allowed, Status: st}, nil
}

// Status implementa domain.Limiter. Não cria nem altera contadores: um contador
// inexistente (ou com janela vencida) é lido como zero requisições a partir de now.
func (t *CounterTable) Status(_ context.Context, subject string, rule *domain.Rule, now time.Time) (domain.Status, error) {
	if err := validateCall(subject, rule); err != nil {
		return domain.Status{}, err
	}

	c := domain.Counter{Subject: subject, RuleID: rule.ID(), WindowStartedAt: now}

	key := domain.NewKey(subject, rule)
	sh := t.shardFor(key)
	sh.mu.RLock()
	ent, ok := sh.entries[key]
	sh.mu.RUnlock()
	if ok {
		ent.mu.Lock()
		snapshot, dead := ent.counter, ent.dead
		ent.mu.Unlock()
		if !dead && !snapshot.Expired(rule, now) {
			c = snapshot
		}
	}
	return domain.ComputeStatus(rule, c, t.thresholds), nil
}

// Reset zera o contador e reinicia a janela em now. Idempotente.
func (t *CounterTable) Reset(_ context.Context, subject string, rule *domain.Rule, now time.Time) error {
	if err := validateCall(subject, rule); err != nil {
		return err
	}

	c := domain.Counter{Subject: subject, RuleID: rule.ID(), WindowStartedAt: now}

	key := domain.NewKey(subject, rule)
	sh := t.shardFor(key)
	sh.mu.RLock()
	ent, ok := sh.entries[key]
	sh.mu.RUnlock()
	ev := domain.Event{Kind: domain.EventReset, Status: domain.ComputeStatus(rule, c, t.thresholds), At: now}
	if ok {
		ent.mu.Lock()
		if !ent.dead {
			ent.counter.Requests = 0
			ent.counter.WindowStartedAt = now
		}
		t.events.publish(ev)
		ent.mu.Unlock()
	} else {
		t.events.publish(ev)
	}

	t.logger.Debug("rate limit counter reset",
		zap.String("subject", subject),
		zap.String("rule", rule.ID()))
	return nil
}

// lockEntry devolve a entrada da chave já travada, criando-a se preciso.
func (t *CounterTable) lockEntry(subject string, rule *domain.Rule, now time.Time) *counterEntry {
	key := domain.NewKey(subject, rule)
	sh := t.shardFor(key)

	for {
		sh.mu.RLock()
		ent, ok := sh.entries[key]
		sh.mu.RUnlock()

		if !ok {
			sh.mu.Lock()
			ent, ok = sh.entries[key]
			if !ok {
				ent = &counterEntry{
					rule: rule,
					counter: domain.Counter{
						Subject:         subject,
						RuleID:          rule.ID(),
						WindowStartedAt: now,
					},
				}
				sh.entries[key] = ent
			}
			sh.mu.Unlock()
		}

		ent.mu.Lock()
		if !ent.dead {
			return ent
		}
		ent.mu.Unlock()
	}
}

// Len retorna o número de contadores vivos.
func (t *CounterTable) Len() int {
	n := 0
	for _, sh := range t.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// Cleanup remove contadores cuja janela terminou há mais de `retention`.
func (t *CounterTable) Cleanup(now time.Time) int {
	removed := 0
	for _, sh := range t.shards {
		sh.mu.Lock()
		for k, ent := range sh.entries {
			ent.mu.Lock()
			idleSince := ent.counter.WindowStartedAt.Add(ent.rule.Window())
			if !now.Before(idleSince.Add(t.retention)) {
				ent.dead = true
				delete(sh.entries, k)
				removed++
			}
			ent.mu.Unlock()
		}
		sh.mu.Unlock()
	}
	return removed
}

// StartJanitor inicia uma goroutine que limpa contadores inativos periodicamente.
// Pare cancelando o contexto.
func (t *CounterTable) StartJanitor(ctx DoneContext) {
	if t.cleanupEvery <= 0 {
		return
	}

	tk := time.NewTicker(t.cleanupEvery)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				if n := t.Cleanup(t.clock()); n > 0 {
					t.logger.Debug("rate limit counters evicted", zap.Int("count", n), zap.Int("live", t.Len()))
				}
			}
		}
	}()
}

// Subscribe devolve um canal com os eventos de mudança dos contadores e uma
// função para cancelar a inscrição. Assinantes lentos perdem eventos.
func (t *CounterTable) Subscribe(buffer int) (<-chan domain.Event, func()) {
	return t.events.subscribe(buffer)
}

func validateCall(subject string, rule *domain.Rule) error {
	if rule == nil {
		return domain.ErrInvalidRule
	}
	return domain.ValidateSubject(subject)
}

// DoneContext é o mínimo que os janitors precisam de um context.Context.
type DoneContext interface {
	Done() <-chan struct{}
}
