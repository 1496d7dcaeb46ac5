package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/prizevote/go/internal/voting"
	"github.com/mcdev12/prizevote/go/internal/voting/projector"
	"github.com/mcdev12/prizevote/go/internal/voting/round"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is how often the status is polled while waiting.
const DefaultInterval = time.Second

var ErrAlreadyRunning = errors.New("poller already running")

// Refresher produces a projection of the voting service state. Commit is
// called only for projections the round machine accepted.
type Refresher interface {
	Refresh(ctx context.Context) (*projector.Projection, error)
	Commit(proj *projector.Projection)
}

// Update is emitted after every refresh cycle that was not discarded.
type Update struct {
	Projection *projector.Projection
	Transition round.Transition
	State      round.State
	// Waiting is true while the poller keeps refreshing on its interval.
	Waiting bool
	Err     error
}

// Poller reconciles the round machine with the voting service.
// It polls on a fixed interval while the actor is waiting on others and
// stays idle otherwise, until RefreshNow is called.
type Poller struct {
	refresher  Refresher
	machine    *round.Machine
	clock      clockwork.Clock
	interval   time.Duration
	onUpdate   func(Update)
	instanceID string

	wakeCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	busy    atomic.Bool
	running atomic.Bool
	stopped atomic.Bool
	waiting atomic.Bool
}

type Option func(*Poller)

// WithClock sets the clock used for the poll timer.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Poller) { p.clock = clock }
}

// WithInterval sets the poll interval. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithUpdateHandler registers fn to receive every applied update.
func WithUpdateHandler(fn func(Update)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

// New creates a poller that applies refreshes to machine.
func New(refresher Refresher, machine *round.Machine, opts ...Option) *Poller {
	p := &Poller{
		refresher:  refresher,
		machine:    machine,
		clock:      clockwork.NewRealClock(),
		interval:   DefaultInterval,
		onUpdate:   func(Update) {},
		instanceID: uuid.New().String()[:8],
		wakeCh:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	// nothing has been loaded yet, so startup failures are retried
	p.waiting.Store(true)
	return p
}

// Interval returns the poll interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Waiting reports whether the poller is in active polling mode.
func (p *Poller) Waiting() bool {
	return p.waiting.Load()
}

// RefreshNow wakes the loop for an immediate refresh, bypassing the timer.
func (p *Poller) RefreshNow() {
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

// Stop tears the poller down. Refreshes still in flight complete but their
// results are discarded.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		close(p.done)
	})
}

// Run refreshes once, then loops until ctx is done or Stop is called.
func (p *Poller) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.running.Store(false)

	log.Info().
		Str("instance", p.instanceID).
		Dur("interval", p.interval).
		Msg("poller started")
	defer log.Info().Str("instance", p.instanceID).Msg("poller stopped")

	for {
		if _, err := p.Tick(ctx); err != nil && !errors.Is(err, voting.ErrRefreshInFlight) {
			log.Debug().Err(err).Str("instance", p.instanceID).Msg("refresh cycle failed")
		}
		if p.isDone(ctx) {
			return nil
		}

		if p.waiting.Load() {
			timer := p.clock.NewTimer(p.interval)
			select {
			case <-timer.Chan():
			case <-p.wakeCh:
				timer.Stop()
				log.Debug().Str("instance", p.instanceID).Msg("woken up early")
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-p.done:
				timer.Stop()
				return nil
			}
			continue
		}

		// idle: no timer, nothing runs until someone asks
		log.Debug().Str("instance", p.instanceID).Msg("not waiting; polling suspended")
		select {
		case <-p.wakeCh:
		case <-ctx.Done():
			return nil
		case <-p.done:
			return nil
		}
	}
}

// Tick runs a single refresh cycle. Overlapping cycles are rejected with
// voting.ErrRefreshInFlight.
func (p *Poller) Tick(ctx context.Context) (Update, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return Update{}, voting.ErrRefreshInFlight
	}
	defer p.busy.Store(false)

	proj, err := p.refresher.Refresh(ctx)
	if p.isDone(ctx) {
		log.Debug().Str("instance", p.instanceID).Msg("discarding refresh after teardown")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Update{}, ctxErr
		}
		return Update{}, context.Canceled
	}

	if err != nil {
		upd := p.keepWaiting(err)
		log.Warn().
			Err(err).
			Str("instance", p.instanceID).
			Bool("waiting", upd.Waiting).
			Msg("refresh failed; keeping previous status")
		p.onUpdate(upd)
		return upd, err
	}

	t, err := p.machine.ApplyStatus(proj.Snapshot())
	if err != nil {
		upd := p.keepWaiting(err)
		upd.Transition = t
		log.Error().
			Err(err).
			Str("instance", p.instanceID).
			Msg("refresh rejected by state machine")
		p.onUpdate(upd)
		return upd, err
	}
	p.refresher.Commit(proj)

	state := p.machine.CurrentState()
	waiting := proj.NoActiveSession() || proj.Status.WaitingMessage != "" || state.Waiting()
	p.waiting.Store(waiting)

	upd := Update{
		Projection: proj,
		Transition: t,
		State:      state,
		Waiting:    waiting,
	}
	p.onUpdate(upd)
	return upd, nil
}

// keepWaiting builds the update for a failed cycle. The waiting decision
// is left as it was, so a waiting client retries on the next tick.
func (p *Poller) keepWaiting(err error) Update {
	return Update{
		State:   p.machine.CurrentState(),
		Waiting: p.waiting.Load(),
		Err:     err,
	}
}

func (p *Poller) isDone(ctx context.Context) bool {
	return ctx.Err() != nil || p.stopped.Load()
}
