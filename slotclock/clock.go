// Package slotclock maps wall time to slot numbers and carries the small
// bundle of per-round constants (PoW leading-bit width, active delegate
// count, PoW timeout) that every other component reads from it rather than
// from scattered globals.
package slotclock

import (
	"sync"
	"time"

	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"

	"slotbft/types"
)

// SlotClock exposes slotOf as a pure function of wall time plus the static
// per-round parameters every component needs. Callers treat equal slot
// numbers as the "same round" predicate.
type SlotClock interface {
	service.Service

	SlotOf(ts time.Time) types.LTime
	Leading() uint8
	Delegates() uint32
	PowTimeout() time.Duration

	// Chan delivers one tick per elapsed slot boundary.
	Chan() <-chan types.LTime
	// ResetTimer rearms the boundary timer with a fresh duration, used when
	// the consensus state machine revises its estimate of the current slot's
	// remaining time.
	ResetTimer(d time.Duration)
}

// Clock is the reference SlotClock: a pure slotOf function plus a single
// boundary timer goroutine that fires Chan() once per slot.
type Clock struct {
	service.BaseService

	epoch      time.Time
	slotLength time.Duration
	leading    uint8
	delegates  uint32
	powTimeout time.Duration

	mtx     sync.Mutex
	timer   *time.Timer
	tickCh  chan types.LTime
	stopCh  chan struct{}
}

func New(epoch time.Time, slotLength time.Duration, leading uint8, delegates uint32, powTimeout time.Duration) *Clock {
	c := &Clock{
		epoch:      epoch,
		slotLength: slotLength,
		leading:    leading,
		delegates:  delegates,
		powTimeout: powTimeout,
		tickCh:     make(chan types.LTime, 1),
		stopCh:     make(chan struct{}),
	}
	c.BaseService = *service.NewBaseService(nil, "SlotClock", c)
	return c
}

func (c *Clock) SetLogger(logger log.Logger) {
	c.Logger = logger
}

func (c *Clock) SlotOf(ts time.Time) types.LTime {
	if ts.Before(c.epoch) {
		return types.LtimeZero
	}
	return types.LTime(int64(ts.Sub(c.epoch) / c.slotLength))
}

func (c *Clock) Leading() uint8          { return c.leading }
func (c *Clock) Delegates() uint32       { return c.delegates }
func (c *Clock) PowTimeout() time.Duration { return c.powTimeout }
func (c *Clock) Chan() <-chan types.LTime  { return c.tickCh }

func (c *Clock) OnStart() error {
	c.mtx.Lock()
	c.timer = time.NewTimer(c.slotLength)
	c.mtx.Unlock()
	go c.loop()
	return nil
}

func (c *Clock) OnStop() {
	close(c.stopCh)
	c.mtx.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mtx.Unlock()
}

func (c *Clock) ResetTimer(d time.Duration) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.timer == nil {
		return
	}
	c.timer.Stop()
	c.timer.Reset(d)
}

func (c *Clock) loop() {
	for {
		c.mtx.Lock()
		timer := c.timer
		c.mtx.Unlock()
		if timer == nil {
			return
		}
		select {
		case <-c.stopCh:
			return
		case <-timer.C:
			slot := c.SlotOf(time.Now())
			select {
			case c.tickCh <- slot:
			default:
			}
			c.mtx.Lock()
			c.timer.Reset(c.slotLength)
			c.mtx.Unlock()
		}
	}
}
