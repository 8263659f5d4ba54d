package steering

import (
	"context"
	"errors"
	"sync"
	"time"
)

// defaultPollInterval is the coordinator-level refresh cadence. The device
// handles poll their own hardware faster; this loop drives the read model
// and telemetry.
const defaultPollInterval = time.Second

// StatePublisher receives the per-axis read model on every change.
type StatePublisher interface {
	PublishAxisState(status AxisStatus)
}

// SampleWriter receives telemetry samples for connected axes.
type SampleWriter interface {
	WriteAxisSample(axisID, serial string, voltage, jogStep float64)
}

// PollOptions configures a PollLoop.
type PollOptions struct {
	// Interval between refresh ticks. Defaults to 1s.
	Interval time.Duration

	// Publishers receive the axis read model each tick.
	Publishers []StatePublisher

	// Sampler receives telemetry samples for connected axes. Optional.
	Sampler SampleWriter

	// Logger receives structured log output. Defaults to a no-op.
	Logger Logger
}

// PollLoop refreshes both axes on a fixed cadence and fans the resulting
// read model out to the configured sinks. Each axis is refreshed
// independently so a fault on one never starves the other.
type PollLoop struct {
	coord      *Coordinator
	interval   time.Duration
	publishers []StatePublisher
	sampler    SampleWriter
	logger     Logger

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewPollLoop creates a PollLoop for the given coordinator.
func NewPollLoop(coord *Coordinator, opts PollOptions) *PollLoop {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &PollLoop{
		coord:      coord,
		interval:   interval,
		publishers: opts.Publishers,
		sampler:    opts.Sampler,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start launches the poll goroutine. An immediate tick publishes the
// initial state before the cadence begins.
func (p *PollLoop) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.tick()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.done:
				return
			case <-ticker.C:
				p.tick()
			}
		}
	}()
	p.logger.Info("poll loop started", "interval", p.interval.String())
}

// Stop halts the poll goroutine and waits for it to exit. Safe to call
// repeatedly.
func (p *PollLoop) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

// tick refreshes and publishes each axis in turn.
func (p *PollLoop) tick() {
	for _, id := range axisOrder {
		if err := p.coord.Refresh(id); err != nil {
			// An axis that was never started has nothing to refresh or
			// publish; the service may be waiting on a reassignment.
			if errors.Is(err, ErrUnknownAxis) {
				continue
			}
			p.logger.Warn("axis refresh failed", "axis", string(id), "error", err)
		}

		status, ok := p.coord.AxisStatus(id)
		if !ok {
			continue
		}
		for _, pub := range p.publishers {
			pub.PublishAxisState(status)
		}
		if p.sampler != nil && status.State.Connected() {
			p.sampler.WriteAxisSample(string(id), status.Serial.String(), status.Voltage, status.JogStep)
		}
	}
}
