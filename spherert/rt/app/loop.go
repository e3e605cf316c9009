package app

import (
	"context"
	"errors"
	"time"

	spheres "github.com/gekko3d/spheres"
)

// EventSource delivers host input. PollEvents runs callbacks synchronously on
// the loop thread.
type EventSource interface {
	PollEvents()
	ShouldClose() bool
}

// FrameRunner renders one frame per call. Reconfigure rebuilds presentation
// state after ErrSurfaceLost.
type FrameRunner interface {
	RenderFrame() error
	Reconfigure() error
}

// Clock reports time elapsed since the loop started.
type Clock interface {
	Now() time.Duration
}

type RealClock struct {
	start time.Time
}

func NewRealClock() *RealClock {
	return &RealClock{start: time.Now()}
}

func (c *RealClock) Now() time.Duration { return time.Since(c.start) }

// FixedClock advances by Step on every reading.
type FixedClock struct {
	Step time.Duration
	t    time.Duration
}

func (c *FixedClock) Now() time.Duration {
	c.t += c.Step
	return c.t
}

// Loop redraws continuously until the event source asks to close, the
// context ends, MaxFrames is reached or a fatal error occurs.
type Loop struct {
	Events    EventSource
	Frames    FrameRunner
	Clock     Clock
	Log       spheres.Logger
	Profiler  *Profiler
	MaxFrames int

	FPS      float64
	Rendered int
	Dropped  int
	Lost     int

	lastTick   time.Duration
	frameCount int
	fpsTime    time.Duration
}

func (l *Loop) Run(ctx context.Context) error {
	log := spheres.OrNop(l.Log)
	if l.Clock == nil {
		l.Clock = NewRealClock()
	}
	if l.Profiler == nil {
		l.Profiler = NewProfiler()
	}
	l.lastTick = l.Clock.Now()

	for attempts := 0; l.MaxFrames <= 0 || attempts < l.MaxFrames; attempts++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.Events != nil {
			l.Events.PollEvents()
			if l.Events.ShouldClose() {
				return nil
			}
		}

		err := l.Frames.RenderFrame()
		switch {
		case err == nil:
			l.Rendered++
			l.Profiler.AddCount("frames", 1)
			l.tick()
		case errors.Is(err, ErrSurfaceOutOfMemory), errors.Is(err, ErrDeviceLost):
			log.Errorf("fatal: %v", err)
			return err
		case errors.Is(err, ErrSurfaceLost):
			l.Lost++
			l.Profiler.AddCount("lost", 1)
			// Scope timings from the aborted frame are partial.
			l.Profiler.Reset()
			log.Warnf("%v, reconfiguring", err)
			if rerr := l.Frames.Reconfigure(); rerr != nil {
				log.Errorf("reconfigure: %v", rerr)
			}
		default:
			l.Dropped++
			l.Profiler.AddCount("dropped", 1)
			log.Errorf("frame dropped: %v", err)
		}
	}
	return nil
}

func (l *Loop) tick() {
	now := l.Clock.Now()
	l.frameCount++
	l.fpsTime += now - l.lastTick
	l.lastTick = now
	if l.fpsTime >= time.Second {
		l.FPS = float64(l.frameCount) / l.fpsTime.Seconds()
		l.frameCount = 0
		l.fpsTime = 0
	}
}
