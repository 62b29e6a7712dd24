package librespot

import (
	"time"

	"github.com/tejashwikalptaru/espot/internal/domain"
)

// progress tracks the position of the current track and arms a timer that
// fires window before its end, at most once per track.
type progress struct {
	window time.Duration

	track    domain.TrackID
	duration time.Duration
	position time.Duration // at since
	since    time.Time
	playing  bool
	warned   bool

	timer *time.Timer
}

func (p *progress) start(id domain.TrackID, duration, position time.Duration, now time.Time) {
	p.track = id
	p.duration = duration
	p.position = position
	p.since = now
	p.playing = true
	p.warned = false
	p.arm(now)
}

func (p *progress) resume(now time.Time) {
	if !p.playing {
		p.since = now
		p.playing = true
	}
	p.arm(now)
}

func (p *progress) pause(now time.Time) {
	if p.playing {
		p.position = p.at(now)
		p.playing = false
	}
	p.disarm()
}

func (p *progress) seek(position time.Duration, now time.Time) {
	p.position = position
	p.since = now
	if p.duration-position > p.window {
		p.warned = false
	}
	p.arm(now)
}

func (p *progress) reset() {
	p.disarm()
	*p = progress{window: p.window}
}

// at returns the playback position at now.
func (p *progress) at(now time.Time) time.Duration {
	if !p.playing {
		return p.position
	}
	return p.position + now.Sub(p.since)
}

// untilWarning is the delay before the about-to-finish point, never negative.
func (p *progress) untilWarning(now time.Time) time.Duration {
	return max(p.duration-p.at(now)-p.window, 0)
}

func (p *progress) arm(now time.Time) {
	p.disarm()
	if p.warned || !p.playing || p.track == "" || p.duration <= 0 {
		return
	}
	p.timer = time.NewTimer(p.untilWarning(now))
}

func (p *progress) disarm() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// fire is nil while disarmed, which blocks forever in a select.
func (p *progress) fire() <-chan time.Time {
	if p.timer == nil {
		return nil
	}
	return p.timer.C
}

func (p *progress) fired() {
	p.warned = true
	p.timer = nil
}
