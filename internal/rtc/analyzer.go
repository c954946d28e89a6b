package rtc

import (
	"math"
	"sync"
	"time"
)

// Level is one analyzer reading of the participant's microphone.
type Level struct {
	RMS      float64 `json:"rms"`
	Speaking bool    `json:"speaking"`
}

// LevelMeter computes a smoothed RMS level and a majority-vote speech flag
// over recent frames. It is the session's analysis node.
type LevelMeter struct {
	threshold float64
	smoothN   int
	interval  time.Duration
	onLevel   func(Level)

	mu     sync.Mutex
	win    []bool
	rms    float64
	last   time.Time
	closed bool
}

// NewLevelMeter reports at most one reading per interval to onLevel.
func NewLevelMeter(interval time.Duration, onLevel func(Level)) *LevelMeter {
	return &LevelMeter{threshold: 300.0, smoothN: 4, interval: interval, onLevel: onLevel}
}

// Feed analyzes a block of PCM16LE samples.
func (m *LevelMeter) Feed(pcm []byte) {
	n := len(pcm) / 2
	if n == 0 {
		return
	}
	var sum float64
	for i := 0; i < n; i++ {
		f := float64(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(n))

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.rms = 0.7*m.rms + 0.3*rms
	m.win = append(m.win, rms >= m.threshold)
	if len(m.win) > m.smoothN {
		m.win = m.win[len(m.win)-m.smoothN:]
	}
	votes := 0
	for _, v := range m.win {
		if v {
			votes++
		}
	}
	lvl := Level{RMS: m.rms, Speaking: votes*2 >= len(m.win) && votes > 0}
	now := time.Now()
	emit := m.onLevel != nil && now.Sub(m.last) >= m.interval
	if emit {
		m.last = now
	}
	m.mu.Unlock()

	if emit {
		m.onLevel(lvl)
	}
}

// Current returns the latest reading.
func (m *LevelMeter) Current() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	votes := 0
	for _, v := range m.win {
		if v {
			votes++
		}
	}
	return Level{RMS: m.rms, Speaking: votes*2 >= len(m.win) && votes > 0}
}

// Close disconnects the meter; later Feed calls are ignored.
func (m *LevelMeter) Close() error {
	m.mu.Lock()
	m.closed = true
	m.win = nil
	m.rms = 0
	m.mu.Unlock()
	return nil
}
