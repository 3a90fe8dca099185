// Package power classifies the node's supply readings against the
// configured ADC thresholds.
package power

import (
	"sync"

	"github.com/gammazero/deque"

	c "github.com/solexious/LUMOS-Code/config"
)

const DefaultWindow = 16

type Status int

const (
	StatusUnknown Status = iota
	StatusOK
	StatusLow
	StatusHigh
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusLow:
		return "low"
	case StatusHigh:
		return "high"
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is the smoothed view of both supplies.
type State struct {
	LED      Status  `json:"LED"`
	Self     Status  `json:"Self"`
	LEDMean  float64 `json:"LEDMean"`
	SelfMean float64 `json:"SelfMean"`
}

// LEDOutputAllowed reports whether the LED output may be driven.
func (s State) LEDOutputAllowed() bool {
	return s.LED == StatusOK && s.Self == StatusOK
}

// Monitor keeps a rolling window of raw ADC readings. Readings are fed by
// whoever samples the ADC.
type Monitor struct {
	mu         sync.Mutex
	thresholds c.PowerConfig
	window     int
	led        deque.Deque[int]
	self       deque.Deque[int]
}

func NewMonitor(thresholds c.PowerConfig, window int) *Monitor {
	if window <= 0 {
		window = DefaultWindow
	}
	m := &Monitor{
		thresholds: thresholds,
		window:     window,
	}
	m.led.Grow(window)
	m.self.Grow(window)
	return m
}

// SetThresholds switches to the thresholds of a reloaded configuration. The
// readings collected so far are kept.
func (m *Monitor) SetThresholds(thresholds c.PowerConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds = thresholds
}

// Add records one sample of the LED supply and the node's own supply.
func (m *Monitor) Add(ledReading, selfReading int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	push(&m.led, ledReading, m.window)
	push(&m.self, selfReading, m.window)
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	var st State
	if m.led.Len() == 0 {
		return st
	}
	st.LEDMean = mean(&m.led)
	st.SelfMean = mean(&m.self)
	st.LED = classify(st.LEDMean, m.thresholds.MinLEDVoltage, m.thresholds.MaxVoltage)
	st.Self = classify(st.SelfMean, m.thresholds.MinSelfVoltage, m.thresholds.MaxVoltage)
	return st
}

func push(q *deque.Deque[int], v, window int) {
	q.PushBack(v)
	for q.Len() > window {
		q.PopFront()
	}
}

func mean(q *deque.Deque[int]) float64 {
	sum := 0
	for i := 0; i < q.Len(); i++ {
		sum += q.At(i)
	}
	return float64(sum) / float64(q.Len())
}

func classify(v float64, minimum, maximum int) Status {
	switch {
	case v < float64(minimum):
		return StatusLow
	case v > float64(maximum):
		return StatusHigh
	}
	return StatusOK
}
