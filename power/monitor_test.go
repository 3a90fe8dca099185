package power

import (
	"testing"

	"github.com/stretchr/testify/assert"

	c "github.com/solexious/LUMOS-Code/config"
)

func thresholds() c.PowerConfig {
	return c.PowerConfig{MinLEDVoltage: 775, MinSelfVoltage: 725, MaxVoltage: 1000}
}

func TestMonitor_Empty(t *testing.T) {
	m := NewMonitor(thresholds(), 4)
	st := m.State()
	assert.Equal(t, StatusUnknown, st.LED)
	assert.Equal(t, StatusUnknown, st.Self)
	assert.False(t, st.LEDOutputAllowed())
}

func TestMonitor_Classify(t *testing.T) {
	tests := []struct {
		name     string
		led      int
		self     int
		wantLED  Status
		wantSelf Status
	}{
		{"both ok", 800, 800, StatusOK, StatusOK},
		{"led supply low", 760, 800, StatusLow, StatusOK},
		{"self supply low", 800, 700, StatusOK, StatusLow},
		{"over voltage", 1010, 1010, StatusHigh, StatusHigh},
		{"exactly at thresholds", 775, 725, StatusOK, StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(thresholds(), 4)
			m.Add(tt.led, tt.self)
			st := m.State()
			assert.Equal(t, tt.wantLED, st.LED)
			assert.Equal(t, tt.wantSelf, st.Self)
		})
	}
}

func TestMonitor_WindowSmoothing(t *testing.T) {
	m := NewMonitor(thresholds(), 4)
	for i := 0; i < 3; i++ {
		m.Add(800, 800)
	}
	// One low sample does not pull the mean below the threshold.
	m.Add(760, 800)
	st := m.State()
	assert.Equal(t, StatusOK, st.LED)
	assert.InDelta(t, 790.0, st.LEDMean, 0.001)

	// The window only keeps the last 4 samples.
	for i := 0; i < 4; i++ {
		m.Add(700, 800)
	}
	st = m.State()
	assert.Equal(t, StatusLow, st.LED)
	assert.InDelta(t, 700.0, st.LEDMean, 0.001)
}

func TestMonitor_SetThresholds(t *testing.T) {
	m := NewMonitor(thresholds(), 0)
	m.Add(800, 800)
	assert.True(t, m.State().LEDOutputAllowed())

	raised := thresholds()
	raised.MinLEDVoltage = 850
	m.SetThresholds(raised)
	assert.Equal(t, StatusLow, m.State().LED)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "low", StatusLow.String())
	assert.Equal(t, "high", StatusHigh.String())
	assert.Equal(t, "unknown", StatusUnknown.String())
}
