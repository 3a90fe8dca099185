package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestChannelMode(t *testing.T) {
	tests := []struct {
		mode     ChannelMode
		channels int
		name     string
	}{
		{ChannelsRGB, 3, "rgb"},
		{ChannelsRGBDim, 4, "rgb-dim"},
		{ChannelsRRGGBB, 6, "rrggbb"},
		{ChannelsRRGGBBDim, 7, "rrggbb-dim"},
	}
	for _, tt := range tests {
		assert.True(t, tt.mode.Valid())
		assert.Equal(t, tt.channels, tt.mode.Channels())
		assert.Len(t, tt.mode.Layout(), tt.channels)
		assert.Equal(t, tt.name, tt.mode.String())
	}

	invalid := ChannelMode(4)
	assert.False(t, invalid.Valid())
	assert.Equal(t, 0, invalid.Channels())
	assert.Nil(t, invalid.Layout())
	assert.Equal(t, "unknown(4)", invalid.String())
}

func TestChannelMode_LayoutIsACopy(t *testing.T) {
	layout := ChannelsRGB.Layout()
	layout[0] = "changed"
	assert.Equal(t, "red", ChannelsRGB.Layout()[0])
}

func TestLegacyBool_YAML(t *testing.T) {
	var v struct {
		A LegacyBool `yaml:"A"`
		B LegacyBool `yaml:"B"`
		C LegacyBool `yaml:"C"`
		D LegacyBool `yaml:"D"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("A: 1\nB: 0\nC: true\nD: false\n"), &v))
	assert.Equal(t, v.A, v.C, "1 and true are the same value")
	assert.Equal(t, v.B, v.D, "0 and false are the same value")
	assert.True(t, bool(v.A))
	assert.False(t, bool(v.B))

	assert.Error(t, yaml.Unmarshal([]byte("A: maybe\n"), &v))
	assert.Error(t, yaml.Unmarshal([]byte("A: [1]\n"), &v))

	out, err := yaml.Marshal(struct {
		A LegacyBool `yaml:"A"`
	}{true})
	require.NoError(t, err)
	assert.Equal(t, "A: true\n", string(out), "LegacyBool is always written as a boolean")
}

func TestLegacyBool_JSON(t *testing.T) {
	var b LegacyBool
	require.NoError(t, json.Unmarshal([]byte("1"), &b))
	assert.True(t, bool(b))
	require.NoError(t, json.Unmarshal([]byte("false"), &b))
	assert.False(t, bool(b))
	assert.Error(t, json.Unmarshal([]byte(`"yes"`), &b))
}

func TestParseLegacyBool(t *testing.T) {
	for in, want := range map[string]bool{"true": true, "false": false, "1": true, "0": false, "2": true} {
		got, err := ParseLegacyBool(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, bool(got), in)
	}
	_, err := ParseLegacyBool("on-ish")
	assert.Error(t, err)
}

func TestIPv4(t *testing.T) {
	ip, err := ParseIPv4("192.168.0.100")
	require.NoError(t, err)
	assert.Equal(t, IPv4{192, 168, 0, 100}, ip)
	assert.Equal(t, "192.168.0.100", ip.String())
	assert.False(t, ip.IsZero())

	mapped, err := ParseIPv4("::ffff:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, IPv4{10, 0, 0, 1}, mapped)

	_, err = ParseIPv4("2001:db8::1")
	assert.Error(t, err)
	_, err = ParseIPv4("lumos")
	assert.Error(t, err)
}

func TestIPv4_Encodings(t *testing.T) {
	var v struct {
		S IPv4 `yaml:"S"`
		L IPv4 `yaml:"L"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("S: 10.1.2.3\nL: [10, 1, 2, 3]\n"), &v))
	assert.Equal(t, v.S, v.L)

	assert.Error(t, yaml.Unmarshal([]byte("L: [10, 1, 2, 256]\n"), &v))
	assert.Error(t, yaml.Unmarshal([]byte("L: {a: 1}\n"), &v))

	data, err := json.Marshal(v.S)
	require.NoError(t, err)
	assert.Equal(t, `"10.1.2.3"`, string(data))

	var back IPv4
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, v.S, back)
}

func TestDMXAccepts(t *testing.T) {
	d := DMXConfig{FirstChannel: 1, Universe: 2}
	assert.True(t, d.Accepts(2, false))
	assert.False(t, d.Accepts(3, false))
	assert.False(t, d.Accepts(2, true), "broadcast is refused unless allowed")

	d.AllowBroadcast = true
	assert.True(t, d.Accepts(2, true))
	assert.Equal(t, 7, d.LastChannel(ChannelsRRGGBBDim))
}

func TestPowerThresholds(t *testing.T) {
	p := Defaults(SchemaV2).Power
	assert.True(t, p.LEDPowerOK(775))
	assert.False(t, p.LEDPowerOK(774))
	assert.True(t, p.SelfPowerOK(725))
	assert.False(t, p.SelfPowerOK(724))
	assert.False(t, p.OverVoltage(1023))
	assert.True(t, p.OverVoltage(1024))
}

func TestDriver(t *testing.T) {
	assert.Equal(t, DriverFixture, LEDConfig{FixtureOutput: true}.Driver())
	assert.Equal(t, DriverPixelStrip, LEDConfig{FixtureOutput: false}.Driver())
	assert.Equal(t, "fixture-12w", DriverFixture.String())
	assert.Equal(t, "pixel-strip", DriverPixelStrip.String())
}
