package config

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
)

const (
	// AdcMax is the largest raw reading of the 10 bit ADC.
	AdcMax = 1023
	// MaxGPIO is the highest GPIO number of the ESP8266.
	MaxGPIO = 16
	// DMXUniverseSize is the number of slots in one universe.
	DMXUniverseSize = 512
	// MaxUniverse is the largest 15 bit Art-Net port address.
	MaxUniverse = 32767
)

// topicReserved are the characters MQTT gives a meaning inside a topic.
const topicReserved = "/+#\x00"

// ValidationError lists every problem found in a record.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// pinTable names every pin of the record.
func (p PinsConfig) pinTable() map[string]int {
	return map[string]int{
		"Pins.Red":             p.Red,
		"Pins.Green":           p.Green,
		"Pins.Blue":            p.Blue,
		"Pins.OnboardNeopixel": p.OnboardNeopixel,
		"Pins.Button":          p.Button,
		"Pins.Strip":           p.Strip,
	}
}

// GPIOUsable reports whether pin can be used on an ESP8266. GPIO 6 to 11 are
// wired to the flash chip.
func GPIOUsable(pin int) bool {
	return pin >= 0 && pin <= MaxGPIO && (pin < 6 || pin > 11)
}

// Validate checks the invariants every consumer relies on. It returns a
// *ValidationError or nil.
func (c *Config) Validate() error {
	verr := &ValidationError{}

	if !c.SchemaVersion.Valid() {
		verr.add("SchemaVersion must be 1 or 2, got %d", c.SchemaVersion)
	}
	if strings.TrimSpace(c.Node.Name) == "" {
		verr.add("Node.Name must not be empty")
	}
	if strings.ContainsAny(c.Node.Name, topicReserved) {
		verr.add("Node.Name %q must not contain any of %q, it is used as an MQTT topic level", c.Node.Name, topicReserved)
	}

	pins := c.Pins.pinTable()
	names := maps.Keys(pins)
	slices.Sort(names)
	usedBy := make(map[int]string, len(pins))
	for _, name := range names {
		pin := pins[name]
		if !GPIOUsable(pin) {
			verr.add("%s must be a usable GPIO (0-5, 12-%d), got %d", name, MaxGPIO, pin)
			continue
		}
		if other, ok := usedBy[pin]; ok {
			verr.add("%s and %s both use GPIO %d", other, name, pin)
			continue
		}
		usedBy[pin] = name
	}

	for name, v := range map[string]int{
		"Power.MinLEDVoltage":  c.Power.MinLEDVoltage,
		"Power.MinSelfVoltage": c.Power.MinSelfVoltage,
		"Power.MaxVoltage":     c.Power.MaxVoltage,
	} {
		if v < 0 || v > AdcMax {
			verr.add("%s must be between 0 and %d, got %d", name, AdcMax, v)
		}
	}

	if !c.LED.ChannelMode.Valid() {
		verr.add("LED.ChannelMode must be between 0 and 3, got %d", int(c.LED.ChannelMode))
	}
	if c.LED.StripLength <= 0 {
		verr.add("LED.StripLength must be positive, got %d", c.LED.StripLength)
	}

	if c.Server.TryDNS && strings.TrimSpace(c.Server.Name) == "" {
		verr.add("Server.Name must be set when Server.TryDNS is enabled")
	}

	if c.DMX.FirstChannel < 1 || c.DMX.FirstChannel > DMXUniverseSize {
		verr.add("DMX.FirstChannel must be between 1 and %d, got %d", DMXUniverseSize, c.DMX.FirstChannel)
	} else if c.LED.ChannelMode.Valid() && c.DMX.LastChannel(c.LED.ChannelMode) > DMXUniverseSize {
		verr.add("DMX.FirstChannel %d leaves no room for %d channels in a universe of %d",
			c.DMX.FirstChannel, c.LED.ChannelMode.Channels(), DMXUniverseSize)
	}
	if c.DMX.Universe < 0 || c.DMX.Universe > MaxUniverse {
		verr.add("DMX.Universe must be between 0 and %d, got %d", MaxUniverse, c.DMX.Universe)
	}

	if c.Web.PasswordRef != "" {
		if _, _, err := splitSecretRef(c.Web.PasswordRef); err != nil {
			verr.add("Web.PasswordRef: %v", err)
		}
	}

	if len(verr.Problems) > 0 {
		slices.Sort(verr.Problems)
		return verr
	}
	return nil
}

// Warnings lists problems a node tolerates but an operator should know about.
func (c *Config) Warnings() []string {
	var ret []string
	if c.Power.MinSelfVoltage > c.Power.MinLEDVoltage {
		ret = append(ret, fmt.Sprintf("Power.MinSelfVoltage (%d) is above Power.MinLEDVoltage (%d)",
			c.Power.MinSelfVoltage, c.Power.MinLEDVoltage))
	}
	if c.Power.MinLEDVoltage > c.Power.MaxVoltage {
		ret = append(ret, fmt.Sprintf("Power.MinLEDVoltage (%d) is above Power.MaxVoltage (%d)",
			c.Power.MinLEDVoltage, c.Power.MaxVoltage))
	}
	if c.Web.Password != "" && c.Web.PasswordRef == "" {
		ret = append(ret, "Web.Password is stored in plaintext, prefer Web.PasswordRef")
	}
	return ret
}
