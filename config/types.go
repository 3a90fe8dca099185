package config

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ChannelMode selects how the RGB(W) output channels are wired.
type ChannelMode int

const (
	ChannelsRGB       ChannelMode = iota // 3 channel: r g b
	ChannelsRGBDim                       // 4 channel: r g b dim
	ChannelsRRGGBB                       // 6 channel: rr gg bb
	ChannelsRRGGBBDim                    // 7 channel: rr gg bb dim
)

var channelLayouts = [...][]string{
	ChannelsRGB:       {"red", "green", "blue"},
	ChannelsRGBDim:    {"red", "green", "blue", "dimmer"},
	ChannelsRRGGBB:    {"red", "red-fine", "green", "green-fine", "blue", "blue-fine"},
	ChannelsRRGGBBDim: {"red", "red-fine", "green", "green-fine", "blue", "blue-fine", "dimmer"},
}

func (m ChannelMode) Valid() bool {
	return m >= ChannelsRGB && m <= ChannelsRRGGBBDim
}

// Channels returns the number of DMX slots the layout occupies, 0 for an
// unknown mode.
func (m ChannelMode) Channels() int {
	if !m.Valid() {
		return 0
	}
	return len(channelLayouts[m])
}

// Layout returns the slot names in wire order.
func (m ChannelMode) Layout() []string {
	if !m.Valid() {
		return nil
	}
	ret := make([]string, len(channelLayouts[m]))
	copy(ret, channelLayouts[m])
	return ret
}

func (m ChannelMode) String() string {
	switch m {
	case ChannelsRGB:
		return "rgb"
	case ChannelsRGBDim:
		return "rgb-dim"
	case ChannelsRRGGBB:
		return "rrggbb"
	case ChannelsRRGGBBDim:
		return "rrggbb-dim"
	}
	return "unknown(" + strconv.Itoa(int(m)) + ")"
}

// LegacyBool is a boolean that also accepts the integer encoding used by
// firmware 0.3 (0 is false, anything else is true).
type LegacyBool bool

func (b *LegacyBool) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a boolean or an integer", node.Line)
	}
	switch node.ShortTag() {
	case "!!bool":
		var v bool
		if err := node.Decode(&v); err != nil {
			return err
		}
		*b = LegacyBool(v)
	case "!!int":
		var v int
		if err := node.Decode(&v); err != nil {
			return err
		}
		*b = v != 0
	default:
		return fmt.Errorf("line %d: cannot use %q as a boolean", node.Line, node.Value)
	}
	return nil
}

func (b *LegacyBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = LegacyBool(t)
	case float64:
		*b = t != 0
	default:
		return fmt.Errorf("cannot use %s as a boolean", data)
	}
	return nil
}

// ParseLegacyBool parses "true"/"false" as well as integers.
func ParseLegacyBool(s string) (LegacyBool, error) {
	if v, err := strconv.ParseBool(s); err == nil {
		return LegacyBool(v), nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return false, fmt.Errorf("cannot use %q as a boolean", s)
	}
	return i != 0, nil
}

// IPv4 is a four octet address. It is written as "a.b.c.d" and also read
// from a four element list.
type IPv4 [4]byte

func ParseIPv4(s string) (IPv4, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return IPv4{}, errors.Wrapf(err, "invalid address %q", s)
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return IPv4{}, fmt.Errorf("address %q is not IPv4", s)
	}
	return IPv4(addr.As4()), nil
}

func (ip IPv4) String() string {
	return netip.AddrFrom4(ip).String()
}

func (ip IPv4) IsZero() bool {
	return ip == IPv4{}
}

func (ip IPv4) MarshalText() ([]byte, error) {
	return []byte(ip.String()), nil
}

func (ip *IPv4) UnmarshalText(text []byte) error {
	parsed, err := ParseIPv4(string(text))
	if err != nil {
		return err
	}
	*ip = parsed
	return nil
}

func (ip *IPv4) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return ip.UnmarshalText([]byte(node.Value))
	case yaml.SequenceNode:
		var octets []int
		if err := node.Decode(&octets); err != nil {
			return err
		}
		if len(octets) != 4 {
			return fmt.Errorf("line %d: address needs 4 octets, got %d", node.Line, len(octets))
		}
		for i, o := range octets {
			if o < 0 || o > 255 {
				return fmt.Errorf("line %d: octet %d must be between 0 and 255, got %d", node.Line, i, o)
			}
			ip[i] = byte(o)
		}
		return nil
	}
	return fmt.Errorf("line %d: expected an address", node.Line)
}
