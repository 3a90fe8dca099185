package announce

import (
	c "github.com/solexious/LUMOS-Code/config"
)

// Descriptor is what a node tells the outside world about itself. It never
// carries the admin password.
type Descriptor struct {
	Name          string           `json:"name"`
	HwVersion     string           `json:"hwVersion"`
	SwVersion     string           `json:"swVersion"`
	SchemaVersion int              `json:"schemaVersion"`
	Driver        string           `json:"driver"`
	StripLength   int              `json:"stripLength,omitempty"`
	ChannelMode   string           `json:"channelMode"`
	Channels      []string         `json:"channels"`
	DMX           *DMXDescriptor   `json:"dmx,omitempty"`
	Server        ServerDescriptor `json:"server"`
	WebUser       string           `json:"webUser"`
}

type DMXDescriptor struct {
	Universe       int  `json:"universe"`
	FirstChannel   int  `json:"firstChannel"`
	LastChannel    int  `json:"lastChannel"`
	AllowBroadcast bool `json:"allowBroadcast"`
}

type ServerDescriptor struct {
	Name   string `json:"name"`
	IP     string `json:"ip"`
	TryDNS bool   `json:"tryDNS"`
}

// Describe builds the descriptor of a record. Version 1 nodes have no DMX
// addressing.
func Describe(conf *c.Config) Descriptor {
	d := Descriptor{
		Name:          conf.Node.Name,
		HwVersion:     conf.Node.HwVersion,
		SwVersion:     conf.Node.SwVersion,
		SchemaVersion: int(conf.SchemaVersion),
		Driver:        conf.LED.Driver().String(),
		ChannelMode:   conf.LED.ChannelMode.String(),
		Channels:      conf.LED.ChannelMode.Layout(),
		Server: ServerDescriptor{
			Name:   conf.Server.Name,
			IP:     conf.Server.IP.String(),
			TryDNS: bool(conf.Server.TryDNS),
		},
		WebUser: conf.Web.Username,
	}
	if conf.LED.Driver() == c.DriverPixelStrip {
		d.StripLength = conf.LED.StripLength
	}
	if conf.SchemaVersion >= c.SchemaV2 {
		d.DMX = &DMXDescriptor{
			Universe:       conf.DMX.Universe,
			FirstChannel:   conf.DMX.FirstChannel,
			LastChannel:    conf.DMX.LastChannel(conf.LED.ChannelMode),
			AllowBroadcast: conf.DMX.AllowBroadcast,
		}
	}
	return d
}
