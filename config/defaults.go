package config

// Defaults returns the record a node of the given schema version is built
// with. Fields a version does not know carry the defaults of the current
// version, so every loaded record is complete. Unknown versions yield the
// current defaults.
func Defaults(version SchemaVersion) Config {
	conf := Config{
		SchemaVersion: SchemaV2,
		Node: NodeConfig{
			Name:      "DEFAULT",
			HwVersion: "0.2",
			SwVersion: "0.4",
		},
		Pins: PinsConfig{
			Red:             15,
			Green:           5,
			Blue:            4,
			OnboardNeopixel: 13,
			Button:          16,
			Strip:           14,
		},
		Power: PowerConfig{
			MinLEDVoltage:  775,
			MinSelfVoltage: 725,
			MaxVoltage:     AdcMax,
		},
		Web: WebConfig{
			Username: "admin",
			Password: "esp8266",
		},
		LED: LEDConfig{
			FixtureOutput: true,
			StripLength:   60,
			ChannelMode:   ChannelsRGB,
		},
		Server: ServerConfig{
			IP:     IPv4{192, 168, 0, 100},
			Name:   "command.lumos-project.com",
			TryDNS: true,
		},
		DMX: DMXConfig{
			FirstChannel:   1,
			Universe:       0,
			AllowBroadcast: false,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		API: APIConfig{
			Listen: "127.0.0.1:8080",
		},
		Announce: AnnounceConfig{
			Enabled:     false,
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "lumos",
		},
	}
	if version == SchemaV1 {
		conf.SchemaVersion = SchemaV1
		conf.Node.SwVersion = "0.3"
		conf.LED.ChannelMode = ChannelsRRGGBBDim
	}
	return conf
}
