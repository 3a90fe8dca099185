package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RuntimeConfig defines the subset of the configuration that can be
// safely modified at runtime through the web API. It excludes pins, power
// thresholds and credentials.
type RuntimeConfig struct {
	NodeName string       `json:"NodeName"`
	LED      LEDConfig    `json:"LED"`
	Server   ServerConfig `json:"Server"`
	DMX      DMXConfig    `json:"DMX"`
}

func (c Config) Runtime() RuntimeConfig {
	return RuntimeConfig{
		NodeName: c.Node.Name,
		LED:      c.LED,
		Server:   c.Server,
		DMX:      c.DMX,
	}
}

// WithRuntime returns a copy of c with the runtime subset replaced. A
// version 1 record has no DMX addressing, so changing it is refused there.
func (c *Config) WithRuntime(rc RuntimeConfig) (*Config, error) {
	if c.SchemaVersion < SchemaV2 && rc.DMX != c.DMX {
		return nil, fmt.Errorf("DMX settings require schema version 2, the node uses version %d", c.SchemaVersion)
	}
	ret := *c
	ret.Node.Name = rc.NodeName
	ret.LED = rc.LED
	ret.Server = rc.Server
	ret.DMX = rc.DMX
	return &ret, nil
}

// checkRuntimePayload checks encodings the RuntimeConfig decoder is lenient
// about. Records of schema version 2 only know a boolean Server.TryDNS.
func checkRuntimePayload(body []byte, version SchemaVersion) error {
	if version < SchemaV2 {
		return nil
	}
	var raw struct {
		Server struct {
			TryDNS json.RawMessage `json:"TryDNS"`
		} `json:"Server"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return err
	}
	v := bytes.TrimSpace(raw.Server.TryDNS)
	if len(v) == 0 {
		return nil
	}
	if string(v) != "true" && string(v) != "false" {
		return fmt.Errorf("Server.TryDNS must be a boolean for schema version %d, got %s", version, v)
	}
	return nil
}
