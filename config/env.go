package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const EnvPrefix = "LUMOS"

// envBinding maps one field of the record to a LUMOS_* variable.
type envBinding struct {
	key    string
	v2only bool
	get    func(c *Config) string
	set    func(c *Config, s string) error
}

func intBinding(key string, v2only bool, field func(c *Config) *int) envBinding {
	return envBinding{
		key:    key,
		v2only: v2only,
		get:    func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, s string) error {
			v, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("%q is not an integer", s)
			}
			*field(c) = v
			return nil
		},
	}
}

func boolBinding(key string, v2only bool, field func(c *Config) *bool) envBinding {
	return envBinding{
		key:    key,
		v2only: v2only,
		get:    func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, s string) error {
			v, err := strconv.ParseBool(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("%q is not a boolean", s)
			}
			*field(c) = v
			return nil
		},
	}
}

func stringBinding(key string, field func(c *Config) *string) envBinding {
	return envBinding{
		key: key,
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, s string) error {
			*field(c) = s
			return nil
		},
	}
}

// envBindings is ordered, Environ emits the variables in this order. The
// names follow the identifiers of the node firmware.
var envBindings = []envBinding{
	stringBinding("node_name", func(c *Config) *string { return &c.Node.Name }),
	stringBinding("hw_version", func(c *Config) *string { return &c.Node.HwVersion }),
	stringBinding("sw_version", func(c *Config) *string { return &c.Node.SwVersion }),
	intBinding("pin_r", false, func(c *Config) *int { return &c.Pins.Red }),
	intBinding("pin_g", false, func(c *Config) *int { return &c.Pins.Green }),
	intBinding("pin_b", false, func(c *Config) *int { return &c.Pins.Blue }),
	intBinding("onboard_neopixel_pin", false, func(c *Config) *int { return &c.Pins.OnboardNeopixel }),
	intBinding("btn_pin", false, func(c *Config) *int { return &c.Pins.Button }),
	intBinding("strip_pin", false, func(c *Config) *int { return &c.Pins.Strip }),
	intBinding("min_led_voltage", false, func(c *Config) *int { return &c.Power.MinLEDVoltage }),
	intBinding("min_self_voltage", false, func(c *Config) *int { return &c.Power.MinSelfVoltage }),
	intBinding("max_voltage", true, func(c *Config) *int { return &c.Power.MaxVoltage }),
	stringBinding("www_username", func(c *Config) *string { return &c.Web.Username }),
	stringBinding("www_password", func(c *Config) *string { return &c.Web.Password }),
	stringBinding("www_password_ref", func(c *Config) *string { return &c.Web.PasswordRef }),
	boolBinding("led_output_mode", false, func(c *Config) *bool { return &c.LED.FixtureOutput }),
	intBinding("strip_length", false, func(c *Config) *int { return &c.LED.StripLength }),
	{
		key: "led_channel_mode",
		get: func(c *Config) string { return strconv.Itoa(int(c.LED.ChannelMode)) },
		set: func(c *Config, s string) error {
			v, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("%q is not an integer", s)
			}
			c.LED.ChannelMode = ChannelMode(v)
			return nil
		},
	},
	{
		key: "server_ip",
		get: func(c *Config) string { return c.Server.IP.String() },
		set: func(c *Config, s string) error {
			ip, err := ParseIPv4(strings.TrimSpace(s))
			if err != nil {
				return err
			}
			c.Server.IP = ip
			return nil
		},
	},
	stringBinding("server_name", func(c *Config) *string { return &c.Server.Name }),
	{
		key: "try_server_dns",
		get: func(c *Config) string { return strconv.FormatBool(bool(c.Server.TryDNS)) },
		set: func(c *Config, s string) error {
			v, err := ParseLegacyBool(strings.TrimSpace(s))
			if err != nil {
				return err
			}
			c.Server.TryDNS = v
			return nil
		},
	},
	intBinding("first_channel", true, func(c *Config) *int { return &c.DMX.FirstChannel }),
	intBinding("universe", true, func(c *Config) *int { return &c.DMX.Universe }),
	boolBinding("allow_broadcast_dmx", true, func(c *Config) *bool { return &c.DMX.AllowBroadcast }),
	stringBinding("log_level", func(c *Config) *string { return &c.Logging.Level }),
	stringBinding("log_format", func(c *Config) *string { return &c.Logging.Format }),
	stringBinding("log_file", func(c *Config) *string { return &c.Logging.File }),
	stringBinding("api_listen", func(c *Config) *string { return &c.API.Listen }),
	boolBinding("announce_enabled", false, func(c *Config) *bool { return &c.Announce.Enabled }),
	stringBinding("announce_broker", func(c *Config) *string { return &c.Announce.Broker }),
	stringBinding("announce_topic_prefix", func(c *Config) *string { return &c.Announce.TopicPrefix }),
	stringBinding("announce_client_id", func(c *Config) *string { return &c.Announce.ClientID }),
}

// EnvName returns the environment variable of a binding key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

func newEnvViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AllowEmptyEnv(true)
	for _, b := range envBindings {
		if err := v.BindEnv(b.key); err != nil {
			return nil, errors.Wrapf(err, "can't bind %s", EnvName(b.key))
		}
	}
	if err := v.BindEnv("schema_version"); err != nil {
		return nil, errors.Wrap(err, "can't bind schema version")
	}
	return v, nil
}

// applyEnv overrides fields of c with the LUMOS_* variables that are set.
func applyEnv(c *Config) error {
	v, err := newEnvViper()
	if err != nil {
		return err
	}
	verr := &ValidationError{}
	for _, b := range envBindings {
		if !v.IsSet(b.key) {
			continue
		}
		if b.v2only && c.SchemaVersion < SchemaV2 {
			verr.add("%s requires schema version 2", EnvName(b.key))
			continue
		}
		if err := b.set(c, v.GetString(b.key)); err != nil {
			verr.add("%s: %v", EnvName(b.key), err)
		}
	}
	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

// LoadEnv builds a record from the defaults of LUMOS_SCHEMA_VERSION (the
// current version if unset) and the LUMOS_* variables, for ports without a
// config file.
func LoadEnv() (*Config, error) {
	v, err := newEnvViper()
	if err != nil {
		return nil, err
	}
	version := SchemaCurrent
	if v.IsSet("schema_version") {
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString("schema_version")))
		if err != nil || !SchemaVersion(n).Valid() {
			return nil, fmt.Errorf("unsupported %s %q", EnvName("schema_version"), v.GetString("schema_version"))
		}
		version = SchemaVersion(n)
	}
	conf := Defaults(version)
	if err := applyEnv(&conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Environ returns the record as KEY=value pairs which LoadEnv turns back
// into an identical record.
func (c *Config) Environ() []string {
	ret := []string{EnvName("schema_version") + "=" + strconv.Itoa(int(c.SchemaVersion))}
	for _, b := range envBindings {
		if b.v2only && c.SchemaVersion < SchemaV2 {
			continue
		}
		ret = append(ret, EnvName(b.key)+"="+b.get(c))
	}
	return ret
}
