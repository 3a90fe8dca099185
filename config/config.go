package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const CONFILE = "config.yml"

// SchemaVersion identifies the layout of a configuration document.
// Version 1 is the layout of firmware 0.3, version 2 the one of firmware 0.4
// which added the DMX addressing and the voltage ceiling.
type SchemaVersion int

const (
	SchemaV1      SchemaVersion = 1
	SchemaV2      SchemaVersion = 2
	SchemaCurrent               = SchemaV2
)

func (v SchemaVersion) Valid() bool {
	return v == SchemaV1 || v == SchemaV2
}

type NodeConfig struct {
	Name      string `yaml:"Name" json:"Name"`
	HwVersion string `yaml:"HwVersion" json:"HwVersion"`
	SwVersion string `yaml:"SwVersion" json:"SwVersion"`
}

// PinsConfig holds the GPIO numbers of the node.
type PinsConfig struct {
	Red             int `yaml:"Red" json:"Red"`
	Green           int `yaml:"Green" json:"Green"`
	Blue            int `yaml:"Blue" json:"Blue"`
	OnboardNeopixel int `yaml:"OnboardNeopixel" json:"OnboardNeopixel"`
	Button          int `yaml:"Button" json:"Button"`
	Strip           int `yaml:"Strip" json:"Strip"`
}

// PowerConfig holds raw ADC thresholds. MaxVoltage exists since schema
// version 2.
type PowerConfig struct {
	MinLEDVoltage  int `yaml:"MinLEDVoltage" json:"MinLEDVoltage"`
	MinSelfVoltage int `yaml:"MinSelfVoltage" json:"MinSelfVoltage"`
	MaxVoltage     int `yaml:"MaxVoltage" json:"MaxVoltage"`
}

// LEDPowerOK reports whether an LED supply reading is high enough to drive
// the output.
func (p PowerConfig) LEDPowerOK(reading int) bool {
	return reading >= p.MinLEDVoltage
}

// SelfPowerOK reports whether the node's own supply reading is valid.
func (p PowerConfig) SelfPowerOK(reading int) bool {
	return reading >= p.MinSelfVoltage
}

func (p PowerConfig) OverVoltage(reading int) bool {
	return reading > p.MaxVoltage
}

// WebConfig holds the admin credentials of the node's web interface.
// Password is kept for compatibility with existing nodes, PasswordRef
// ("env:NAME" or "file:/path") is preferred.
type WebConfig struct {
	Username    string `yaml:"Username" json:"Username"`
	Password    string `yaml:"Password" json:"Password,omitempty"`
	PasswordRef string `yaml:"PasswordRef,omitempty" json:"PasswordRef,omitempty"`
}

// OutputDriver is the LED driver path selected by LEDConfig.FixtureOutput.
type OutputDriver int

const (
	DriverFixture OutputDriver = iota
	DriverPixelStrip
)

func (d OutputDriver) String() string {
	if d == DriverFixture {
		return "fixture-12w"
	}
	return "pixel-strip"
}

type LEDConfig struct {
	// true drives a single 12W fixture, false an addressable pixel strip
	FixtureOutput bool        `yaml:"FixtureOutput" json:"FixtureOutput"`
	StripLength   int         `yaml:"StripLength" json:"StripLength"`
	ChannelMode   ChannelMode `yaml:"ChannelMode" json:"ChannelMode"`
}

func (l LEDConfig) Driver() OutputDriver {
	if l.FixtureOutput {
		return DriverFixture
	}
	return DriverPixelStrip
}

// ServerConfig locates the Lumos command server. When TryDNS is set, Name is
// resolved first and IP is only the fallback.
type ServerConfig struct {
	IP     IPv4       `yaml:"IP" json:"IP"`
	Name   string     `yaml:"Name" json:"Name"`
	TryDNS LegacyBool `yaml:"TryDNS" json:"TryDNS"`
}

// DMXConfig holds the DMX/Art-Net addressing, schema version 2 only.
type DMXConfig struct {
	FirstChannel   int  `yaml:"FirstChannel" json:"FirstChannel"`
	Universe       int  `yaml:"Universe" json:"Universe"`
	AllowBroadcast bool `yaml:"AllowBroadcast" json:"AllowBroadcast"`
}

// LastChannel returns the last slot used by the given channel layout.
func (d DMXConfig) LastChannel(mode ChannelMode) int {
	return d.FirstChannel + mode.Channels() - 1
}

// Accepts reports whether a packet for universe, possibly sent as broadcast,
// is addressed to this node.
func (d DMXConfig) Accepts(universe int, broadcast bool) bool {
	if broadcast && !d.AllowBroadcast {
		return false
	}
	return universe == d.Universe
}

type LoggingConfig struct {
	Level  string `yaml:"Level" json:"Level"`
	Format string `yaml:"Format" json:"Format"`
	File   string `yaml:"File" json:"File"`
}

type APIConfig struct {
	Listen string `yaml:"Listen" json:"Listen"`
}

type AnnounceConfig struct {
	Enabled     bool   `yaml:"Enabled" json:"Enabled"`
	Broker      string `yaml:"Broker" json:"Broker"`
	TopicPrefix string `yaml:"TopicPrefix" json:"TopicPrefix"`
	ClientID    string `yaml:"ClientID" json:"ClientID"`
}

// Config is the configuration record of one node. It only holds values, so a
// plain copy is a deep copy. Loaded records are never modified; a reload
// produces a new record.
type Config struct {
	SchemaVersion SchemaVersion  `yaml:"SchemaVersion" json:"SchemaVersion"`
	Node          NodeConfig     `yaml:"Node" json:"Node"`
	Pins          PinsConfig     `yaml:"Pins" json:"Pins"`
	Power         PowerConfig    `yaml:"Power" json:"Power"`
	Web           WebConfig      `yaml:"Web" json:"Web"`
	LED           LEDConfig      `yaml:"LED" json:"LED"`
	Server        ServerConfig   `yaml:"Server" json:"Server"`
	DMX           DMXConfig      `yaml:"DMX" json:"DMX"`
	Logging       LoggingConfig  `yaml:"Logging" json:"Logging"`
	API           APIConfig      `yaml:"API" json:"API"`
	Announce      AnnounceConfig `yaml:"Announce" json:"Announce"`
}

// ReadConfig loads the configuration file, fills the fields missing from it
// with the defaults of its schema version, applies LUMOS_* environment
// overrides and validates the result.
func ReadConfig(cfile string) (*Config, error) {
	data, err := os.ReadFile(cfile)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read config file %s", cfile)
	}
	conf, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "can't load config file %s", cfile)
	}
	return conf, nil
}

// Parse is ReadConfig for an in-memory document.
func Parse(data []byte) (*Config, error) {
	conf, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	for _, w := range conf.Warnings() {
		slog.Warn("Questionable configuration", "node", conf.Node.Name, "warning", w)
	}
	return conf, nil
}

func decode(data []byte) (*Config, error) {
	version, err := checkDocument(data)
	if err != nil {
		return nil, err
	}
	conf := Defaults(version)
	if len(bytes.TrimSpace(data)) == 0 {
		return &conf, nil
	}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, errors.Wrap(err, "can't decode config")
	}
	conf.SchemaVersion = version
	return &conf, nil
}

// Encode writes the record as a YAML document of its schema version.
// Version 1 documents leave out the keys added by version 2.
func (c *Config) Encode(w io.Writer) error {
	var root yaml.Node
	if err := root.Encode(c); err != nil {
		return errors.Wrap(err, "can't encode config")
	}
	if c.SchemaVersion == SchemaV1 {
		removeKey(&root, "DMX")
		removeKey(mappingValue(&root, "Power"), "MaxVoltage")
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return errors.Wrap(err, "can't encode config")
	}
	return enc.Close()
}

// WriteFile saves the record to cfile.
func (c *Config) WriteFile(cfile string) error {
	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(cfile, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "can't write config file %s", cfile)
	}
	return nil
}

// Redacted returns a copy without the plaintext password, for anything that
// leaves the process.
func (c *Config) Redacted() Config {
	ret := *c
	ret.Web.Password = ""
	return ret
}

// WebPassword resolves the admin password, following PasswordRef if set.
func (c *Config) WebPassword() (string, error) {
	return c.Web.ResolvePassword()
}

func (c *Config) String() string {
	data, err := json.Marshal(c.Redacted())
	if err != nil {
		return fmt.Sprintf("Config{%s}", c.Node.Name)
	}
	return string(data)
}

// mergeRuntime replaces the runtime subset inside the YAML document data.
// Every other key keeps what the file says and keys the file leaves out stay
// out, so defaults are never written back.
func mergeRuntime(data []byte, rc RuntimeConfig, version SchemaVersion) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "can't parse config")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{newMapping()}}
	}
	root := doc.Content[0]
	if isNull(root) {
		*root = *newMapping()
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config must be a mapping, line %d", root.Line)
	}

	node, err := ensureMapping(root, "Node")
	if err != nil {
		return nil, err
	}
	if err := setValue(node, "Name", rc.NodeName); err != nil {
		return nil, err
	}
	if err := setValue(root, "LED", rc.LED); err != nil {
		return nil, err
	}
	if err := setValue(root, "Server", rc.Server); err != nil {
		return nil, err
	}
	if version >= SchemaV2 {
		if err := setValue(root, "DMX", rc.DMX); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, errors.Wrap(err, "can't encode config")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "can't encode config")
	}
	return buf.Bytes(), nil
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null"
}

// ensureMapping returns the mapping stored under key, adding an empty one
// if the key is missing or null.
func ensureMapping(mapping *yaml.Node, key string) (*yaml.Node, error) {
	v := mappingValue(mapping, key)
	if v == nil {
		v = newMapping()
		mapping.Content = append(mapping.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, v)
		return v, nil
	}
	if isNull(v) {
		*v = *newMapping()
	}
	if v.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s must be a mapping, line %d", key, v.Line)
	}
	return v, nil
}

// setValue stores value under key, replacing what was there.
func setValue(mapping *yaml.Node, key string, value any) error {
	var n yaml.Node
	if err := n.Encode(value); err != nil {
		return errors.Wrapf(err, "can't encode %s", key)
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = &n
			return nil
		}
	}
	mapping.Content = append(mapping.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, &n)
	return nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil {
		return nil
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func removeKey(node *yaml.Node, key string) {
	if node == nil {
		return
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			node.Content = append(node.Content[:i], node.Content[i+2:]...)
			return
		}
	}
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:
