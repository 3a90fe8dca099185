package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	c "github.com/solexious/LUMOS-Code/config"
)

type fakeResolver struct {
	answers map[string][]string
	calls   []string
}

func (f *fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	f.calls = append(f.calls, host)
	if a, ok := f.answers[host]; ok {
		return a, nil
	}
	return nil, errors.New("no such host")
}

func TestResolve_DNSFirst(t *testing.T) {
	conf := c.Defaults(c.SchemaV2).Server
	r := &fakeResolver{answers: map[string][]string{
		"command.lumos-project.com": {"2001:db8::1", "10.0.0.7"},
	}}

	addr := Resolve(context.Background(), conf, r)

	assert.True(t, addr.FromDNS)
	assert.Equal(t, "10.0.0.7", addr.String())
	assert.Equal(t, []string{"command.lumos-project.com"}, r.calls)
}

func TestResolve_FallbackOnError(t *testing.T) {
	conf := c.Defaults(c.SchemaV2).Server
	r := &fakeResolver{}

	addr := Resolve(context.Background(), conf, r)

	assert.False(t, addr.FromDNS)
	assert.Equal(t, "192.168.0.100", addr.String())
	assert.Len(t, r.calls, 1, "the hostname should be tried before the fallback")
}

func TestResolve_FallbackWithoutIPv4(t *testing.T) {
	conf := c.Defaults(c.SchemaV2).Server
	r := &fakeResolver{answers: map[string][]string{
		"command.lumos-project.com": {"2001:db8::1"},
	}}

	addr := Resolve(context.Background(), conf, r)

	assert.False(t, addr.FromDNS)
	assert.Equal(t, c.IPv4{192, 168, 0, 100}, addr.IP)
}

func TestResolve_DNSDisabled(t *testing.T) {
	conf := c.Defaults(c.SchemaV2).Server
	conf.TryDNS = false
	r := &fakeResolver{answers: map[string][]string{
		"command.lumos-project.com": {"10.0.0.7"},
	}}

	addr := Resolve(context.Background(), conf, r)

	assert.False(t, addr.FromDNS)
	assert.Equal(t, "192.168.0.100", addr.String())
	assert.Empty(t, r.calls, "no lookup should happen when TryDNS is off")
}
