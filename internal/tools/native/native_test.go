package native

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

func TestNewDNSTool_Resolvers(t *testing.T) {
	d := NewDNSTool("", testLogger(t))
	assert.Equal(t, defaultResolvers, d.resolvers)

	// A configured server is queried first and gets the default port.
	d = NewDNSTool("10.0.0.53", testLogger(t))
	require.NotEmpty(t, d.resolvers)
	assert.Equal(t, "10.0.0.53:53", d.resolvers[0])
	assert.Len(t, d.resolvers, len(defaultResolvers)+1)

	d = NewDNSTool("10.0.0.53:5353", testLogger(t))
	assert.Equal(t, "10.0.0.53:5353", d.resolvers[0])
}

func TestDNSTool_Run_Preconditions(t *testing.T) {
	d := NewDNSTool("", testLogger(t))

	_, err := d.Run(context.Background(), "smash", "example.com", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownOperation))

	_, err = d.Run(context.Background(), "resolve", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a target")
}

func TestDNSTool_Status(t *testing.T) {
	d := NewDNSTool("", testLogger(t))

	status := d.Status()
	assert.Equal(t, "dnslookup", status.Name)
	assert.True(t, status.Available)
	assert.Equal(t, types.CategoryRecon, status.Category)
	assert.Contains(t, status.Modes, "resolve")
	assert.Contains(t, status.Modes, "wildcard")
}

func TestWhoisTool_Run_Preconditions(t *testing.T) {
	w := NewWhoisTool(testLogger(t))

	_, err := w.Run(context.Background(), "smash", "example.com", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownOperation))

	_, err = w.Run(context.Background(), "lookup", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a target")
}

func TestWhoisTool_Summarize(t *testing.T) {
	w := NewWhoisTool(testLogger(t))

	raw := `Domain Name: EXAMPLE.COM
Registrar: Example Registrar SARL
Creation Date: 2001-05-12T04:00:00Z
Name Server: NS1.EXAMPLE.NET
Some-Other-Field: noise`

	output, _ := w.summarize("example.com", raw)
	assert.Contains(t, output, "Example Registrar SARL")
}

func TestWhoisTool_Summarize_Unparseable(t *testing.T) {
	w := NewWhoisTool(testLogger(t))

	// Nothing recognizable: the raw text comes back capped.
	raw := "connection refused by registry"
	output, fields := w.summarize("example.zz", raw)
	assert.Equal(t, raw, output)
	assert.Empty(t, fields)
}

func TestLDAPTool_Run_Preconditions(t *testing.T) {
	l := NewLDAPTool(testLogger(t))

	_, err := l.Run(context.Background(), "smash", "10.0.0.1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownOperation))

	_, err = l.Run(context.Background(), "probe", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a target")
}

func TestLDAPTool_Run_ConnectFailure(t *testing.T) {
	l := NewLDAPTool(testLogger(t))

	// Nothing listens on port 1; the failure lands in the result.
	result, err := l.Run(context.Background(), "probe", "127.0.0.1", map[string]string{"ports": "1"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "connection failed")
}

func TestNativeTools_ImplementSecurityTool(t *testing.T) {
	log := testLogger(t)

	tools := []core.SecurityTool{
		NewDNSTool("", log),
		NewWhoisTool(log),
		NewLDAPTool(log),
		NewSpiderTool(5, nil, log),
	}

	seen := map[string]bool{}
	for _, tool := range tools {
		assert.NotEmpty(t, tool.Name())
		assert.False(t, seen[tool.Name()], "duplicate native tool name")
		seen[tool.Name()] = true
		assert.True(t, tool.IsAvailable())
		assert.NotNil(t, tool.Status())
	}
}
