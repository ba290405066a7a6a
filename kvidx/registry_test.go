package kvidx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryLookupCaseInsensitive(t *testing.T) {
	name := "RegistryTest-" + t.Name()
	Register(Entry{
		Name: name,
		Open: func(path string, cfg Config) (Conn, error) { return nil, nil },
	})

	entry, ok := Lookup(name)
	require.True(t, ok)
	require.Equal(t, name, entry.Name)

	entry, ok = Lookup(strings.ToUpper(name))
	require.True(t, ok)
	require.Equal(t, name, entry.Name)

	entry, ok = Lookup(strings.ToLower(name))
	require.True(t, ok)
	require.Equal(t, name, entry.Name)
}

func TestRegistryLookupIndexMatchesBackendsOrder(t *testing.T) {
	backends := Backends()
	require.NotEmpty(t, backends)

	for i, want := range backends {
		got, ok := LookupIndex(i)
		require.True(t, ok)
		require.Equal(t, want.Name, got.Name)
	}

	_, ok := LookupIndex(-1)
	require.False(t, ok)
	_, ok = LookupIndex(len(backends))
	require.False(t, ok)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	name := "dup-" + t.Name()
	Register(Entry{Name: name, Open: func(path string, cfg Config) (Conn, error) { return nil, nil }})
	require.Panics(t, func() {
		Register(Entry{Name: name, Open: func(path string, cfg Config) (Conn, error) { return nil, nil }})
	})
}
