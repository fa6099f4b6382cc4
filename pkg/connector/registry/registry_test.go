package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-etl/strata/pkg/config"
	"github.com/strata-etl/strata/pkg/connector/core"
	"github.com/strata-etl/strata/pkg/table"
)

type nopSource struct{ name string }

func (s *nopSource) Name() string                                        { return s.name }
func (s *nopSource) Extract(ctx context.Context) (*table.RecordSet, error) { return table.New(), nil }
func (s *nopSource) Close(ctx context.Context) error                     { return nil }

type nopSink struct{ name string }

func (s *nopSink) Name() string                                          { return s.name }
func (s *nopSink) Load(ctx context.Context, set *table.RecordSet) error  { return nil }
func (s *nopSink) Close(ctx context.Context) error                       { return nil }

func TestRegisterAndCreate(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.RegisterSource("stub", func(cfg config.AdapterConfig) (core.Source, error) {
		return &nopSource{name: cfg.Name}, nil
	}))
	require.NoError(t, r.RegisterSink("stub", func(cfg config.AdapterConfig) (core.Sink, error) {
		return &nopSink{name: cfg.Name}, nil
	}))

	src, err := r.CreateSource(config.AdapterConfig{Name: "a", Type: "stub"})
	require.NoError(t, err)
	assert.Equal(t, "a", src.Name())

	sink, err := r.CreateSink(config.AdapterConfig{Name: "b", Type: "stub"})
	require.NoError(t, err)
	assert.Equal(t, "b", sink.Name())
}

func TestDuplicateRegistrationFails(t *testing.T) {
	r := NewRegistry()
	factory := func(cfg config.AdapterConfig) (core.Source, error) { return &nopSource{}, nil }

	require.NoError(t, r.RegisterSource("dup", factory))
	assert.Error(t, r.RegisterSource("dup", factory))
}

func TestCreateUnknownType(t *testing.T) {
	r := NewRegistry()

	_, err := r.CreateSource(config.AdapterConfig{Type: "nope"})
	assert.Error(t, err)
	_, err = r.CreateSink(config.AdapterConfig{Type: "nope"})
	assert.Error(t, err)
}

func TestListAndClear(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSource("s1", func(cfg config.AdapterConfig) (core.Source, error) {
		return &nopSource{}, nil
	}))
	require.NoError(t, r.RegisterSink("k1", func(cfg config.AdapterConfig) (core.Sink, error) {
		return &nopSink{}, nil
	}))

	assert.Contains(t, r.ListSources(), "s1")
	assert.Contains(t, r.ListSinks(), "k1")

	r.Clear()
	assert.Empty(t, r.ListSources())
	assert.Empty(t, r.ListSinks())
}
