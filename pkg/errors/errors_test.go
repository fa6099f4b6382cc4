package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesStack(t *testing.T) {
	err := New(ErrorTypeCleaning, "bad numeric column")
	assert.Equal(t, "cleaning: bad numeric column", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, ErrorTypeSink, "sink write failed").WithDetail("sink", "csv")

	assert.Equal(t, "sink: sink write failed: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "csv", err.Details["sink"])
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeSink, "ignored"))
}

func TestWrapKeepsInnerStack(t *testing.T) {
	inner := New(ErrorTypeSource, "extract failed")
	outer := Wrap(inner, ErrorTypeNoData, "no sources produced data")

	require.NotEmpty(t, outer.Stack)
	assert.Equal(t, inner.Stack[0], outer.Stack[0])
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeNoData, "all sources failed")
	wrapped := fmt.Errorf("run aborted: %w", err)

	assert.True(t, IsType(wrapped, ErrorTypeNoData))
	assert.False(t, IsType(wrapped, ErrorTypeSink))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeNoData))
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(New(ErrorTypeSource, "one source down")))
	assert.True(t, IsFatal(New(ErrorTypeCleaning, "bad column")))
	assert.True(t, IsFatal(New(ErrorTypeNoData, "nothing extracted")))
	assert.True(t, IsFatal(stderrors.New("untyped")), "untyped errors abort the run")
}
