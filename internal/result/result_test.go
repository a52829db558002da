package result

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValueIsIdle(t *testing.T) {
	var r Result[int]
	assert.Equal(t, StateIdle, r.State())
	_, ok := r.Value()
	assert.False(t, ok)
	assert.NoError(t, r.Err())
}

func TestVariants(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		r       Result[string]
		state   State
		wantVal string
		wantErr error
	}{
		{name: "idle", r: Idle[string](), state: StateIdle},
		{name: "loading", r: Loading[string](), state: StateLoading},
		{name: "success", r: Success("ok"), state: StateSuccess, wantVal: "ok"},
		{name: "error", r: Error[string](boom), state: StateError, wantErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.state, tt.r.State())
			v, ok := tt.r.Value()
			assert.Equal(t, tt.state == StateSuccess, ok)
			assert.Equal(t, tt.wantVal, v)
			assert.ErrorIs(t, tt.r.Err(), tt.wantErr)
		})
	}
}

func TestErrorWithNilCause(t *testing.T) {
	r := Error[int](nil)
	require.True(t, r.IsError())
	require.Error(t, r.Err())
}

func TestUnwrapAndFrom(t *testing.T) {
	v, err := Success(3).Unwrap()
	require.NoError(t, err)
	require.Equal(t, 3, v)

	_, err = Loading[int]().Unwrap()
	require.Error(t, err)

	boom := errors.New("boom")
	require.ErrorIs(t, From(0, boom).Err(), boom)
	require.True(t, From(1, nil).IsSuccess())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "success", StateSuccess.String())
	assert.Equal(t, "state(42)", State(42).String())
}
