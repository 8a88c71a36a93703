package nav_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinkertool/tinker/internal/errs"
	"github.com/tinkertool/tinker/internal/nav"
)

func TestStateMachine_StartsIdle(t *testing.T) {
	m := nav.NewStateMachine()
	assert.Equal(t, nav.StateIdle, m.Current().Kind)
}

func TestStateMachine_LoadCycle(t *testing.T) {
	m := nav.NewStateMachine()

	require.NoError(t, m.TransitionTo(nav.Loading()))
	assert.Equal(t, nav.StateLoading, m.Current().Kind)

	require.NoError(t, m.TransitionTo(nav.Idle()))
	assert.Equal(t, nav.StateIdle, m.Current().Kind)
}

func TestStateMachine_ErrorFromAnywhere(t *testing.T) {
	m := nav.NewStateMachine()
	require.NoError(t, m.TransitionTo(nav.ErrorState("dns failure")))

	cur := m.Current()
	assert.Equal(t, nav.StateError, cur.Kind)
	assert.Equal(t, "dns failure", cur.Message)

	// A new navigation clears the error.
	require.NoError(t, m.TransitionTo(nav.Loading()))
	assert.Equal(t, nav.StateLoading, m.Current().Kind)
}

func TestStateMachine_IllegalTransitions(t *testing.T) {
	cases := []struct {
		name string
		via  []nav.State
		next nav.State
	}{
		{"idle to idle", nil, nav.Idle()},
		{"loading to loading", []nav.State{nav.Loading()}, nav.Loading()},
		{"error to idle", []nav.State{nav.ErrorState("x")}, nav.Idle()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := nav.NewStateMachine()
			for _, s := range tc.via {
				require.NoError(t, m.TransitionTo(s))
			}
			before := m.Current()

			err := m.TransitionTo(tc.next)
			var invalid *errs.InvalidTransitionError
			require.ErrorAs(t, err, &invalid)

			// A rejected transition leaves the state untouched.
			assert.Equal(t, before, m.Current())
		})
	}
}
