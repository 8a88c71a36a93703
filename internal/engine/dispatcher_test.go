// File: internal/engine/dispatcher_test.go

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinkertool/tinker/api/schemas"
	"github.com/tinkertool/tinker/internal/bus"
	"github.com/tinkertool/tinker/internal/nav"
	"github.com/tinkertool/tinker/internal/netmon"
	"github.com/tinkertool/tinker/internal/tabs"
	"github.com/tinkertool/tinker/internal/visual"
	"github.com/tinkertool/tinker/internal/webview"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	dp     *Dispatcher
	host   *webview.StubHost
	reg    *tabs.Registry
	cmds   *bus.Bus[schemas.Command]
	events *bus.Bus[schemas.Event]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	urls, err := nav.NewURLManager("")
	require.NoError(t, err)
	tester, err := visual.NewTester(logger, t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		host:   webview.NewStubHost(),
		reg:    tabs.NewRegistry(nav.DefaultHistoryCapacity),
		cmds:   bus.New[schemas.Command](logger, 16),
		events: bus.New[schemas.Event](logger, 16),
	}
	f.reg.Create("about:blank")

	f.dp = NewDispatcher(logger, Deps{
		Commands: f.cmds,
		Events:   f.events,
		Tabs:     f.reg,
		URLs:     urls,
		Network:  netmon.NewMonitor(logger, 100),
		Visual:   tester,
		Host:     f.host,
	})
	return f
}

// drain collects all events currently queued on a subscription.
func drain(t *testing.T, sub *bus.Subscription[schemas.Event]) []schemas.Event {
	t.Helper()
	var out []schemas.Event
	for {
		ev, ok, err := sub.TryRecv()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func TestDispatcher_NavigateHappyPath(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	sub := f.events.Subscribe()
	defer sub.Close()

	f.dp.Execute(context.Background(), schemas.Command{
		Type: schemas.CmdNavigate,
		URL:  "example.com",
	})

	assert.Equal(t, []string{"https://example.com"}, f.host.Navigations())

	tab, ok := f.reg.Active()
	require.True(t, ok)
	assert.Equal(t, "https://example.com", tab.URL())
	assert.Equal(t, nav.StateIdle, tab.State.Current().Kind)

	current, ok := tab.History.Current()
	require.True(t, ok)
	assert.Equal(t, "https://example.com", current.URL)

	events := drain(t, sub)
	require.Len(t, events, 2)
	assert.Equal(t, schemas.EventNavigation, events[0].Type)
	assert.Equal(t, "https://example.com", events[0].URL)
	assert.Equal(t, schemas.EventTabURLChanged, events[1].Type)
	assert.Equal(t, tab.ID, events[1].TabID)
}

func TestDispatcher_NavigateFailureLeavesErrorState(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	sub := f.events.Subscribe()
	defer sub.Close()

	f.host.FailNavigation(errors.New("connection refused"))
	f.dp.Execute(context.Background(), schemas.Command{
		Type: schemas.CmdNavigate,
		URL:  "https://unreachable.test",
	})

	tab, ok := f.reg.Active()
	require.True(t, ok)
	state := tab.State.Current()
	assert.Equal(t, nav.StateError, state.Kind)
	assert.Contains(t, state.Message, "connection refused")

	events := drain(t, sub)
	require.Len(t, events, 1)
	assert.Equal(t, schemas.EventError, events[0].Type)
	assert.Contains(t, events[0].Message, "unreachable.test")
}

func TestDispatcher_NavigateSearchFallback(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	f.dp.Execute(context.Background(), schemas.Command{
		Type: schemas.CmdNavigate,
		URL:  "rust programming",
	})

	navs := f.host.Navigations()
	require.Len(t, navs, 1)
	assert.Contains(t, navs[0], "google.com/search")
	assert.Contains(t, navs[0], "rust+programming")
}

func TestDispatcher_TabLifecycleEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	sub := f.events.Subscribe()
	defer sub.Close()

	f.dp.Execute(context.Background(), schemas.Command{
		Type: schemas.CmdCreateTab,
		URL:  "https://second.test",
	})

	events := drain(t, sub)
	require.Len(t, events, 1)
	assert.Equal(t, schemas.EventTabCreated, events[0].Type)
	assert.Equal(t, "https://second.test", events[0].URL)
	assert.Equal(t, 2, f.reg.Count())

	f.dp.Execute(context.Background(), schemas.Command{
		Type:  schemas.CmdCloseTab,
		TabID: events[0].TabID,
	})
	assert.Equal(t, 1, f.reg.Count())
}

func TestDispatcher_CloseLastTabIsError(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	sub := f.events.Subscribe()
	defer sub.Close()

	f.dp.Execute(context.Background(), schemas.Command{
		Type:  schemas.CmdCloseTab,
		TabID: f.reg.ActiveID(),
	})

	events := drain(t, sub)
	require.Len(t, events, 1)
	assert.Equal(t, schemas.EventError, events[0].Type)
	assert.Contains(t, events[0].Message, "last tab")
	assert.Equal(t, 1, f.reg.Count())
}

func TestDispatcher_InvalidCommandPublishesError(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	sub := f.events.Subscribe()
	defer sub.Close()

	f.dp.Execute(context.Background(), schemas.Command{Type: schemas.CmdNavigate})

	events := drain(t, sub)
	require.Len(t, events, 1)
	assert.Equal(t, schemas.EventError, events[0].Type)
	assert.Contains(t, events[0].Message, "invalid command")
	assert.Empty(t, f.host.Navigations())
}

func TestDispatcher_BackAndForward(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	ctx := context.Background()

	f.dp.Execute(ctx, schemas.Command{Type: schemas.CmdNavigate, URL: "https://a.test"})
	f.dp.Execute(ctx, schemas.Command{Type: schemas.CmdNavigate, URL: "https://b.test"})

	require.NoError(t, f.dp.Back(ctx))
	tab, _ := f.reg.Active()
	assert.Equal(t, "https://a.test", tab.URL())

	require.NoError(t, f.dp.Forward(ctx))
	assert.Equal(t, "https://b.test", tab.URL())

	navs := f.host.Navigations()
	assert.Equal(t, []string{
		"https://a.test", "https://b.test", "https://a.test", "https://b.test",
	}, navs)
}

func TestDispatcher_BackAtHistoryStartIsNoop(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	ctx := context.Background()

	f.dp.Execute(ctx, schemas.Command{Type: schemas.CmdNavigate, URL: "https://a.test"})
	require.NoError(t, f.dp.Back(ctx))
	require.NoError(t, f.dp.Back(ctx))

	tab, _ := f.reg.Active()
	assert.Equal(t, nav.StateIdle, tab.State.Current().Kind)
	assert.Len(t, f.host.Navigations(), 1)
}

func TestDispatcher_WaitForConditionSucceeds(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	sub := f.events.Subscribe()
	defer sub.Close()

	f.host.QueueEvalResult("true")
	f.dp.Execute(context.Background(), schemas.Command{
		Type: schemas.CmdWaitForCondition,
		Condition: &schemas.WaitCondition{
			ConditionType: schemas.WaitPageTitleContains,
			Text:          "Welcome",
			TimeoutMs:     200,
		},
	})

	assert.Empty(t, drain(t, sub))
	require.Len(t, f.host.EvalCalls(), 1)
}

func TestDispatcher_WaitForConditionTimesOut(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	sub := f.events.Subscribe()
	defer sub.Close()

	// Stub returns "null" for every poll, so the predicate never holds.
	f.dp.Execute(context.Background(), schemas.Command{
		Type: schemas.CmdWaitForCondition,
		Condition: &schemas.WaitCondition{
			ConditionType:  schemas.WaitURLContains,
			Text:           "checkout",
			TimeoutMs:      50,
			PollIntervalMs: 10,
		},
	})

	events := drain(t, sub)
	require.Len(t, events, 1)
	assert.Equal(t, schemas.EventError, events[0].Type)
	assert.Contains(t, events[0].Message, "timed out")
}

func TestDispatcher_ExecuteJavaScript(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	f.host.QueueEvalResult(`{"answer":42}`)
	f.dp.Execute(context.Background(), schemas.Command{
		Type:   schemas.CmdExecuteJavaScript,
		Script: "document.title",
	})

	calls := f.host.EvalCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "document.title", calls[0])
}

func TestDispatcher_NetworkMonitoringInjectsScript(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	f.dp.Execute(context.Background(), schemas.Command{Type: schemas.CmdStartNetworkMonitoring})
	assert.True(t, f.dp.d.Network.Enabled())

	calls := f.host.EvalCalls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "window.fetch")

	f.dp.Execute(context.Background(), schemas.Command{Type: schemas.CmdStopNetworkMonitoring})
	assert.False(t, f.dp.d.Network.Enabled())
}

func TestDispatcher_RunConsumesUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	sub := f.events.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.dp.Run(ctx) }()

	// Give the run loop a moment to subscribe before publishing.
	require.Eventually(t, func() bool {
		return f.cmds.SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	f.cmds.Publish(schemas.Command{Type: schemas.CmdNavigate, URL: "https://a.test"})

	recvCtx, recvCancel := context.WithTimeout(context.Background(), time.Second)
	defer recvCancel()
	ev, err := sub.Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, schemas.EventNavigation, ev.Type)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcher_RunStopsWhenCommandBusCloses(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	done := make(chan error, 1)
	go func() { done <- f.dp.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return f.cmds.SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	f.cmds.Close()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop on bus close")
	}
}

func TestDispatcher_ReloadKeepsHistory(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	ctx := context.Background()

	f.dp.Execute(ctx, schemas.Command{Type: schemas.CmdNavigate, URL: "https://a.test"})
	require.NoError(t, f.dp.Reload(ctx))

	tab, _ := f.reg.Active()
	assert.Equal(t, nav.StateIdle, tab.State.Current().Kind)
	assert.Equal(t, 1, tab.History.Len())
	assert.Equal(t, []string{"https://a.test", "https://a.test"}, f.host.Navigations())
}

func TestDispatcher_StopLoading(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	tab, _ := f.reg.Active()
	require.NoError(t, tab.State.TransitionTo(nav.Loading()))
	require.NoError(t, f.dp.StopLoading())
	assert.Equal(t, nav.StateIdle, tab.State.Current().Kind)

	// Idle tabs stay idle.
	require.NoError(t, f.dp.StopLoading())
	assert.Equal(t, nav.StateIdle, tab.State.Current().Kind)
}
