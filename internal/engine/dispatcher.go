// File: internal/engine/dispatcher.go

// Package engine hosts the command dispatcher: the single goroutine that
// owns tabs, navigation, the network monitor and the visual tester, and
// drives the WebView host on behalf of remote clients.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tinkertool/tinker/api/schemas"
	"github.com/tinkertool/tinker/internal/bus"
	"github.com/tinkertool/tinker/internal/dom"
	"github.com/tinkertool/tinker/internal/errs"
	"github.com/tinkertool/tinker/internal/nav"
	"github.com/tinkertool/tinker/internal/netmon"
	"github.com/tinkertool/tinker/internal/tabs"
	"github.com/tinkertool/tinker/internal/visual"
	"github.com/tinkertool/tinker/internal/webview"
	"go.uber.org/zap"
)

const (
	defaultWaitTimeout  = 5 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

// EventSink receives the events the dispatcher publishes, in addition to the
// in-process event bus. The MQTT publisher satisfies this.
type EventSink interface {
	Publish(schemas.Event) error
}

// Deps wires the dispatcher to the subsystems it owns. Sink may be nil.
type Deps struct {
	Commands *bus.Bus[schemas.Command]
	Events   *bus.Bus[schemas.Event]
	Tabs     *tabs.Registry
	URLs     *nav.URLManager
	Network  *netmon.Monitor
	Visual   *visual.Tester
	Host     webview.Host
	Sink     EventSink
	Recorder *Recorder
}

// Dispatcher consumes the command stream and executes each command against
// the state it owns, publishing observable changes as events. All failures
// are surfaced as Error events; commands never reply directly.
type Dispatcher struct {
	logger    *zap.Logger
	inspector *dom.Inspector
	d         Deps
}

// NewDispatcher builds a dispatcher around its dependencies.
func NewDispatcher(logger *zap.Logger, deps Deps) *Dispatcher {
	return &Dispatcher{
		logger:    logger.Named("dispatcher"),
		inspector: dom.NewInspector(),
		d:         deps,
	}
}

// Run consumes commands until the context ends or the command bus closes.
// It is the only writer of the owned state; callers run it in a dedicated
// goroutine.
func (dp *Dispatcher) Run(ctx context.Context) error {
	sub := dp.d.Commands.Subscribe()
	defer sub.Close()

	dp.logger.Info("Dispatcher running")
	for {
		cmd, err := sub.Recv(ctx)
		if err != nil {
			var lagged *bus.LaggedError
			switch {
			case errors.As(err, &lagged):
				dp.logger.Warn("Dispatcher lagged behind command stream",
					zap.Uint64("skipped", lagged.Skipped))
				continue
			case errors.Is(err, bus.ErrClosed):
				dp.logger.Info("Command bus closed; dispatcher stopping")
				return nil
			default:
				return err
			}
		}
		dp.Execute(ctx, cmd)
	}
}

// Execute runs one command. Errors are logged and published as Error
// events rather than returned; the facade has already acknowledged the
// command.
func (dp *Dispatcher) Execute(ctx context.Context, cmd schemas.Command) {
	if err := cmd.Validate(); err != nil {
		dp.fail(fmt.Errorf("invalid command: %w", err))
		return
	}

	dp.logger.Debug("Executing command", zap.String("type", string(cmd.Type)))

	var err error
	switch cmd.Type {
	case schemas.CmdNavigate:
		err = dp.navigate(ctx, cmd.URL)
	case schemas.CmdCreateTab:
		err = dp.createTab(cmd.URL)
	case schemas.CmdCloseTab:
		err = dp.closeTab(cmd.TabID)
	case schemas.CmdSwitchTab:
		dp.d.Tabs.SwitchTo(cmd.TabID)
	case schemas.CmdTakeScreenshot:
		err = dp.takeScreenshot(ctx, cmd.Options)
	case schemas.CmdCreateBaseline:
		err = dp.createBaseline(ctx, cmd.TestName, cmd.Options)
	case schemas.CmdRunVisualTest:
		err = dp.runVisualTest(ctx, cmd.TestName, cmd.Tolerance, cmd.Options)
	case schemas.CmdFindElement:
		err = dp.evalCompiled(ctx, func() (string, error) {
			return dp.inspector.FindElement(*cmd.Selector)
		})
	case schemas.CmdInteractElement:
		err = dp.evalCompiled(ctx, func() (string, error) {
			return dp.inspector.Interact(*cmd.Selector, *cmd.Interaction)
		})
	case schemas.CmdHighlightElement:
		err = dp.evalCompiled(ctx, func() (string, error) {
			return dp.inspector.Highlight(*cmd.Selector, cmd.Color)
		})
	case schemas.CmdWaitForCondition:
		err = dp.waitForCondition(ctx, *cmd.Condition)
	case schemas.CmdGetPageInfo:
		err = dp.evalCompiled(ctx, func() (string, error) {
			return dp.inspector.PageInfo(), nil
		})
	case schemas.CmdExecuteJavaScript:
		err = dp.evalCompiled(ctx, func() (string, error) {
			return cmd.Script, nil
		})
	case schemas.CmdStartNetworkMonitoring:
		dp.d.Network.Start()
		err = dp.evalCompiled(ctx, func() (string, error) {
			return dp.d.Network.MonitoringScript(), nil
		})
	case schemas.CmdStopNetworkMonitoring:
		dp.d.Network.Stop()
	case schemas.CmdAddNetworkFilter:
		dp.d.Network.AddFilter(*cmd.Filter)
	case schemas.CmdClearNetworkFilters:
		dp.d.Network.ClearFilters()
	case schemas.CmdGetNetworkStats, schemas.CmdExportNetworkHAR:
		// Served directly by the facade's read path; nothing to do here.
	}

	if err != nil {
		dp.fail(err)
	}
}

// navigate drives the full navigation cycle for the active tab: Loading,
// parse, host load, history push, URL mutation, Idle, Navigation event. A
// failure leaves the tab in the Error state.
func (dp *Dispatcher) navigate(ctx context.Context, input string) error {
	tab, ok := dp.d.Tabs.Active()
	if !ok {
		return errs.ErrNotInitialized
	}

	if err := tab.State.TransitionTo(nav.Loading()); err != nil {
		return err
	}

	parsed, err := dp.d.URLs.Parse(input)
	if err != nil {
		return dp.navFailed(tab, err)
	}

	target := parsed.URL.String()
	if err := dp.d.Host.Navigate(ctx, target); err != nil {
		return dp.navFailed(tab, &errs.NavigationFailedError{URL: target, Err: err})
	}

	tab.History.Push(nav.HistoryEntry{URL: target})
	if err := dp.d.Tabs.UpdateURL(tab.ID, target); err != nil {
		return dp.navFailed(tab, err)
	}
	if err := tab.State.TransitionTo(nav.Idle()); err != nil {
		return err
	}

	dp.publish(schemas.Navigation(target))
	dp.publish(schemas.TabURLChanged(tab.ID, target))
	return nil
}

// navFailed parks the tab in the Error state and reports the cause.
func (dp *Dispatcher) navFailed(tab *tabs.Tab, cause error) error {
	if terr := tab.State.TransitionTo(nav.ErrorState(cause.Error())); terr != nil {
		dp.logger.Error("Failed to enter error state", zap.Error(terr))
	}
	return cause
}

func (dp *Dispatcher) createTab(url string) error {
	tab := dp.d.Tabs.Create(url)
	dp.publish(schemas.TabCreated(tab.ID, url))
	return nil
}

func (dp *Dispatcher) closeTab(id uint64) error {
	return dp.d.Tabs.Close(id)
}

// Back moves the active tab one history entry back and re-syncs its URL.
func (dp *Dispatcher) Back(ctx context.Context) error {
	return dp.moveHistory(ctx, func(t *tabs.Tab) (nav.HistoryEntry, bool) {
		return t.History.Back()
	})
}

// Forward is the counterpart of Back.
func (dp *Dispatcher) Forward(ctx context.Context) error {
	return dp.moveHistory(ctx, func(t *tabs.Tab) (nav.HistoryEntry, bool) {
		return t.History.Forward()
	})
}

func (dp *Dispatcher) moveHistory(ctx context.Context, move func(*tabs.Tab) (nav.HistoryEntry, bool)) error {
	tab, ok := dp.d.Tabs.Active()
	if !ok {
		return errs.ErrNotInitialized
	}
	if err := tab.State.TransitionTo(nav.Loading()); err != nil {
		return err
	}

	entry, moved := move(tab)
	if moved {
		if err := dp.d.Host.Navigate(ctx, entry.URL); err != nil {
			return dp.navFailed(tab, &errs.NavigationFailedError{URL: entry.URL, Err: err})
		}
		if err := dp.d.Tabs.UpdateURL(tab.ID, entry.URL); err != nil {
			return dp.navFailed(tab, err)
		}
	}
	if err := tab.State.TransitionTo(nav.Idle()); err != nil {
		return err
	}
	if moved {
		dp.publish(schemas.TabURLChanged(tab.ID, entry.URL))
	}
	return nil
}

// Reload re-navigates the active tab to its current URL without touching
// history.
func (dp *Dispatcher) Reload(ctx context.Context) error {
	tab, ok := dp.d.Tabs.Active()
	if !ok {
		return errs.ErrNotInitialized
	}
	url := tab.URL()
	if url == "" {
		return nil
	}
	if err := tab.State.TransitionTo(nav.Loading()); err != nil {
		return err
	}
	if err := dp.d.Host.Navigate(ctx, url); err != nil {
		return dp.navFailed(tab, &errs.NavigationFailedError{URL: url, Err: err})
	}
	return tab.State.TransitionTo(nav.Idle())
}

// StopLoading flips a Loading tab back to Idle; any other state is left
// untouched.
func (dp *Dispatcher) StopLoading() error {
	tab, ok := dp.d.Tabs.Active()
	if !ok {
		return errs.ErrNotInitialized
	}
	if tab.State.Current().Kind != nav.StateLoading {
		return nil
	}
	return tab.State.TransitionTo(nav.Idle())
}

func (dp *Dispatcher) captureFrame(ctx context.Context, opts *schemas.ScreenshotOptions) (*schemas.Screenshot, error) {
	pix, w, h, err := dp.d.Host.CapturePixels(ctx)
	if err != nil {
		return nil, fmt.Errorf("capturing pixels: %w", err)
	}
	var o schemas.ScreenshotOptions
	if opts != nil {
		o = *opts
	}
	return dp.d.Visual.CaptureFromData(pix, w, h, o)
}

func (dp *Dispatcher) takeScreenshot(ctx context.Context, opts *schemas.ScreenshotOptions) error {
	shot, err := dp.captureFrame(ctx, opts)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("screenshot_%d", time.Now().UnixMilli())
	_, err = dp.d.Visual.SaveScreenshot(shot, name)
	return err
}

func (dp *Dispatcher) createBaseline(ctx context.Context, testName string, opts *schemas.ScreenshotOptions) error {
	shot, err := dp.captureFrame(ctx, opts)
	if err != nil {
		return err
	}
	_, err = dp.d.Visual.CreateBaseline(shot, testName)
	return err
}

func (dp *Dispatcher) runVisualTest(ctx context.Context, testName string, tolerance float64, opts *schemas.ScreenshotOptions) error {
	shot, err := dp.captureFrame(ctx, opts)
	if err != nil {
		return err
	}
	result, err := dp.d.Visual.RunTest(shot, testName, tolerance)
	if err != nil {
		return err
	}
	if !result.Passed {
		dp.publish(schemas.ErrorEvent(fmt.Sprintf(
			"visual test %q failed: %.2f%% of pixels differ",
			testName, result.Comparison.DifferencePercentage*100)))
	}
	dp.logger.Info("Visual test complete",
		zap.String("test", testName), zap.Bool("passed", result.Passed),
		zap.Float64("difference", result.Comparison.DifferencePercentage))
	return nil
}

func (dp *Dispatcher) evalCompiled(ctx context.Context, compile func() (string, error)) error {
	script, err := compile()
	if err != nil {
		return err
	}
	result, err := dp.d.Host.Eval(ctx, script)
	if err != nil {
		return &errs.ScriptError{Message: "script evaluation failed", Err: err}
	}
	dp.logger.Debug("Script evaluated", zap.Int("result_bytes", len(result)))
	return nil
}

// waitForCondition polls the compiled predicate until it reports true or
// timeout_ms elapses. Timeouts surface as a wait failure.
func (dp *Dispatcher) waitForCondition(ctx context.Context, cond schemas.WaitCondition) error {
	script, err := dp.inspector.CheckCondition(cond)
	if err != nil {
		return err
	}

	timeout := defaultWaitTimeout
	if cond.TimeoutMs > 0 {
		timeout = time.Duration(cond.TimeoutMs) * time.Millisecond
	}
	interval := defaultPollInterval
	if cond.PollIntervalMs > 0 {
		interval = time.Duration(cond.PollIntervalMs) * time.Millisecond
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := dp.d.Host.Eval(ctx, script)
		if err != nil {
			return &errs.ScriptError{Message: "wait condition check failed", Err: err}
		}
		var satisfied bool
		if jsonErr := json.Unmarshal([]byte(result), &satisfied); jsonErr == nil && satisfied {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("wait condition %q timed out after %s: %w",
				cond.ConditionType, timeout, errs.ErrScriptTimeout)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// publish fans an event out to the in-process bus, the recorder and the
// external sink.
func (dp *Dispatcher) publish(ev schemas.Event) {
	dp.d.Events.Publish(ev)
	if dp.d.Recorder != nil {
		dp.d.Recorder.Record(ev)
	}
	if dp.d.Sink != nil {
		if err := dp.d.Sink.Publish(ev); err != nil {
			dp.logger.Warn("External event publish failed", zap.Error(err))
		}
	}
}

// fail logs an error and announces it on the event stream.
func (dp *Dispatcher) fail(err error) {
	dp.logger.Error("Command failed", zap.Error(err))
	dp.publish(schemas.ErrorEvent(err.Error()))
}
