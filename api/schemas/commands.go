package schemas

import "fmt"

// CommandType discriminates the command variants accepted over HTTP and the
// WebSocket channel. Using a closed set of constants means unknown tags are
// rejected at the boundary instead of silently succeeding.
type CommandType string

const (
	CmdNavigate               CommandType = "navigate"
	CmdCreateTab              CommandType = "create_tab"
	CmdCloseTab               CommandType = "close_tab"
	CmdSwitchTab              CommandType = "switch_tab"
	CmdTakeScreenshot         CommandType = "take_screenshot"
	CmdCreateBaseline         CommandType = "create_baseline"
	CmdRunVisualTest          CommandType = "run_visual_test"
	CmdFindElement            CommandType = "find_element"
	CmdInteractElement        CommandType = "interact_element"
	CmdHighlightElement       CommandType = "highlight_element"
	CmdWaitForCondition       CommandType = "wait_for_condition"
	CmdGetPageInfo            CommandType = "get_page_info"
	CmdExecuteJavaScript      CommandType = "execute_javascript"
	CmdStartNetworkMonitoring CommandType = "start_network_monitoring"
	CmdStopNetworkMonitoring  CommandType = "stop_network_monitoring"
	CmdGetNetworkStats        CommandType = "get_network_stats"
	CmdExportNetworkHAR       CommandType = "export_network_har"
	CmdAddNetworkFilter       CommandType = "add_network_filter"
	CmdClearNetworkFilters    CommandType = "clear_network_filters"
)

// Command is the tagged union carried on the bus from remote clients to the
// dispatcher. The Type field selects which payload fields are meaningful.
type Command struct {
	Type CommandType `json:"type"`

	URL         string             `json:"url,omitempty"`
	TabID       uint64             `json:"id,omitempty"`
	TestName    string             `json:"test_name,omitempty"`
	Tolerance   float64            `json:"tolerance,omitempty"`
	Options     *ScreenshotOptions `json:"options,omitempty"`
	Selector    *ElementSelector   `json:"selector,omitempty"`
	Interaction *Interaction       `json:"interaction,omitempty"`
	Color       string             `json:"color,omitempty"`
	Condition   *WaitCondition     `json:"condition,omitempty"`
	Script      string             `json:"script,omitempty"`
	Filter      *NetworkFilter     `json:"filter,omitempty"`
}

// Validate checks the command tag and the presence of its required payload.
func (c Command) Validate() error {
	switch c.Type {
	case CmdNavigate, CmdCreateTab:
		if c.URL == "" {
			return fmt.Errorf("command %q requires a url", c.Type)
		}
	case CmdCloseTab, CmdSwitchTab:
		if c.TabID == 0 {
			return fmt.Errorf("command %q requires a tab id", c.Type)
		}
	case CmdTakeScreenshot:
	case CmdCreateBaseline, CmdRunVisualTest:
		if c.TestName == "" {
			return fmt.Errorf("command %q requires a test_name", c.Type)
		}
	case CmdFindElement, CmdHighlightElement:
		if c.Selector == nil {
			return fmt.Errorf("command %q requires a selector", c.Type)
		}
		return c.Selector.Validate()
	case CmdInteractElement:
		if c.Selector == nil || c.Interaction == nil {
			return fmt.Errorf("command %q requires selector and interaction", c.Type)
		}
		if err := c.Selector.Validate(); err != nil {
			return err
		}
		return c.Interaction.Validate()
	case CmdWaitForCondition:
		if c.Condition == nil {
			return fmt.Errorf("command %q requires a condition", c.Type)
		}
		return c.Condition.Validate()
	case CmdExecuteJavaScript:
		if c.Script == "" {
			return fmt.Errorf("command %q requires a script", c.Type)
		}
	case CmdAddNetworkFilter:
		if c.Filter == nil {
			return fmt.Errorf("command %q requires a filter", c.Type)
		}
	case CmdGetPageInfo, CmdStartNetworkMonitoring, CmdStopNetworkMonitoring,
		CmdGetNetworkStats, CmdExportNetworkHAR, CmdClearNetworkFilters:
	default:
		return fmt.Errorf("unknown command type %q", c.Type)
	}
	return nil
}
