package schemas

import "fmt"

// ElementSelector locates an element in the page. At least one of CSS, XPath,
// or Text must be set; Attributes refine a prior CSS/XPath result; Index picks
// the nth match (default 0).
type ElementSelector struct {
	CSS        string            `json:"css,omitempty"`
	XPath      string            `json:"xpath,omitempty"`
	Text       string            `json:"text,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Index      *int              `json:"index,omitempty"`
}

// Validate rejects selectors with no usable locating strategy.
func (s ElementSelector) Validate() error {
	if s.CSS == "" && s.XPath == "" && s.Text == "" {
		return fmt.Errorf("selector requires at least one of css, xpath, or text")
	}
	if s.Index != nil && *s.Index < 0 {
		return fmt.Errorf("selector index must not be negative")
	}
	return nil
}

// ElementBounds holds page and viewport coordinates of an element box.
type ElementBounds struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	ViewportX float64 `json:"viewport_x"`
	ViewportY float64 `json:"viewport_y"`
}

// ElementInfo is the full description of a DOM element as produced by the
// injected instrumentation script. JSON tags match the script output verbatim.
type ElementInfo struct {
	TagName        string            `json:"tagName"`
	Attributes     map[string]string `json:"attributes"`
	TextContent    string            `json:"textContent"`
	InnerHTML      string            `json:"innerHTML"`
	OuterHTML      string            `json:"outerHTML"`
	ComputedStyles map[string]string `json:"computedStyles"`
	Bounds         ElementBounds     `json:"bounds"`
	IsVisible      bool              `json:"isVisible"`
	IsEnabled      bool              `json:"isEnabled"`
	CSSPath        string            `json:"cssPath"`
	XPath          string            `json:"xpath"`
}

// InteractionType discriminates the element interaction variants.
type InteractionType string

const (
	InteractClick       InteractionType = "click"
	InteractDoubleClick InteractionType = "double_click"
	InteractRightClick  InteractionType = "right_click"
	InteractHover       InteractionType = "hover"
	InteractFocus       InteractionType = "focus"
	InteractBlur        InteractionType = "blur"
	InteractType        InteractionType = "type"
	InteractClear       InteractionType = "clear"
	InteractSelect      InteractionType = "select"
	InteractCheck       InteractionType = "check"
	InteractUncheck     InteractionType = "uncheck"
	InteractScroll      InteractionType = "scroll"
	InteractDrag        InteractionType = "drag"
	InteractUpload      InteractionType = "upload"
)

// Interaction describes an action to dispatch on a located element.
type Interaction struct {
	Type     InteractionType `json:"type"`
	Text     string          `json:"text,omitempty"`
	Value    string          `json:"value,omitempty"`
	X        int             `json:"x,omitempty"`
	Y        int             `json:"y,omitempty"`
	ToX      float64         `json:"to_x,omitempty"`
	ToY      float64         `json:"to_y,omitempty"`
	FilePath string          `json:"file_path,omitempty"`
}

// Validate checks the interaction tag and its variant payload.
func (i Interaction) Validate() error {
	switch i.Type {
	case InteractClick, InteractDoubleClick, InteractRightClick, InteractHover,
		InteractFocus, InteractBlur, InteractClear, InteractCheck,
		InteractUncheck, InteractScroll, InteractDrag:
	case InteractType:
		if i.Text == "" {
			return fmt.Errorf("type interaction requires text")
		}
	case InteractSelect:
		if i.Value == "" {
			return fmt.Errorf("select interaction requires a value")
		}
	case InteractUpload:
		if i.FilePath == "" {
			return fmt.Errorf("upload interaction requires a file_path")
		}
	default:
		return fmt.Errorf("unknown interaction type %q", i.Type)
	}
	return nil
}

// InteractionResult is the outcome returned by the instrumentation script.
type InteractionResult struct {
	Success     bool         `json:"success"`
	Error       string       `json:"error,omitempty"`
	ElementInfo *ElementInfo `json:"elementInfo,omitempty"`
}

// WaitConditionType discriminates the predicates a WaitForCondition command
// can poll for.
type WaitConditionType string

const (
	WaitElementVisible         WaitConditionType = "element_visible"
	WaitElementHidden          WaitConditionType = "element_hidden"
	WaitElementEnabled         WaitConditionType = "element_enabled"
	WaitElementDisabled        WaitConditionType = "element_disabled"
	WaitElementTextContains    WaitConditionType = "element_text_contains"
	WaitElementAttributeEquals WaitConditionType = "element_attribute_equals"
	WaitElementCount           WaitConditionType = "element_count"
	WaitPageTitleContains      WaitConditionType = "page_title_contains"
	WaitURLContains            WaitConditionType = "url_contains"
)

// WaitCondition is a predicate plus polling parameters. The injected script is
// a pure predicate; the dispatcher owns the polling loop.
type WaitCondition struct {
	ConditionType  WaitConditionType `json:"condition_type"`
	Selector       ElementSelector   `json:"selector"`
	Text           string            `json:"text,omitempty"`
	Attribute      string            `json:"attribute,omitempty"`
	Value          string            `json:"value,omitempty"`
	Count          int               `json:"count,omitempty"`
	TimeoutMs      int               `json:"timeout_ms"`
	PollIntervalMs int               `json:"poll_interval_ms"`
}

// Validate checks the condition tag and its variant payload. Page-level
// predicates do not need a selector; element predicates do.
func (c WaitCondition) Validate() error {
	switch c.ConditionType {
	case WaitElementVisible, WaitElementHidden, WaitElementEnabled, WaitElementDisabled:
		return c.Selector.Validate()
	case WaitElementTextContains:
		if c.Text == "" {
			return fmt.Errorf("element_text_contains requires text")
		}
		return c.Selector.Validate()
	case WaitElementAttributeEquals:
		if c.Attribute == "" {
			return fmt.Errorf("element_attribute_equals requires an attribute")
		}
		return c.Selector.Validate()
	case WaitElementCount:
		if c.Count < 0 {
			return fmt.Errorf("element_count requires a non-negative count")
		}
		return c.Selector.Validate()
	case WaitPageTitleContains, WaitURLContains:
		if c.Text == "" {
			return fmt.Errorf("%s requires text", c.ConditionType)
		}
	default:
		return fmt.Errorf("unknown wait condition type %q", c.ConditionType)
	}
	return nil
}

// PageInfo summarizes the active document as reported by the page itself.
type PageInfo struct {
	Title        string       `json:"title"`
	URL          string       `json:"url"`
	ReadyState   string       `json:"readyState"`
	ElementCount int          `json:"elementCount"`
	Viewport     PageViewport `json:"viewport"`
}

// PageViewport holds the window geometry and scroll offsets.
type PageViewport struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	ScrollX int `json:"scrollX"`
	ScrollY int `json:"scrollY"`
}
