// File: internal/dom/inspector.go

// Package dom compiles DOM inspection and interaction requests into
// self-contained JavaScript strings for evaluation inside the page. The
// host runtime is reached only through script evaluation, so every
// operation ships its own primitive definitions plus a trailing expression
// producing the result. User-supplied values are embedded via JSON
// encoding only; nothing is interpolated raw into selector positions.
package dom

import (
	"encoding/json"
	"fmt"

	"github.com/tinkertool/tinker/api/schemas"
)

// findElementJS resolves an ElementSelector to a single element. CSS wins
// over XPath, XPath over substring text search.
const findElementJS = `
function findElement(selector) {
    let element = null;

    if (selector.css) {
        const elements = document.querySelectorAll(selector.css);
        element = selector.index !== undefined && selector.index !== null ? elements[selector.index] : elements[0];
    } else if (selector.xpath) {
        const result = document.evaluate(selector.xpath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
        element = result.singleNodeValue;
    } else if (selector.text) {
        const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT);
        let node;
        while (node = walker.nextNode()) {
            if (node.textContent.includes(selector.text)) {
                element = node.parentElement;
                break;
            }
        }
    }

    if (element && selector.attributes) {
        for (const [name, value] of Object.entries(selector.attributes)) {
            if (element.getAttribute(name) !== value) {
                return null;
            }
        }
    }

    return element;
}
`

// getElementInfoJS extracts the full ElementInfo payload for one element,
// including a stable CSS path and XPath.
const getElementInfoJS = `
function getElementInfo(element) {
    if (!element) return null;

    const rect = element.getBoundingClientRect();
    const computedStyle = window.getComputedStyle(element);
    const attributes = {};

    for (let attr of element.attributes) {
        attributes[attr.name] = attr.value;
    }

    const styles = {};
    for (let prop of ['display', 'visibility', 'opacity', 'color', 'background-color', 'font-size', 'font-family']) {
        styles[prop] = computedStyle.getPropertyValue(prop);
    }

    function getCSSPath(el) {
        if (!(el instanceof Element)) return;
        const path = [];
        while (el.nodeType === Node.ELEMENT_NODE) {
            let selector = el.nodeName.toLowerCase();
            if (el.id) {
                selector += '#' + el.id;
                path.unshift(selector);
                break;
            } else {
                let sib = el, nth = 1;
                while (sib = sib.previousElementSibling) {
                    if (sib.nodeName.toLowerCase() == selector) nth++;
                }
                if (nth != 1) selector += ":nth-of-type(" + nth + ")";
            }
            path.unshift(selector);
            el = el.parentNode;
        }
        return path.join(" > ");
    }

    function getXPath(el) {
        if (el.id !== '') return 'id("' + el.id + '")';
        if (el === document.body) return el.tagName;

        let ix = 0;
        const siblings = el.parentNode.childNodes;
        for (let i = 0; i < siblings.length; i++) {
            const sibling = siblings[i];
            if (sibling === el) return getXPath(el.parentNode) + '/' + el.tagName + '[' + (ix + 1) + ']';
            if (sibling.nodeType === 1 && sibling.tagName === el.tagName) ix++;
        }
    }

    return {
        tagName: element.tagName.toLowerCase(),
        attributes: attributes,
        textContent: element.textContent.trim(),
        innerHTML: element.innerHTML,
        outerHTML: element.outerHTML,
        computedStyles: styles,
        bounds: {
            x: rect.left + window.scrollX,
            y: rect.top + window.scrollY,
            width: rect.width,
            height: rect.height,
            viewport_x: rect.left,
            viewport_y: rect.top
        },
        isVisible: rect.width > 0 && rect.height > 0 && computedStyle.visibility !== 'hidden' && computedStyle.display !== 'none',
        isEnabled: !element.disabled,
        cssPath: getCSSPath(element),
        xpath: getXPath(element)
    };
}
`

// interactElementJS dispatches one interaction against an element and
// reports {success, error?}.
const interactElementJS = `
function interactWithElement(element, interaction) {
    if (!element) return { success: false, error: 'Element not found' };

    try {
        switch (interaction.type) {
            case 'click':
                element.click();
                break;
            case 'double_click':
                element.dispatchEvent(new MouseEvent('dblclick', { bubbles: true }));
                break;
            case 'right_click':
                element.dispatchEvent(new MouseEvent('contextmenu', { bubbles: true }));
                break;
            case 'hover':
                element.dispatchEvent(new MouseEvent('mouseover', { bubbles: true }));
                break;
            case 'focus':
                element.focus();
                break;
            case 'blur':
                element.blur();
                break;
            case 'type':
                element.focus();
                element.value = interaction.text;
                element.dispatchEvent(new Event('input', { bubbles: true }));
                element.dispatchEvent(new Event('change', { bubbles: true }));
                break;
            case 'clear':
                element.value = '';
                element.dispatchEvent(new Event('input', { bubbles: true }));
                element.dispatchEvent(new Event('change', { bubbles: true }));
                break;
            case 'select':
                if (element.tagName.toLowerCase() === 'select') {
                    element.value = interaction.value;
                    element.dispatchEvent(new Event('change', { bubbles: true }));
                }
                break;
            case 'check':
                if (element.type === 'checkbox' || element.type === 'radio') {
                    element.checked = true;
                    element.dispatchEvent(new Event('change', { bubbles: true }));
                }
                break;
            case 'uncheck':
                if (element.type === 'checkbox') {
                    element.checked = false;
                    element.dispatchEvent(new Event('change', { bubbles: true }));
                }
                break;
            case 'scroll':
                element.scrollBy(interaction.x, interaction.y);
                break;
            default:
                return { success: false, error: 'Unknown interaction type: ' + interaction.type };
        }

        return { success: true };
    } catch (error) {
        return { success: false, error: error.message };
    }
}
`

// checkWaitConditionJS is a pure predicate over one WaitCondition; the
// polling loop lives on the native side.
const checkWaitConditionJS = `
function checkWaitCondition(condition) {
    const element = findElement(condition.selector);

    switch (condition.condition_type) {
        case 'element_visible':
            return !!(element && getElementInfo(element).isVisible);
        case 'element_hidden':
            return !element || !getElementInfo(element).isVisible;
        case 'element_enabled':
            return !!(element && getElementInfo(element).isEnabled);
        case 'element_disabled':
            return !!(element && !getElementInfo(element).isEnabled);
        case 'element_text_contains':
            return !!(element && element.textContent.includes(condition.text));
        case 'element_attribute_equals':
            return !!(element && element.getAttribute(condition.attribute) === condition.value);
        case 'element_count':
            const elements = condition.selector.css ? document.querySelectorAll(condition.selector.css) : [];
            return elements.length === condition.count;
        case 'page_title_contains':
            return document.title.includes(condition.text);
        case 'url_contains':
            return window.location.href.includes(condition.text);
        default:
            return false;
    }
}
`

// highlightElementJS outlines an element for a limited duration, then
// restores the prior style.
const highlightElementJS = `
function highlightElement(element, color = '#ff0000', duration = 3000) {
    if (!element) return;

    const originalStyle = {
        outline: element.style.outline,
        outlineOffset: element.style.outlineOffset
    };

    element.style.outline = '3px solid ' + color;
    element.style.outlineOffset = '2px';

    setTimeout(() => {
        element.style.outline = originalStyle.outline;
        element.style.outlineOffset = originalStyle.outlineOffset;
    }, duration);
}
`

// pageInfoJS is a standalone expression; it needs no primitives.
const pageInfoJS = `
({
    title: document.title,
    url: window.location.href,
    readyState: document.readyState,
    elementCount: document.querySelectorAll('*').length,
    viewport: {
        width: window.innerWidth,
        height: window.innerHeight,
        scrollX: window.scrollX,
        scrollY: window.scrollY
    }
})
`

// Inspector compiles selector, interaction and wait-condition values into
// evaluable scripts.
type Inspector struct{}

// NewInspector returns a ready Inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding script argument: %w", err)
	}
	return string(data), nil
}

// FindElement compiles a script that resolves the selector and returns the
// matched element's info, or null.
func (i *Inspector) FindElement(sel schemas.ElementSelector) (string, error) {
	if err := sel.Validate(); err != nil {
		return "", err
	}
	selJSON, err := encode(sel)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
%s;
%s;
const selector = %s;
const element = findElement(selector);
element ? getElementInfo(element) : null;
`, findElementJS, getElementInfoJS, selJSON), nil
}

// GetElementInfo is an alias for FindElement kept for call-site clarity:
// both resolve a selector and return the element's info.
func (i *Inspector) GetElementInfo(sel schemas.ElementSelector) (string, error) {
	return i.FindElement(sel)
}

// Interact compiles a script that resolves the selector, performs the
// interaction and returns {success, error?, elementInfo?}.
func (i *Inspector) Interact(sel schemas.ElementSelector, interaction schemas.Interaction) (string, error) {
	if err := sel.Validate(); err != nil {
		return "", err
	}
	if err := interaction.Validate(); err != nil {
		return "", err
	}
	selJSON, err := encode(sel)
	if err != nil {
		return "", err
	}
	intJSON, err := encode(interaction)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
%s;
%s;
%s;
const selector = %s;
const interaction = %s;
const element = findElement(selector);
const result = interactWithElement(element, interaction);
if (result.success) {
    result.elementInfo = getElementInfo(element);
}
result;
`, findElementJS, getElementInfoJS, interactElementJS, selJSON, intJSON), nil
}

// Highlight compiles a script that outlines the matched element in the
// given color (default red) and returns its info.
func (i *Inspector) Highlight(sel schemas.ElementSelector, color string) (string, error) {
	if err := sel.Validate(); err != nil {
		return "", err
	}
	if color == "" {
		color = "#ff0000"
	}
	selJSON, err := encode(sel)
	if err != nil {
		return "", err
	}
	colorJSON, err := encode(color)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
%s;
%s;
%s;
const selector = %s;
const element = findElement(selector);
if (element) {
    highlightElement(element, %s);
    getElementInfo(element);
} else {
    null;
}
`, findElementJS, getElementInfoJS, highlightElementJS, selJSON, colorJSON), nil
}

// CheckCondition compiles the wait predicate for one condition. The caller
// owns the polling loop.
func (i *Inspector) CheckCondition(cond schemas.WaitCondition) (string, error) {
	if err := cond.Validate(); err != nil {
		return "", err
	}
	condJSON, err := encode(cond)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
%s;
%s;
%s;
const condition = %s;
checkWaitCondition(condition);
`, findElementJS, getElementInfoJS, checkWaitConditionJS, condJSON), nil
}

// FindAll compiles a script returning info for every element matching a
// CSS selector.
func (i *Inspector) FindAll(cssSelector string) (string, error) {
	selJSON, err := encode(cssSelector)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
%s;
const elements = document.querySelectorAll(%s);
Array.from(elements).map(el => getElementInfo(el));
`, getElementInfoJS, selJSON), nil
}

// PageInfo compiles a script returning document metadata and viewport
// dimensions.
func (i *Inspector) PageInfo() string {
	return pageInfoJS
}
