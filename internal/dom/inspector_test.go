package dom_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinkertool/tinker/api/schemas"
	"github.com/tinkertool/tinker/internal/dom"
)

func TestInspector_FindElementScript(t *testing.T) {
	i := dom.NewInspector()

	js, err := i.FindElement(schemas.ElementSelector{CSS: "button.submit"})
	require.NoError(t, err)

	assert.Contains(t, js, "function findElement")
	assert.Contains(t, js, "function getElementInfo")
	assert.Contains(t, js, `"css":"button.submit"`)
	assert.Contains(t, js, "element ? getElementInfo(element) : null")
}

func TestInspector_SelectorRequiresStrategy(t *testing.T) {
	i := dom.NewInspector()

	_, err := i.FindElement(schemas.ElementSelector{})
	assert.Error(t, err)

	_, err = i.FindElement(schemas.ElementSelector{Attributes: map[string]string{"role": "button"}})
	assert.Error(t, err)
}

func TestInspector_SelectorValuesAreJSONEncoded(t *testing.T) {
	i := dom.NewInspector()

	// A hostile selector must come out as an escaped JSON string, never as
	// raw script text.
	hostile := `"); alert(1); ("`
	js, err := i.FindElement(schemas.ElementSelector{CSS: hostile})
	require.NoError(t, err)

	assert.NotContains(t, js, `"); alert(1); ("`)
	assert.Contains(t, js, `\"); alert(1); (\"`)
}

func TestInspector_InteractScript(t *testing.T) {
	i := dom.NewInspector()

	js, err := i.Interact(
		schemas.ElementSelector{CSS: "input[name=q]"},
		schemas.Interaction{Type: schemas.InteractType, Text: "hello"},
	)
	require.NoError(t, err)

	assert.Contains(t, js, "function interactWithElement")
	assert.Contains(t, js, `"type":"type"`)
	assert.Contains(t, js, `"text":"hello"`)
	assert.Contains(t, js, "result.elementInfo = getElementInfo(element)")
}

func TestInspector_InteractValidatesVariant(t *testing.T) {
	i := dom.NewInspector()
	sel := schemas.ElementSelector{CSS: "input"}

	_, err := i.Interact(sel, schemas.Interaction{Type: schemas.InteractType})
	assert.Error(t, err, "type without text must fail")

	_, err = i.Interact(sel, schemas.Interaction{Type: schemas.InteractSelect})
	assert.Error(t, err, "select without value must fail")

	_, err = i.Interact(sel, schemas.Interaction{Type: "explode"})
	assert.Error(t, err, "unknown interaction tag must fail")
}

func TestInspector_HighlightDefaultsToRed(t *testing.T) {
	i := dom.NewInspector()

	js, err := i.Highlight(schemas.ElementSelector{CSS: "#target"}, "")
	require.NoError(t, err)
	assert.Contains(t, js, `highlightElement(element, "#ff0000")`)

	js, err = i.Highlight(schemas.ElementSelector{CSS: "#target"}, "#00ff00")
	require.NoError(t, err)
	assert.Contains(t, js, `highlightElement(element, "#00ff00")`)
}

func TestInspector_CheckConditionScript(t *testing.T) {
	i := dom.NewInspector()

	js, err := i.CheckCondition(schemas.WaitCondition{
		ConditionType: schemas.WaitElementVisible,
		Selector:      schemas.ElementSelector{CSS: ".spinner"},
		TimeoutMs:     5000,
	})
	require.NoError(t, err)

	assert.Contains(t, js, "function checkWaitCondition")
	assert.Contains(t, js, `"condition_type":"element_visible"`)
	assert.Contains(t, js, "checkWaitCondition(condition)")
}

func TestInspector_CheckConditionValidates(t *testing.T) {
	i := dom.NewInspector()

	_, err := i.CheckCondition(schemas.WaitCondition{
		ConditionType: schemas.WaitElementVisible,
	})
	assert.Error(t, err, "element predicate without selector must fail")

	_, err = i.CheckCondition(schemas.WaitCondition{ConditionType: "bogus"})
	assert.Error(t, err)

	// Page-level predicates need no selector.
	_, err = i.CheckCondition(schemas.WaitCondition{
		ConditionType: schemas.WaitURLContains,
		Text:          "/checkout",
	})
	assert.NoError(t, err)
}

func TestInspector_FindAllEncodesSelector(t *testing.T) {
	i := dom.NewInspector()

	js, err := i.FindAll(`a[href*="example"]`)
	require.NoError(t, err)

	assert.Contains(t, js, "document.querySelectorAll(")
	assert.Contains(t, js, `\"example\"`)
	assert.Contains(t, js, "Array.from(elements).map(el => getElementInfo(el))")
}

func TestInspector_PageInfoScript(t *testing.T) {
	i := dom.NewInspector()

	js := i.PageInfo()
	for _, want := range []string{"document.title", "window.location.href", "readyState", "viewport"} {
		assert.True(t, strings.Contains(js, want), "missing %q", want)
	}
}
