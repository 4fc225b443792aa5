package workflow

import (
	"strings"

	"github.com/zjrosen/canvasflow/internal/canvas"
)

// InputSeparator joins the contributions of several upstream nodes.
const InputSeparator = "\n\n"

// ResolveInput builds the textual input of nodeID from the recorded
// results of its upstream neighbours, in edge-list order. Sources without
// a result, sources that recorded an error, and outputs with no textual
// form contribute nothing.
func ResolveInput(nodeID canvas.NodeID, edges []canvas.Edge, results *Results) string {
	var parts []string
	for _, e := range edges {
		if e.Target != nodeID {
			continue
		}
		res, ok := results.Get(e.Source)
		if !ok || res.Failed() {
			continue
		}
		if text := OutputText(res.Output); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, InputSeparator)
}

// OutputText extracts the textual form of a node output: a plain string
// as-is, otherwise the text field, then the prompt field, then a
// placeholder naming the asset url.
func OutputText(out any) string {
	var text, prompt, url string
	switch o := out.(type) {
	case nil:
		return ""
	case string:
		return o
	case TextOutput:
		text = o.Text
	case ImageOutput:
		prompt, url = o.Prompt, o.URL
	case VideoOutput:
		prompt, url = o.Prompt, o.URL
	case LinkOutput:
		url = o.URL
	case map[string]any:
		text, _ = o["text"].(string)
		prompt, _ = o["prompt"].(string)
		url, _ = o["url"].(string)
	default:
		return ""
	}

	switch {
	case text != "":
		return text
	case prompt != "":
		return prompt
	case url != "":
		return "[Generated asset: " + url + "]"
	}
	return ""
}
