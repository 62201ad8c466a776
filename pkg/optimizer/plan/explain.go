package plan

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Explain 返回计划图的文本说明，每行一个顶点
func (g *Graph) Explain() string {
	var b strings.Builder
	printer.Fprintf(&b, "Plan %s (%d vertices)\n", g.ID, len(g.vertices))
	for _, v := range g.vertices {
		b.WriteString(g.explainVertex(v))
		b.WriteByte('\n')
	}
	return b.String()
}

func (g *Graph) explainVertex(v *Vertex) string {
	var b strings.Builder
	printer.Fprintf(&b, "  #%d %s ", v.ID, v.Kind)

	if v.IsDelegate() {
		printer.Fprintf(&b, "Delegate[#%d]", v.Delegate)
	} else {
		names := make([]string, len(v.Functions))
		for i, fn := range v.Functions {
			names[i] = fn.String()
		}
		b.WriteString(strings.Join(names, " -> "))
	}

	if v.Kind != KindSource {
		inputs := make([]string, 0, 2)
		for _, in := range v.Inputs() {
			e := g.edges[edgeKey{in, v.ID}]
			inputs = append(inputs, printer.Sprintf("#%d(%s)", in, e.Shuffle))
		}
		b.WriteString(" <- ")
		b.WriteString(strings.Join(inputs, ", "))
	}

	if v.estimated {
		printer.Fprintf(&b, " rows=%.1f size=%.1f", v.EstimatedNumRecords, v.EstimatedOutputSize)
	}
	return b.String()
}
