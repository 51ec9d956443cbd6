package graph

import (
	"fmt"
	"strings"

	"github.com/kr/text"
)

// Text renders the node tree as indented text, fields first, then children.
// The output is deterministic, which makes pipeline shapes diffable in tests
// and tooling.
func Text(node *Node) string {
	var sb strings.Builder
	sb.WriteString(node.Name)
	sb.WriteString("\n")
	for _, field := range node.Fields {
		sb.WriteString(text.Indent(fmt.Sprintf("%s: %s", field.Name, field.Value), "  "))
		sb.WriteString("\n")
	}
	for _, child := range node.Children {
		sb.WriteString(text.Indent(child.Name+":", "  "))
		sb.WriteString("\n")
		sb.WriteString(text.Indent(strings.TrimRight(Text(child.Node), "\n"), "    "))
		sb.WriteString("\n")
	}
	return sb.String()
}
