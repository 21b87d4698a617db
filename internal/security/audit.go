package security

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Auditor statically analyzes stored Python functions against the
// policy denylist. The policy is restrictive: anything that could
// touch the host, spawn processes, or reach the network is blocked.
type Auditor struct {
	parser *sitter.Parser

	forbiddenImports  map[string]bool
	forbiddenCalls    map[string]bool
	forbiddenBuiltins map[string]bool
	allowedDunders    map[string]bool
}

// NewAuditor creates an auditor enforcing the given policy.
func NewAuditor(policy Policy) *Auditor {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Auditor{
		parser:            parser,
		forbiddenImports:  toSet(policy.ForbiddenImports),
		forbiddenCalls:    toSet(policy.ForbiddenCalls),
		forbiddenBuiltins: toSet(policy.ForbiddenBuiltins),
		allowedDunders:    toSet(policy.AllowedDunders),
	}
}

// CheckSecurity walks the code's AST and reports the first policy
// violation. Unparseable code is unsafe by definition.
func (a *Auditor) CheckSecurity(code string) (safe bool, reason string) {
	src := []byte(code)
	tree := a.parser.Parse(nil, src)
	if tree == nil {
		return false, "analysis error: parser returned no tree"
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return false, "analysis error: no root node"
	}
	if root.HasError() {
		return false, "syntax error"
	}

	return a.walk(root, src)
}

func (a *Auditor) walk(n *sitter.Node, src []byte) (bool, string) {
	switch n.Type() {
	case "import_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			name := importRoot(n.NamedChild(i), src)
			if a.forbiddenImports[name] {
				return false, fmt.Sprintf("import of '%s' is forbidden", name)
			}
		}

	case "import_from_statement":
		if mod := n.ChildByFieldName("module_name"); mod != nil {
			name := rootModule(mod.Content(src))
			if a.forbiddenImports[name] {
				return false, fmt.Sprintf("import from '%s' is forbidden", name)
			}
		}

	case "call":
		if fn := n.ChildByFieldName("function"); fn != nil {
			switch fn.Type() {
			case "identifier":
				name := fn.Content(src)
				if a.forbiddenCalls[name] || a.forbiddenBuiltins[name] {
					return false, fmt.Sprintf("call to '%s' is forbidden", name)
				}
			case "attribute":
				if attr := fn.ChildByFieldName("attribute"); attr != nil {
					name := attr.Content(src)
					if a.forbiddenCalls[name] {
						return false, fmt.Sprintf("attribute call '%s' is forbidden", name)
					}
				}
			}
		}

	case "attribute":
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			name := attr.Content(src)
			if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && !a.allowedDunders[name] {
				return false, fmt.Sprintf("access to dunder attribute '%s' is forbidden", name)
			}
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		if safe, reason := a.walk(n.NamedChild(i), src); !safe {
			return false, reason
		}
	}
	return true, ""
}

// importRoot extracts the root module from an import clause child
// (dotted_name or aliased_import).
func importRoot(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	if n.Type() == "aliased_import" {
		if name := n.ChildByFieldName("name"); name != nil {
			return rootModule(name.Content(src))
		}
		return ""
	}
	return rootModule(n.Content(src))
}

func rootModule(dotted string) string {
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return dotted
}
