package glyph

import (
	"fmt"
	"io"
)

// tagIfNode implements {% if %}/{% elif %}/{% else %}/{% endif %}: the
// first condition that evaluates truthy renders its branch; a trailing
// bare else (one more wrapper than conditions) renders when every
// condition was false.
type tagIfNode struct {
	conditions []IEvaluator
	branches   []*NodeWrapper
}

func (n *tagIfNode) Execute(ctx *ExecutionContext, w io.Writer) error {
	for i, cond := range n.conditions {
		val, err := cond.Evaluate(ctx)
		if err != nil {
			// A failing condition is treated as falsey, never fatal.
			val = Bool(false)
		}
		if val.IsTrue() {
			return n.branches[i].Execute(ctx, w)
		}
	}
	if len(n.branches) > len(n.conditions) {
		return n.branches[len(n.branches)-1].Execute(ctx, w)
	}
	return nil
}

// parseIfCondition parses one `if`/`elif` condition, enforcing the two
// whole-condition errors the per-atom parser can't see on its own:
// an empty condition ("Missing boolean expression", pointing at the
// tag itself) and leftover tokens after a complete expression
// ("Unused expression '<tok>'", pointing at the first leftover token —
// the "two atoms in a row" case).
func parseIfCondition(args *Parser, tagTok *Token) (IEvaluator, error) {
	if args.remaining() == 0 {
		return nil, args.errorAt("Missing boolean expression", tagTok)
	}
	cond, err := args.parseIfExpression()
	if err != nil {
		return nil, err
	}
	if args.remaining() > 0 {
		leftover := args.current()
		return nil, args.errorAt(fmt.Sprintf("Unused expression '%s'", leftover.Val), leftover)
	}
	return cond, nil
}

func tagIfParser(doc *Parser, start *Token, args *Parser) (INode, error) {
	node := &tagIfNode{}

	cond, err := parseIfCondition(args, start)
	if err != nil {
		return nil, err
	}
	node.conditions = append(node.conditions, cond)

	for {
		wrapper, tagArgs, err := doc.WrapUntilTag("if", start, "elif", "else", "endif")
		if err != nil {
			return nil, err
		}
		node.branches = append(node.branches, wrapper)

		if wrapper.Endtag == "elif" {
			cond, err := parseIfCondition(tagArgs, wrapper.EndtagToken)
			if err != nil {
				return nil, err
			}
			node.conditions = append(node.conditions, cond)
		} else if tagArgs.remaining() > 0 {
			return nil, tagArgs.errorf(wrapper.EndtagToken, "'%s' tag takes no arguments", wrapper.Endtag)
		}

		if wrapper.Endtag == "endif" {
			return node, nil
		}
	}
}

func init() {
	RegisterTag("if", tagIfParser)
}
