package queryaql

import (
	"fmt"
	"strings"

	"github.com/roach88/aqlkit/internal/ir"
	"github.com/roach88/aqlkit/internal/queryir"
)

// expr renders an expression node. Literal values never reach the text:
// each one is bound and replaced by its placeholder.
func (c *compiler) expr(e queryir.Expr) (string, error) {
	switch n := e.(type) {
	case nil:
		return "", fmt.Errorf("missing expression")
	case queryir.Literal:
		return c.literal(n.Value), nil
	case queryir.Ref:
		return n.Path, nil
	case queryir.Param:
		if n.Collection {
			return "@@" + n.Name, nil
		}
		return "@" + n.Name, nil
	case queryir.Binary:
		return c.binary(n)
	case queryir.Unary:
		operand, err := c.expr(n.Operand)
		if err != nil {
			return "", err
		}
		if n.Op == queryir.OpNot {
			return "NOT " + operand, nil
		}
		return n.Op + operand, nil
	case queryir.Func:
		args, err := c.exprs(n.Args)
		if err != nil {
			return "", fmt.Errorf("function %s: %w", n.Name, err)
		}
		return n.Name + "(" + strings.Join(args, ", ") + ")", nil
	case queryir.Ternary:
		parts, err := c.exprs([]queryir.Expr{n.Cond, n.Then, n.Else})
		if err != nil {
			return "", fmt.Errorf("ternary: %w", err)
		}
		return fmt.Sprintf("(%s ? %s : %s)", parts[0], parts[1], parts[2]), nil
	case queryir.Like:
		subject, err := c.expr(n.Expr)
		if err != nil {
			return "", err
		}
		p := c.bind(NSLikePattern, n.Pattern)
		if n.CaseInsensitive {
			return fmt.Sprintf("LIKE(%s, %s, true)", subject, p), nil
		}
		return fmt.Sprintf("(%s LIKE %s)", subject, p), nil
	case queryir.Regex:
		subject, err := c.expr(n.Expr)
		if err != nil {
			return "", err
		}
		p := c.bind(NSRegexPattern, n.Pattern)
		if n.Flags == "i" {
			return fmt.Sprintf("REGEX_TEST(%s, %s, true)", subject, p), nil
		}
		return fmt.Sprintf("(%s =~ %s)", subject, p), nil
	case queryir.Old:
		if n.Path == "" {
			return "OLD", nil
		}
		return "OLD." + n.Path, nil
	case queryir.Quantifier:
		subject, err := c.expr(n.Expr)
		if err != nil {
			return "", err
		}
		cond, err := c.expr(n.Cond)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[? %s FILTER %s]", subject, strings.ToUpper(string(n.Kind)), cond), nil
	case queryir.Unset:
		obj, err := c.expr(n.Object)
		if err != nil {
			return "", err
		}
		args := []string{obj}
		for _, f := range n.Fields {
			args = append(args, c.bind(NSValue, f))
		}
		return "UNSET(" + strings.Join(args, ", ") + ")", nil
	case queryir.Object:
		if len(n.Fields) == 0 {
			return "{}", nil
		}
		parts := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			v, err := c.expr(f.Value)
			if err != nil {
				return "", fmt.Errorf("field %s: %w", f.Key, err)
			}
			parts[i] = ir.Quote(f.Key) + ": " + v
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	case queryir.Array:
		elems, err := c.exprs(n.Elements)
		if err != nil {
			return "", err
		}
		return "[" + strings.Join(elems, ", ") + "]", nil
	case queryir.Subquery:
		lines, err := c.query(n.Query)
		if err != nil {
			return "", fmt.Errorf("subquery: %w", err)
		}
		return "(\n  " + strings.Join(lines, "\n  ") + "\n)", nil
	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

// literal binds v. Arrays get their own namespace.
func (c *compiler) literal(v any) string {
	if _, ok := v.([]any); ok {
		return c.bind(NSArray, v)
	}
	return c.bind(NSValue, v)
}

func (c *compiler) binary(n queryir.Binary) (string, error) {
	left, err := c.expr(n.Left)
	if err != nil {
		return "", err
	}

	var right string
	lit, isLit := n.Right.(queryir.Literal)
	_, isArray := lit.Value.([]any)
	if isLit && isArray && (n.Op == queryir.OpIn || n.Op == queryir.OpNotIn) {
		right = c.bind(NSInValues, lit.Value)
	} else {
		right, err = c.expr(n.Right)
		if err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("(%s %s %s)", left, n.Op, right), nil
}
