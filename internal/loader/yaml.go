package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

func yamlToJSON(data []byte, filename string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: filename, Message: "parse YAML", Err: err}
	}
	if doc.Kind == 0 {
		return nil, &LoadError{Path: filename, Message: "empty YAML document"}
	}
	return NodeJSON(&doc, filename)
}

// NodeJSON renders a YAML node as JSON. Integer and float scalars keep
// their identity: a !!float that happens to be integral is written with a
// fractional part so it does not decode as an integer.
func NodeJSON(n *yaml.Node, filename string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeNode(&buf, n, filename); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func nodeError(n *yaml.Node, filename, format string, args ...any) error {
	return &LoadError{Path: filename, Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)}
}

func writeNode(buf *bytes.Buffer, n *yaml.Node, filename string) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNode(buf, n.Content[0], filename)

	case yaml.AliasNode:
		return writeNode(buf, n.Alias, filename)

	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nodeError(k, filename, "mapping keys must be scalars")
			}
			if k.Tag == "!!merge" {
				return nodeError(k, filename, "merge keys are not supported")
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k.Value)
			buf.WriteByte(':')
			if err := writeNode(buf, v, filename); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, c, filename); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case yaml.ScalarNode:
		return writeScalar(buf, n, filename)
	}
	return nodeError(n, filename, "unsupported YAML node kind %d", n.Kind)
}

func writeScalar(buf *bytes.Buffer, n *yaml.Node, filename string) error {
	switch n.ShortTag() {
	case "!!null":
		buf.WriteString("null")
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nodeError(n, filename, "invalid bool %q", n.Value)
		}
		buf.WriteString(strconv.FormatBool(b))
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nodeError(n, filename, "integer %q out of range", n.Value)
		}
		buf.WriteString(strconv.FormatInt(i, 10))
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nodeError(n, filename, "invalid float %q", n.Value)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nodeError(n, filename, "float %q has no JSON representation", n.Value)
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		buf.WriteString(s)
	case "!!binary":
		return nodeError(n, filename, "binary scalars are not supported")
	default:
		writeString(buf, n.Value)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.Encode(s)
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
}
