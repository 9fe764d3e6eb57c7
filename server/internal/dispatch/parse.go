package dispatch

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/chirpwall/chirpwall/pkg/wire"
)

// Kind tags the closed set of operations the board understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindListMessages
	KindCreateMessage
)

func (k Kind) String() string {
	switch k {
	case KindListMessages:
		return "messages"
	case KindCreateMessage:
		return "createMessage"
	default:
		return "unknown"
	}
}

// Root field names recognized under each operation type.
const (
	fieldMessages      = "messages"
	fieldCreateMessage = "createMessage"
)

// Operation is the decoded form of a one-shot request. Content and Author
// are only meaningful for KindCreateMessage; an absent argument is "".
type Operation struct {
	Kind    Kind
	Name    string // operation name, if the document declared one
	Content string
	Author  string
}

// Parse decodes req into an Operation. It never fails: a document that does
// not parse, or is not a recognizable list or create request, yields
// KindUnknown.
//
// The document may hold several operations; req.OperationName selects one by
// name, otherwise the first is used. Only the first root field of the
// selected operation decides the kind.
func Parse(req wire.Request) Operation {
	doc, err := parser.ParseQuery(&ast.Source{Input: joinSurrogates(req.Query)})
	if err != nil {
		return Operation{Kind: KindUnknown}
	}
	def := selectOperation(doc.Operations, req.OperationName)
	if def == nil {
		return Operation{Kind: KindUnknown}
	}

	op := Operation{Kind: KindUnknown, Name: def.Name}
	field := rootField(def)
	if field == nil {
		return op
	}
	switch {
	case def.Operation == ast.Query && field.Name == fieldMessages:
		op.Kind = KindListMessages
	case def.Operation == ast.Mutation && field.Name == fieldCreateMessage:
		op.Kind = KindCreateMessage
		op.Content = stringArg(field, "content", def.VariableDefinitions, req.Variables)
		op.Author = stringArg(field, "author", def.VariableDefinitions, req.Variables)
	}
	return op
}

func selectOperation(ops ast.OperationList, name string) *ast.OperationDefinition {
	if len(ops) == 0 {
		return nil
	}
	if name == "" {
		return ops[0]
	}
	for _, o := range ops {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// rootField returns the first root selection when it is a plain field.
func rootField(def *ast.OperationDefinition) *ast.Field {
	if len(def.SelectionSet) == 0 {
		return nil
	}
	f, _ := def.SelectionSet[0].(*ast.Field)
	return f
}

// stringArg resolves argument name of f to a string. A variable takes its
// value from vars, falling back to the declared default; a missing, null or
// non-string value resolves to "".
func stringArg(f *ast.Field, name string, defs ast.VariableDefinitionList, vars map[string]any) string {
	var v *ast.Value
	for _, a := range f.Arguments {
		if a.Name == name {
			v = a.Value
			break
		}
	}
	if v == nil {
		return ""
	}

	if v.Kind == ast.Variable {
		if raw, ok := vars[v.Raw]; ok {
			s, _ := raw.(string)
			return s
		}
		v = defaultValue(defs, v.Raw)
		if v == nil {
			return ""
		}
	}
	switch v.Kind {
	case ast.StringValue, ast.BlockValue:
		return v.Raw
	}
	return ""
}

func defaultValue(defs ast.VariableDefinitionList, variable string) *ast.Value {
	for _, d := range defs {
		if d.Variable == variable {
			return d.DefaultValue
		}
	}
	return nil
}

// --- source preparation ---

// joinSurrogates rewrites UTF-16 surrogate pair escapes ("\ud83d\ude00")
// inside string literals into the character they encode. The parser decodes
// each \u escape on its own, which turns a pair into two replacement
// characters. Block strings and comments are copied unchanged.
func joinSurrogates(src string) string {
	if !strings.Contains(src, `\u`) {
		return src
	}
	var b strings.Builder
	b.Grow(len(src))
	for i := 0; i < len(src); {
		switch {
		case src[i] == '#':
			j := strings.IndexAny(src[i:], "\r\n")
			if j < 0 {
				j = len(src) - i
			}
			b.WriteString(src[i : i+j])
			i += j
		case strings.HasPrefix(src[i:], `"""`):
			j := blockStringEnd(src, i+3)
			b.WriteString(src[i:j])
			i = j
		case src[i] == '"':
			i = copyString(&b, src, i)
		default:
			b.WriteByte(src[i])
			i++
		}
	}
	return b.String()
}

// blockStringEnd returns the index just past the """ that closes a block
// string whose body starts at i.
func blockStringEnd(src string, i int) int {
	for i < len(src) {
		if strings.HasPrefix(src[i:], `\"""`) {
			i += 4
			continue
		}
		if strings.HasPrefix(src[i:], `"""`) {
			return i + 3
		}
		i++
	}
	return len(src)
}

// copyString copies the string literal opening at src[i] into b and returns
// the index after it. An unterminated literal stops at the line end and is
// left for the parser to reject.
func copyString(b *strings.Builder, src string, i int) int {
	b.WriteByte('"')
	i++
	for i < len(src) {
		c := src[i]
		switch {
		case c == '"':
			b.WriteByte(c)
			return i + 1
		case c == '\n' || c == '\r':
			return i
		case c == '\\' && i+1 < len(src):
			if r, ok := surrogatePair(src[i:]); ok {
				b.WriteRune(r)
				i += 12
				continue
			}
			b.WriteString(src[i : i+2])
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return i
}

func surrogatePair(s string) (rune, bool) {
	if len(s) < 12 || s[:2] != `\u` || s[6:8] != `\u` {
		return 0, false
	}
	hi, err := strconv.ParseUint(s[2:6], 16, 16)
	if err != nil {
		return 0, false
	}
	lo, err := strconv.ParseUint(s[8:12], 16, 16)
	if err != nil {
		return 0, false
	}
	r := utf16.DecodeRune(rune(hi), rune(lo))
	return r, r != utf8.RuneError
}
