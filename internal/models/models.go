package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Kind identifies which variant of a JSON value is held by a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Member is one key/value pair of a JSON object.
type Member struct {
	Key   string
	Value Value
}

// Value is a parsed JSON value. The zero Value is JSON null.
// Numbers keep the literal text they were written with.
type Value struct {
	kind    Kind
	boolean bool
	text    string // string contents or number literal
	items   []Value
	members []Member
}

// NullValue returns a JSON null.
func NullValue() Value { return Value{} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: Bool, boolean: b} }

// NumberValue wraps a number literal such as "42" or "3.14".
func NumberValue(literal string) Value { return Value{kind: Number, text: literal} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: String, text: s} }

// ArrayValue builds an array from items.
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Array, items: items}
}

// ObjectValue builds an object from members. Members with a repeated key
// keep the position of the first occurrence and the value of the last.
func ObjectValue(members ...Member) Value {
	out := make([]Member, 0, len(members))
	index := make(map[string]int, len(members))
	for _, m := range members {
		if i, ok := index[m.Key]; ok {
			out[i].Value = m.Value
			continue
		}
		index[m.Key] = len(out)
		out = append(out, m)
	}
	return Value{kind: Object, members: out}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Bool returns the boolean payload; false for other kinds.
func (v Value) Bool() bool { return v.boolean }

// Text returns the string payload or number literal; empty for other kinds.
func (v Value) Text() string { return v.text }

// Items returns the elements of an array value.
func (v Value) Items() []Value { return v.items }

// Members returns the members of an object value in insertion order.
func (v Value) Members() []Member { return v.members }

// Get looks up a member of an object value by key.
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// IsScalar reports whether v is null, a boolean, a number or a string.
func (v Value) IsScalar() bool {
	return v.kind != Array && v.kind != Object
}

// CompactJSON renders v as compact JSON text, preserving member order and
// number literals.
func (v Value) CompactJSON() string {
	var b strings.Builder
	writeJSON(&b, v)
	return b.String()
}

// Render returns the canonical cell text of v: number literals as written,
// booleans as true/false, null as the empty string, strings verbatim and
// containers as compact JSON text.
func (v Value) Render() string {
	switch v.kind {
	case Null:
		return ""
	case Bool:
		if v.boolean {
			return "true"
		}
		return "false"
	case Number, String:
		return v.text
	default:
		return v.CompactJSON()
	}
}

// Cell converts a scalar value into a table cell. Containers become a
// string cell holding their compact JSON text.
func (v Value) Cell() Cell {
	switch v.kind {
	case Null:
		return NullCell()
	case Bool:
		return BoolCell(v.boolean)
	case Number:
		return NumberCell(v.text)
	case String:
		return StringCell(v.text)
	default:
		return StringCell(v.CompactJSON())
	}
}

func writeJSON(b *strings.Builder, v Value) {
	switch v.kind {
	case Null:
		b.WriteString("null")
	case Bool:
		if v.boolean {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case Number:
		b.WriteString(v.text)
	case String:
		writeJSONString(b, v.text)
	case Array:
		b.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSON(b, item)
		}
		b.WriteByte(']')
	case Object:
		b.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, m.Key)
			b.WriteByte(':')
			writeJSON(b, m.Value)
		}
		b.WriteByte('}')
	}
}

func writeJSONString(b *strings.Builder, s string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	b.Write(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Document is a parsed JSON input together with where it came from.
type Document struct {
	Root Value
	// Source is the file name the document was read from, empty for stdin.
	Source string
}

// RootIsArray reports whether the document root is a JSON array.
func (d Document) RootIsArray() bool { return d.Root.kind == Array }
