package tello

import (
	"strconv"
	"strings"
)

type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueInt
	ValueFloat
	ValueText
)

// Value is a parsed read command reply.
// Text always holds the raw reply, Float is also set for ValueInt.
type Value struct {
	Kind  ValueKind
	Int   int
	Float float64
	Text  string
}

// ParseValue prefers integer, then float, then raw text.
func ParseValue(s string) Value {
	t := strings.TrimSpace(s)
	if i, err := strconv.Atoi(t); err == nil {
		return Value{Kind: ValueInt, Int: i, Float: float64(i), Text: s}
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return Value{Kind: ValueFloat, Int: int(f), Float: f, Text: s}
	}
	return Value{Kind: ValueText, Text: s}
}

func (self Value) Valid() bool    { return self.Kind != ValueNone }
func (self Value) IsNumber() bool { return self.Kind == ValueInt || self.Kind == ValueFloat }
func (self Value) String() string { return self.Text }

func replyIsError(reply string) bool {
	return strings.Contains(reply, "error") ||
		strings.Contains(reply, "ERROR") ||
		strings.Contains(reply, "False")
}
