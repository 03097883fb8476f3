package msi

import "strconv"

type valueKind uint8

const (
	nullKind valueKind = iota
	textKind
	intKind
)

// Value is one table cell: text, an integer or null.
type Value struct {
	kind   valueKind
	text   string
	number int32
}

func NullValue() Value            { return Value{} }
func TextValue(text string) Value { return Value{kind: textKind, text: text} }
func IntValue(number int32) Value { return Value{kind: intKind, number: number} }

func (this Value) IsNull() bool { return this.kind == nullKind }

func (this Value) Text() (string, bool) { return this.text, this.kind == textKind }

func (this Value) Int() (int32, bool) { return this.number, this.kind == intKind }

func (this Value) String() string {
	switch this.kind {
	case textKind:
		return this.text
	case intKind:
		return strconv.Itoa(int(this.number))
	default:
		return "<null>"
	}
}

// Row holds the values of one table row in the order the columns were selected.
type Row []Value
