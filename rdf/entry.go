package rdf

import "strings"

// Entry is one item of a parse stream: a Record or a Comment.
type Entry interface {
	// HasData is true for entries that belong in a Mapping.
	HasData() bool
}

// Record is a key bound to a Field. The field's value and annotations are
// promoted, so r.Value and r.Units read through.
type Record struct {
	Key string
	Field
}

func (Record) HasData() bool { return true }

// String renders r as a single unaligned line.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString(r.Key)
	if left := r.left(); left != "" {
		b.WriteByte(' ')
		b.WriteString(left)
	}
	b.WriteString(" " + DefaultOperator + " ")
	b.WriteString(r.Value)
	if r.Comment != "" {
		b.WriteString(" " + DefaultComment + " " + r.Comment)
	}
	return b.String()
}

// Comment is a line carrying no record.
type Comment struct {
	Text string
}

func (Comment) HasData() bool { return false }

func (c Comment) String() string {
	if c.Text == "" {
		return DefaultComment
	}
	return DefaultComment + " " + c.Text
}
