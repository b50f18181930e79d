// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"strings"
)

// RecordSeparator terminates every slot in the serialized form.
const RecordSeparator = ":"

// Records is the ordered list of rank slots entered on the page.
// A zero value in a slot means the slot is blank.
type Records []int

// NewRecords returns n blank slots.
func NewRecords(n int) Records {
	return make(Records, n)
}

// ParseRank interprets raw slot input. Anything that is not a positive
// integer is blank.
func ParseRank(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Serialize renders every slot followed by the separator, e.g. "5::12:".
func (r Records) Serialize() string {
	var b strings.Builder
	for _, rank := range r {
		if rank > 0 {
			b.WriteString(strconv.Itoa(rank))
		}
		b.WriteString(RecordSeparator)
	}
	return b.String()
}

// ParseRecords fills n slots from a serialized string. Missing trailing
// elements and unparsable values stay blank; extra elements are ignored.
func ParseRecords(s string, n int) Records {
	r := NewRecords(n)
	if s == "" {
		return r
	}
	for i, part := range strings.Split(s, RecordSeparator) {
		if i >= n {
			break
		}
		if rank, ok := ParseRank(part); ok {
			r[i] = rank
		}
	}
	return r
}

// Set stores a raw value in slot i and reports whether it was a valid rank.
// Invalid input blanks the slot.
func (r Records) Set(i int, raw string) bool {
	rank, ok := ParseRank(raw)
	r[i] = rank
	return ok
}

// Clone returns an independent copy.
func (r Records) Clone() Records {
	out := make(Records, len(r))
	copy(out, r)
	return out
}

// Filled counts non-blank slots.
func (r Records) Filled() int {
	n := 0
	for _, rank := range r {
		if rank > 0 {
			n++
		}
	}
	return n
}
