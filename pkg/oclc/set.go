package oclc

import "sort"

// Set is a collection of valid Numbers keyed by their normalized digits.
// Membership uses normalized equality, so "ocm00000001" and "(OCoLC)1"
// occupy the same slot. Insertion order is preserved for iteration.
type Set struct {
	byDigits map[string]Number
	order    []string
}

// NewSet creates a Set containing the given numbers.
// Invalid numbers are ignored.
func NewSet(numbers ...Number) *Set {
	s := &Set{byDigits: make(map[string]Number, len(numbers))}
	for _, n := range numbers {
		s.Add(n)
	}
	return s
}

// Add inserts a valid number. It returns true if the number was added and
// false if it was invalid or already present.
func (s *Set) Add(n Number) bool {
	if !n.Valid {
		return false
	}
	if _, ok := s.byDigits[n.Digits]; ok {
		return false
	}
	s.byDigits[n.Digits] = n
	s.order = append(s.order, n.Digits)
	return true
}

// Contains reports whether the set holds a number with the same digits.
func (s *Set) Contains(n Number) bool {
	if !n.Valid {
		return false
	}
	_, ok := s.byDigits[n.Digits]
	return ok
}

// ContainsDigits reports whether the set holds the given normalized digits.
func (s *Set) ContainsDigits(digits string) bool {
	_, ok := s.byDigits[digits]
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int {
	return len(s.byDigits)
}

// Numbers returns the members in insertion order.
func (s *Set) Numbers() []Number {
	numbers := make([]Number, 0, len(s.order))
	for _, digits := range s.order {
		numbers = append(numbers, s.byDigits[digits])
	}
	return numbers
}

// SortedDigits returns the members' digits in ascending numeric order.
// Zero-stripped digit strings compare numerically by (length, lexicographic),
// which avoids overflow on identifiers longer than an int64.
func (s *Set) SortedDigits() []string {
	digits := make([]string, len(s.order))
	copy(digits, s.order)
	sort.Slice(digits, func(i, j int) bool {
		return lessNumeric(digits[i], digits[j])
	})
	return digits
}

func lessNumeric(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
