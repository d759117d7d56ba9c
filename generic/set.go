package generic

// Set is an unordered collection of unique comparable values.
type Set[T comparable] map[T]struct{}

func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts item, returning false if it was already present.
func (s Set[T]) Add(item T) bool {
	if _, found := s[item]; found {
		return false
	}
	s[item] = struct{}{}
	return true
}

// Contains returns true only if every one of items is present.
func (s Set[T]) Contains(items ...T) bool {
	for _, item := range items {
		if _, found := s[item]; !found {
			return false
		}
	}
	return true
}

func (s Set[T]) Count() int {
	return len(s)
}

func (s Set[T]) Remove(item T) bool {
	if _, found := s[item]; !found {
		return false
	}
	delete(s, item)
	return true
}
