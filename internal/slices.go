package internal

// SliceReclaim grows the slice by one element and returns a pointer to it.
// The element keeps whatever a previous use left in the backing array, so the
// caller must reset the fields it does not overwrite. Collectors use it to
// reuse per-frame storage across frames.
func SliceReclaim[T any](ptr *[]T) *T {
	s := *ptr
	n := len(s)
	if n < cap(s) {
		*ptr = s[:n+1]
	} else {
		var zero T
		*ptr = append(s, zero)
	}
	return &(*ptr)[n]
}
