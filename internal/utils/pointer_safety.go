package utils

// Ptr returns a pointer to a copy of v, for filling optional patch fields
func Ptr[T any](v T) *T {
	return &v
}

// SetIfPresent copies *src into dst when src is non-nil and reports whether it
// did. Patch structs use a nil field to mean "leave unchanged".
func SetIfPresent[T any](dst *T, src *T) bool {
	if src == nil {
		return false
	}
	*dst = *src
	return true
}
