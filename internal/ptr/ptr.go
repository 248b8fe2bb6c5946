// Package ptr has helpers for optional values modelled as pointers.
package ptr

// Ref returns a pointer to v.
func Ref[T any](v T) *T {
	return &v
}

// ValueOr dereferences p or returns fallback when p is nil.
func ValueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// Clone returns a pointer to a copy of *p, or nil.
func Clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
