package common

// Coalesce picks the first argument that is not its type's zero value. Options and config
// accessors use it to fall back through configured, then default, settings:
//
//	speed := Coalesce(def.Speed, 1)
//
// Parameters:
//   - values: candidates in priority order
//
// Returns:
//   - T: the first non-zero candidate, or the zero value when every candidate is zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v == zero {
			continue
		}
		return v
	}
	return zero
}
