package object

import "github.com/termfx/ecmacore/internal/value"

// Accessor holds the getter/setter pair for an accessor property. Either
// function may be nil (an accessor with only a getter, or only a setter).
type Accessor struct {
	Get value.Value
	Set value.Value
}

// Property is the uniform description returned by GetOwnProperty: either a
// data value or an accessor pair, tagged with its attributes.
type Property struct {
	Value    value.Value
	Accessor Accessor
	Attrs    Attributes
}

// IsAccessor reports whether this property is a getter/setter pair rather
// than a plain data slot.
func (p Property) IsAccessor() bool { return p.Attrs.Accessor }

// dictEntry is one key's slot in a dictionary-mode object's own property
// map, used once a Shape reports IsDictionary().
type dictEntry struct {
	value value.Value
	acc   Accessor
	attrs Attributes
}
