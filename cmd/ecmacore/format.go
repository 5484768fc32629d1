package main

import (
	"fmt"
	"strings"

	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// formatValue renders a result value.Value for terminal output — a small
// inspector that recurses into array elements and object members,
// deliberately simpler than a real console.log/util.inspect: spec.md
// scopes the full stdlib (and any inspection format) out of the core, so
// this exists only to make `ecmacore eval`'s output readable.
func formatValue(v value.Value) string {
	switch v.Kind() {
	case value.KindUndefined:
		return "undefined"
	case value.KindNull:
		return "null"
	case value.KindBoolean:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case value.KindNumber:
		return fmt.Sprintf("%v", v.AsFloat64())
	case value.KindInteger32:
		return fmt.Sprintf("%d", v.AsInt32())
	case value.KindString:
		return value.StringOf(v)
	case value.KindBigInt:
		return value.BigIntOf(v).String() + "n"
	case value.KindSymbol:
		return "Symbol()"
	case value.KindObject:
		o, ok := value.As[*object.Object](v)
		if !ok {
			return "[object]"
		}
		return formatObject(o)
	default:
		return "<unknown>"
	}
}

func formatObject(o *object.Object) string {
	if o.IsCallable() {
		return "[Function]"
	}
	keys := o.OwnPropertyKeys()
	if o.Kind() == object.KindArray {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if k.IsSym {
				continue
			}
			p, ok := o.GetOwnProperty(k)
			if !ok || p.Attrs.Accessor {
				continue
			}
			parts = append(parts, formatValue(p.Value))
		}
		return "[ " + strings.Join(parts, ", ") + " ]"
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k.IsSym {
			continue
		}
		p, ok := o.GetOwnProperty(k)
		if !ok || !p.Attrs.Enumerable {
			continue
		}
		if p.Attrs.Accessor {
			parts = append(parts, fmt.Sprintf("%s: [Getter/Setter]", k.Name))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k.Name, formatValue(p.Value)))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}
