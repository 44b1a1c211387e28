package diagram

import "github.com/aretw0/espalier/pkg/model"

// Field control sentinels.
const (
	// Unassigned clears the field.
	Unassigned = "unassigned"
	// None leaves the field alone.
	None = "none"
)

// ApplyField writes a field control value into m. Unassigned clears the
// field, None is ignored and anything else is stored as wrap(raw). Writes are
// silent so a batch of edits does not trigger a render per field.
func ApplyField(m *model.Model, attr, raw string, wrap func(string) any) {
	switch raw {
	case Unassigned:
		m.Set(attr, nil, model.Silent())
	case None:
	default:
		m.Set(attr, wrap(raw), model.Silent())
	}
}

// Wrap returns a wrap function storing the raw value under key, producing the
// structured {key: raw} values used by editors.
func Wrap(key string) func(string) any {
	return func(raw string) any {
		return map[string]any{key: raw}
	}
}

// Plain stores the raw string as is.
func Plain(raw string) any { return raw }
