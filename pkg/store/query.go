package store

type conditionKind int

const (
	equals conditionKind = iota
	between
)

// Condition selects records by the value of one indexed field.
type Condition struct {
	kind         conditionKind
	value        any
	lower, upper any
}

// Equals matches records whose field equals value. Results come in insertion order.
func Equals(value any) Condition {
	return Condition{kind: equals, value: value}
}

// Between matches lower <= field < upper. Results come in ascending field order.
func Between(lower, upper any) Condition {
	return Condition{kind: between, lower: lower, upper: upper}
}

func (c Condition) where(expr string) (string, []any) {
	if c.kind == between {
		return expr + " >= ? AND " + expr + " < ?", []any{c.lower, c.upper}
	}
	return expr + " = ?", []any{c.value}
}

func (c Condition) orderBy(expr string) string {
	if c.kind == between {
		return expr + ", rowid"
	}
	return "rowid"
}
