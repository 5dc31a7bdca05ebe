package store

// Collection names a record collection; each one is a table of (id, JSON payload).
type Collection string

const (
	Budgets               Collection = "budgets"
	ScheduledTransactions Collection = "scheduled_transactions"
	CategoryGroups        Collection = "category_groups"
)

// schema is the canonical, latest declaration of collections and their indexed payload fields.
// The migrations in internal/database bring older files to exactly this shape.
var schema = map[Collection][]string{
	Budgets: {},
	ScheduledTransactions: {
		"budget_id",
		"date_first",
		"date_next",
		"frequency",
		"category_name",
		"payee_name",
	},
	CategoryGroups: {
		"budget_id",
	},
}

// IndexedFields lists the fields of c that can be queried, primary key excluded.
func IndexedFields(c Collection) []string {
	fields := schema[c]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// IndexName is the SQLite index backing field on c.
func IndexName(c Collection, field string) string {
	return "idx_" + string(c) + "_" + field
}

func isIndexed(c Collection, field string) bool {
	if field == "id" {
		return true
	}
	for _, f := range schema[c] {
		if f == field {
			return true
		}
	}
	return false
}

func isKnown(c Collection) bool {
	_, ok := schema[c]
	return ok
}

// fieldExpr must stay byte-identical to the expression used in the migrations, otherwise
// SQLite will not use the expression index.
func fieldExpr(field string) string {
	if field == "id" {
		return "id"
	}
	return "json_extract(payload, '$." + field + "')"
}
