package model

// FilterOperator is the comparison applied by a browse filter.
type FilterOperator string

const (
	OpEquals         FilterOperator = "equals"
	OpContains       FilterOperator = "contains"
	OpStartsWith     FilterOperator = "startsWith"
	OpEndsWith       FilterOperator = "endsWith"
	OpIsNull         FilterOperator = "isNull"
	OpIsNotNull      FilterOperator = "isNotNull"
	OpGreaterThan    FilterOperator = "greaterThan"
	OpLessThan       FilterOperator = "lessThan"
	OpGreaterOrEqual FilterOperator = "greaterOrEqual"
	OpLessOrEqual    FilterOperator = "lessOrEqual"
)

// TakesValue reports whether the operator compares against Filter.Value.
// isNull and isNotNull ignore any supplied value.
func (o FilterOperator) TakesValue() bool {
	return o != OpIsNull && o != OpIsNotNull
}

// Filter is the single active filter of a browse.
type Filter struct {
	Column   string         `json:"column"`
	Operator FilterOperator `json:"operator"`
	Value    string         `json:"value,omitempty"`
}

// SortDirection controls the ORDER BY direction.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Sort is the single active sort of a browse.
type Sort struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

// QueryParameters describes one page of a table browse.
type QueryParameters struct {
	Target *TableRef `json:"target,omitempty"`
	Filter *Filter   `json:"filter,omitempty"`
	Sort   *Sort     `json:"sort,omitempty"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}
