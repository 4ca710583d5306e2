package domain

import "fmt"

// ---------------- Operadores ----------------

type Operator string

// OpEq es el único operador: los filtros de texto se aplican en la vista.
const OpEq Operator = "="

// ---------------- Criterion ----------------

// Criterion describe una condición neutral de filtrado sobre una columna del store.
type Criterion struct {
	Field string
	Op    Operator
	Value interface{}
}

// ---------------- Criteria interface ----------------

// Criteria permite transformar filtros a condiciones neutrales.
// Los adapters (REST, SQL, Mongo, fichero) las traducen a su dialecto.
type Criteria interface {
	ToConditions() []Criterion
}

// ---------------- Composite Criteria ----------------

// CompositeCriteria combina varios criterios; todas las condiciones se aplican con AND.
type CompositeCriteria struct {
	Criterias []Criteria
}

func (c CompositeCriteria) ToConditions() []Criterion {
	var all []Criterion
	for _, crit := range c.Criterias {
		if crit == nil {
			continue
		}
		all = append(all, crit.ToConditions()...)
	}
	return all
}

// And crea un CompositeCriteria cuyas condiciones deben cumplirse todas.
func And(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Criterias: criterias}
}

// Conditions devuelve las condiciones de c, o ninguna si c es nil.
func Conditions(c Criteria) []Criterion {
	if c == nil {
		return nil
	}
	return c.ToConditions()
}

// ---------------- Evaluación en memoria ----------------

// MatchRow evalúa las condiciones contra una fila ya materializada.
// Lo usan los stores que no tienen motor de consultas propio.
func MatchRow(row Row, criteria Criteria) bool {
	for _, cond := range Conditions(criteria) {
		if !cond.Matches(row) {
			return false
		}
	}
	return true
}

// Matches indica si la fila cumple la condición.
func (c Criterion) Matches(row Row) bool {
	value, ok := row[c.Field]
	if !ok || value == nil {
		return c.Value == nil
	}
	switch c.Op {
	case OpEq:
		return ValueString(value) == ValueString(c.Value)
	default:
		return false
	}
}

// ValueString normaliza un valor de fila a su forma textual en el wire.
func ValueString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
