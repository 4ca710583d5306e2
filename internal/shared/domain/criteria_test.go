package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fieldCriteria struct {
	field string
	value interface{}
}

func (f fieldCriteria) ToConditions() []Criterion {
	return []Criterion{{Field: f.field, Op: OpEq, Value: f.value}}
}

func TestAnd_FlattensConditions(t *testing.T) {
	crit := And(fieldCriteria{"id", "1"}, nil, fieldCriteria{"owner_id", "2"})

	conds := crit.ToConditions()

	assert.Len(t, conds, 2)
	assert.Equal(t, "id", conds[0].Field)
	assert.Equal(t, "owner_id", conds[1].Field)
}

func TestMatchRow(t *testing.T) {
	owner := uuid.New()
	row := Row{"id": "abc", "owner_id": owner.String(), "is_completed": true, "title": "Comprar Pan"}

	assert.True(t, MatchRow(row, fieldCriteria{"owner_id", owner}), "uuid se compara por su forma textual")
	assert.True(t, MatchRow(row, fieldCriteria{"is_completed", true}))
	assert.False(t, MatchRow(row, And(fieldCriteria{"id", "abc"}, fieldCriteria{"owner_id", uuid.New()})))
	assert.True(t, MatchRow(row, nil), "sin criterios todas las filas coinciden")

	unknown := Criterion{Field: "title", Op: Operator("ILIKE"), Value: "%pan%"}
	assert.False(t, unknown.Matches(row), "un operador desconocido no coincide nunca")
}

func TestRowClone_IsIndependent(t *testing.T) {
	row := Row{"title": "a"}

	clone := row.Clone()
	clone["title"] = "b"

	assert.Equal(t, "a", row["title"])
	assert.ElementsMatch(t, []string{"title"}, row.Keys())
}
