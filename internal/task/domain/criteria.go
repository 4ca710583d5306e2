package domain

import (
	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/hexatodo/internal/shared/domain"
)

// OwnerCriteria restringe a las filas de un principal. Toda lectura y escritura la lleva.
type OwnerCriteria struct {
	OwnerID uuid.UUID
}

func (c OwnerCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{{Field: ColOwnerID, Op: sharedDomain.OpEq, Value: c.OwnerID.String()}}
}

type IDCriteria struct {
	ID uuid.UUID
}

func (c IDCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{{Field: ColID, Op: sharedDomain.OpEq, Value: c.ID.String()}}
}

// OwnedTaskCriteria identifica una tarea concreta de un principal (id AND owner).
func OwnedTaskCriteria(id, owner uuid.UUID) sharedDomain.Criteria {
	return sharedDomain.And(IDCriteria{ID: id}, OwnerCriteria{OwnerID: owner})
}
