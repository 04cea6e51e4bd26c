package institution

import "context"

// Repository defines read access to institutions and fields of
// education. Implementations live in the infrastructure layer; the
// engines never write.
type Repository interface {
	// GetInstitution returns the institution with the given id.
	// Returns shared.ErrNotFound if the id does not resolve.
	GetInstitution(ctx context.Context, id int64) (*Institution, error)

	// GetField returns the field of education with the given id.
	// Returns shared.ErrNotFound if the id does not resolve.
	GetField(ctx context.Context, id int64) (*FieldOfEducation, error)

	// ListInstitutionsWithAttrition returns institutions that have at
	// least one domestic attrition record, ordered by name. The noise
	// filter is the caller's concern.
	ListInstitutionsWithAttrition(ctx context.Context) ([]Institution, error)

	// ListFields returns all broad fields of education ordered by name.
	ListFields(ctx context.Context) ([]FieldOfEducation, error)
}
