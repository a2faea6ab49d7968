package records

import "context"

// Store is keyed record storage. SetField is the only primitive the
// verification pipeline needs; implementations must make it atomic with
// respect to other writers of the same store.
type Store interface {
	List(ctx context.Context) ([]Record, error)
	Find(ctx context.Context, studentID, companyName string) (Record, error)
	SetField(ctx context.Context, studentID, companyName, field, value string) error
	Create(ctx context.Context, rec Record) error
	Update(ctx context.Context, studentID, companyName string, fields map[string]string) (Record, error)
}
