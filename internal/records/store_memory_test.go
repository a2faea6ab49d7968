package records

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Record{StudentID: "21BCE1001", CompanyName: "Acme"})

	require.NoError(t, s.SetField(ctx, "21BCE1001", "Acme", "Offer Letter", Yes))
	assert.ErrorIs(t, s.SetField(ctx, "21BCE1001", "Other", "Offer Letter", Yes), ErrNotFound)
	assert.ErrorIs(t, s.SetField(ctx, "21BCE1001", "Acme", ColumnCompany, "x"), ErrInvalidRecord)

	rec, err := s.Find(ctx, " 21BCE1001", "Acme ")
	require.NoError(t, err)
	assert.Equal(t, Yes, rec.Get("Offer Letter"))

	// returned records are copies
	rec.Fields["Offer Letter"] = No
	again, err := s.Find(ctx, "21BCE1001", "Acme")
	require.NoError(t, err)
	assert.Equal(t, Yes, again.Get("Offer Letter"))

	assert.ErrorIs(t, s.Create(ctx, Record{StudentID: "21BCE1001", CompanyName: "Acme"}), ErrAlreadyExists)
	assert.ErrorIs(t, s.Create(ctx, Record{CompanyName: "Acme"}), ErrInvalidRecord)
}
