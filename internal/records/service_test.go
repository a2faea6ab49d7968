package records

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceStripsProtectedColumns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, "Offer Letter")

	rec, err := svc.Add(ctx, Record{
		StudentID:   "21BCE1001",
		CompanyName: "Acme",
		Fields:      map[string]string{"Offer Letter": Yes, "Stipend": "10000"},
	})
	require.NoError(t, err)
	assert.NotContains(t, rec.Fields, "Offer Letter")

	updated, err := svc.Update(ctx, "21BCE1001", "Acme", map[string]string{"Offer Letter": Yes, "Stipend": "12000"})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Get("Offer Letter"))
	assert.Equal(t, "12000", updated.Get("Stipend"))

	require.NoError(t, store.SetField(ctx, "21BCE1001", "Acme", "Offer Letter", Yes))
	got, err := store.Find(ctx, "21BCE1001", "Acme")
	require.NoError(t, err)
	assert.Equal(t, Yes, got.Get("Offer Letter"))
}

func TestServiceListByStudent(t *testing.T) {
	svc := NewService(NewMemoryStore(
		Record{StudentID: "21BCE1001", CompanyName: "Acme"},
		Record{StudentID: "21BCE1002", CompanyName: "Globex"},
		Record{StudentID: "21BCE1001", CompanyName: "Initech"},
	))

	recs, err := svc.ListByStudent(context.Background(), " 21BCE1001 ")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Acme", recs[0].CompanyName)
	assert.Equal(t, "Initech", recs[1].CompanyName)
}
