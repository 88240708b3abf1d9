package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentaldesk/clinic-api/catalog"
	"github.com/dentaldesk/clinic-api/clinic"
	"github.com/dentaldesk/clinic-api/store/sqlite"
)

func TestParse_DefaultCatalog(t *testing.T) {
	treatments, err := catalog.Parse([]byte(catalog.DefaultJSON), time.Now().UTC())
	require.NoError(t, err)
	require.NotEmpty(t, treatments)

	for _, tr := range treatments {
		assert.NotEmpty(t, tr.ID)
		assert.NotEmpty(t, tr.Name)
		assert.False(t, tr.Price.IsNegative())
	}
}

func TestParse_RejectsInvalidEntry(t *testing.T) {
	bad := `[{"name": "", "price": "100"}]`

	_, err := catalog.Parse([]byte(bad), time.Now().UTC())

	var verr *clinic.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	created, err := catalog.Seed(ctx, store, []byte(catalog.DefaultJSON), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 10, created)

	// Second boot: catalog untouched.
	created, err = catalog.Seed(ctx, store, []byte(catalog.DefaultJSON), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	listed, err := store.ListTreatments(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 10)
}
