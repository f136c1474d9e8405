package usecase

import (
	"context"
	"testing"

	"cyra-kanban/internal/client/domain"
	"cyra-kanban/internal/client/repository"
	"cyra-kanban/internal/testutil"
	"cyra-kanban/pkg/errutil"

	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func newUsecase(t *testing.T) ClientUsecase {
	t.Helper()
	db := testutil.NewTestDB(t, &domain.Client{}, &domain.Product{})
	return NewClientUsecase(repository.NewClientRepository(db), repository.NewProductRepository(db))
}

func TestClientLifecycle(t *testing.T) {
	uc := newUsecase(t)
	ctx := context.Background()

	_, err := uc.CreateClient(ctx, "u1", ClientRequest{Name: ptr("  ")})
	require.Equal(t, errutil.BadRequest, errutil.CodeOf(err))

	client, err := uc.CreateClient(ctx, "u1", ClientRequest{Name: ptr("Acme Corp"), ProjectKey: ptr("ACME")})
	require.NoError(t, err)
	require.Equal(t, domain.ClientActive, client.Status)

	updated, err := uc.UpdateClient(ctx, "u1", client.ID, ClientRequest{Status: ptr("Paused"), ContactEmail: ptr("ops@acme.test")})
	require.NoError(t, err)
	require.Equal(t, domain.ClientPaused, updated.Status)
	require.Equal(t, "Acme Corp", updated.Name)

	_, err = uc.UpdateClient(ctx, "u1", client.ID, ClientRequest{Status: ptr("gone")})
	require.Equal(t, errutil.BadRequest, errutil.CodeOf(err))

	_, err = uc.GetClient(ctx, "u2", client.ID)
	require.Equal(t, errutil.NotFound, errutil.CodeOf(err))
	require.Equal(t, errutil.NotFound, errutil.CodeOf(uc.DeleteClient(ctx, "u2", client.ID)))

	require.NoError(t, uc.DeleteClient(ctx, "u1", client.ID))
	clients, err := uc.ListClients(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, clients)
}

func TestResolveClientByNameOrKey(t *testing.T) {
	uc := newUsecase(t)
	ctx := context.Background()

	client, err := uc.CreateClient(ctx, "u1", ClientRequest{Name: ptr("Acme Corp"), ProjectKey: ptr("ACME")})
	require.NoError(t, err)

	for _, name := range []string{"acme corp", " ACME CORP ", "acme"} {
		found, err := uc.ResolveClient(ctx, "u1", name)
		require.NoError(t, err)
		require.NotNil(t, found, name)
		require.Equal(t, client.ID, found.ID)
	}

	found, err := uc.ResolveClient(ctx, "u1", "globex")
	require.NoError(t, err)
	require.Nil(t, found)

	found, err = uc.ResolveClient(ctx, "u2", "acme")
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestProducts(t *testing.T) {
	uc := newUsecase(t)
	ctx := context.Background()

	product, err := uc.CreateProduct(ctx, "u1", ProductRequest{Name: ptr("Website"), Description: ptr("Marketing site")})
	require.NoError(t, err)

	renamed, err := uc.UpdateProduct(ctx, "u1", product.ID, ProductRequest{Name: ptr("Web app")})
	require.NoError(t, err)
	require.Equal(t, "Web app", renamed.Name)
	require.Equal(t, "Marketing site", renamed.Description)

	_, err = uc.UpdateProduct(ctx, "u2", product.ID, ProductRequest{Name: ptr("x")})
	require.Equal(t, errutil.NotFound, errutil.CodeOf(err))

	products, err := uc.ListProducts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, products, 1)

	require.NoError(t, uc.DeleteProduct(ctx, "u1", product.ID))
	require.Equal(t, errutil.NotFound, errutil.CodeOf(uc.DeleteProduct(ctx, "u1", product.ID)))
}
