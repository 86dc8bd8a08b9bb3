package catalog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/storefront/internal/activity"
	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/memstore"
)

func newService(t *testing.T) (*catalog.Service, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	return catalog.NewService(s.Catalog(), s.Catalog(), s, activity.NewService(s.Activity()), nil), s
}

func input(name string, price int64, stock int) catalog.ProductInput {
	return catalog.ProductInput{Name: name, Price: &price, Stock: &stock}
}

func TestCreateProduct_Validates(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateProduct(context.Background(), 0, catalog.ProductInput{Name: " "})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.EINVALID, e.Code)
	assert.Contains(t, e.Fields, "name")
	assert.Contains(t, e.Fields, "price")
	assert.Contains(t, e.Fields, "stock")

	_, err = svc.CreateProduct(context.Background(), 0, input("A", -1, 0))
	assert.Equal(t, apperr.EINVALID, apperr.Code(err))
}

func TestList_FilterSortPage(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	kb, err := svc.CreateCategory(ctx, 1, catalog.CategoryInput{Name: "Keyboards"})
	require.NoError(t, err)

	a, _ := svc.CreateProduct(ctx, 1, input("Mechanical keyboard", 300, 1))
	_, _ = svc.CreateProduct(ctx, 1, input("Mouse", 100, 1))
	c, _ := svc.CreateProduct(ctx, 1, input("Low-profile keyboard", 200, 1))
	_, err = svc.SetProductCategories(ctx, 1, a.ID, []int64{kb.ID, kb.ID})
	require.NoError(t, err)
	_, err = svc.SetProductCategories(ctx, 1, c.ID, []int64{kb.ID})
	require.NoError(t, err)

	out, err := svc.List(ctx, catalog.Query{CategoryID: kb.ID, Sort: catalog.SortPriceHigh})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, a.ID, out[0].ID)
	assert.Equal(t, []int64{kb.ID}, out[0].CategoryIDs)

	out, _ = svc.List(ctx, catalog.Query{Q: "KEYBOARD", Limit: 1, Offset: 1})
	require.Len(t, out, 1)
	assert.Equal(t, a.ID, out[0].ID, "newest first, second page")

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSetProductCategories_UnknownCategory(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p, _ := svc.CreateProduct(ctx, 1, input("A", 1, 1))
	_, err := svc.SetProductCategories(ctx, 1, p.ID, []int64{42})
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
}

func TestMutationsAreAudited(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, 7, input("A", 1, 1))
	require.NoError(t, err)
	_, err = svc.UpdateProduct(ctx, 7, p.ID, input("B", 2, 2))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProduct(ctx, 7, p.ID))
	assert.ErrorIs(t, svc.DeleteProduct(ctx, 7, p.ID), catalog.ErrProductNotFound)

	recent, err := s.Activity().Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, activity.ActionProductDeleted, recent[0].Action)
	assert.Equal(t, activity.ActionProductCreated, recent[2].Action)
}

func TestDeleteCategory_KeepsProducts(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	cat, err := svc.CreateCategory(ctx, 1, catalog.CategoryInput{Name: "Mice"})
	require.NoError(t, err)
	p, _ := svc.CreateProduct(ctx, 1, input("Mouse", 1, 1))
	_, err = svc.SetProductCategories(ctx, 1, p.ID, []int64{cat.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, 1, cat.ID))
	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CategoryIDs)
}

const seedYAML = `
categories:
  - name: Keyboards
products:
  - name: K60
    price: 19990
    stock: 10
    categories: [Keyboards]
  - name: Pad
    price: 990
    stock: 3
`

func TestApplySeed(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	seed, err := catalog.LoadSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)

	n, err := svc.ApplySeed(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.ApplySeed(ctx, seed)
	require.NoError(t, err)
	assert.Zero(t, n, "non-empty catalog is left alone")

	cats, _ := svc.Categories(ctx)
	require.Len(t, cats, 1)
	out, _ := svc.List(ctx, catalog.Query{CategoryID: cats[0].ID})
	require.Len(t, out, 1)
	assert.Equal(t, "K60", out[0].Name)

	_, err = catalog.LoadSeed(strings.NewReader("products:\n  - nmae: typo\n"))
	assert.Error(t, err)
}

func TestImport_RollsBackWholeBatch(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, 1, []catalog.ImportItem{
		{Line: 2, Input: input("Good", 100, 1)},
		{Line: 3, Input: input("Orphan", 100, 1), CategoryIDs: []int64{42}},
	})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.EINVALID, e.Code)
	assert.Contains(t, e.Message, "row 3")
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)

	n, _ := svc.Count(ctx)
	assert.Zero(t, n)
	recent, _ := s.Activity().Recent(ctx, 10)
	assert.Empty(t, recent)

	_, err = svc.Import(ctx, 1, []catalog.ImportItem{
		{Line: 2, Input: input("Good", 100, 1)},
		{Line: 3, Input: input("", 100, 1)},
	})
	assert.Equal(t, apperr.EINVALID, apperr.Code(err))
	n, _ = svc.Count(ctx)
	assert.Zero(t, n)

	res, err := svc.Import(ctx, 1, []catalog.ImportItem{{Line: 2, Input: input("Good", 100, 1)}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
}
