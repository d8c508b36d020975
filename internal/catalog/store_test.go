package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(Options{})
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestCreate_ThenGetByID_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, CreateRequest{
		Name:        "Pixel 9",
		Description: "Google Pixel 9",
		Price:       29000,
		Category:    "Elektronik",
		Stock:       12,
		Colors: []ProductColor{
			{Name: "Obsidian", HexCode: "#0b0b0b"},
			{Name: "Porcelain", HexCode: "#efe7dc"},
		},
		IsActive: true,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())
	require.False(t, created.UpdatedAt.IsZero())

	got, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
	require.Equal(t, "Pixel 9", got.Name)
	require.Len(t, got.Colors, 2)
	require.NotZero(t, got.Colors[0].ID)
	require.NotEqual(t, got.Colors[0].ID, got.Colors[1].ID)
}

func TestCreate_AppendsAndRepublishesCount(t *testing.T) {
	s := newTestStore(t)
	before := s.TotalCount()

	var published []Product
	cancel := s.SubscribeProducts(func(ps []Product) { published = ps })
	defer cancel()

	created, err := s.Create(context.Background(), CreateRequest{Name: "X", Price: 10, Stock: 0, IsActive: true})
	require.NoError(t, err)

	require.Equal(t, before+1, s.TotalCount())
	require.Equal(t, created.ID, published[len(published)-1].ID, "create appends at the end")
	require.True(t, created.LowStock())
}

func TestUpdate_NotFoundLeavesCollectionUntouched(t *testing.T) {
	s := newTestStore(t)
	before := s.Products()
	count := s.TotalCount()

	_, err := s.Update(context.Background(), UpdateRequest{ID: 9999, Name: strPtr("ghost")})
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, before, s.Products())
	require.Equal(t, count, s.TotalCount())
	require.False(t, s.Loading(), "loading must reset on failure")
}

func TestUpdate_MergesAndStampsUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	orig, err := s.GetByID(ctx, 1)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	updated, err := s.Update(ctx, UpdateRequest{ID: 1, Stock: intPtr(500)})
	require.NoError(t, err)

	require.Equal(t, int64(1), updated.ID)
	require.Equal(t, 500, updated.Stock)
	require.Equal(t, orig.Name, updated.Name, "unspecified fields retained")
	require.Equal(t, orig.Price, updated.Price)
	require.Equal(t, orig.CreatedAt, updated.CreatedAt, "createdAt immutable")
	require.True(t, updated.UpdatedAt.After(orig.UpdatedAt) || orig.UpdatedAt.IsZero())

	got, err := s.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 500, got.Stock)
}

func TestUpdate_RemapsColorIDsPositionally(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	orig, err := s.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, orig.Colors, 4)

	next := []ProductColor{
		{Name: "Siyah", HexCode: "#000000"},
		{Name: "Gri", HexCode: "#888888"},
		{Name: "Beyaz", HexCode: "#ffffff"},
		{Name: "Mavi", HexCode: "#0000ff"},
		{Name: "Yeşil", HexCode: "#00ff00"},
	}
	updated, err := s.Update(ctx, UpdateRequest{ID: 1, Colors: next})
	require.NoError(t, err)
	require.Len(t, updated.Colors, 5)

	for i := 0; i < 4; i++ {
		require.Equal(t, orig.Colors[i].ID, updated.Colors[i].ID, "existing position keeps its id")
		require.Equal(t, next[i].Name, updated.Colors[i].Name)
	}
	require.NotZero(t, updated.Colors[4].ID)
	for i := 0; i < 4; i++ {
		require.NotEqual(t, updated.Colors[i].ID, updated.Colors[4].ID)
	}
}

func TestUpdate_RepublishesSelection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetByID(ctx, 2) // selects product 2
	require.NoError(t, err)

	var seen *Product
	cancel := s.SubscribeSelected(func(p *Product) { seen = p })
	defer cancel()

	_, err = s.Update(ctx, UpdateRequest{ID: 2, Name: strPtr("Galaxy S24 Ultra")})
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.Equal(t, "Galaxy S24 Ultra", seen.Name)
}

func TestDelete_RemovesAndClearsSelection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	before := s.TotalCount()

	_, err := s.GetByID(ctx, 3) // selects product 3
	require.NoError(t, err)
	require.NotNil(t, s.Selected())

	selection := s.Selected()
	cancel := s.SubscribeSelected(func(p *Product) { selection = p })
	defer cancel()

	require.NoError(t, s.Delete(ctx, 3))
	require.Equal(t, before-1, s.TotalCount())
	require.Nil(t, selection, "selection cleared when its product is deleted")
	require.Nil(t, s.Selected())

	_, err = s.GetByID(ctx, 3)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_NotFound(t *testing.T) {
	s := newTestStore(t)
	count := s.TotalCount()

	err := s.Delete(context.Background(), 12345)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, count, s.TotalCount())
	require.False(t, s.Loading())
}

func TestList_EchoesPageWithoutSlicing(t *testing.T) {
	s := newTestStore(t)

	page, err := s.List(context.Background(), 7, 2, "ignored", "ignored")
	require.NoError(t, err)
	require.Equal(t, 7, page.Page)
	require.Equal(t, 2, page.PageSize)
	require.Len(t, page.Items, 3, "page size never slices the snapshot")
	require.Equal(t, 3, page.TotalCount)
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)

	byName := s.Search("iphone")
	require.Len(t, byName, 1)
	require.Equal(t, "iPhone 15 Pro", byName[0].Name)

	byDescription := s.Search("dizüstü")
	require.Len(t, byDescription, 1)
	require.Equal(t, int64(3), byDescription[0].ID)

	byCategory := s.Search("elektronik")
	require.Len(t, byCategory, 2)

	require.Empty(t, s.Search("yok böyle bir ürün"))
	require.Len(t, s.Search(""), 3, "blank query returns the full collection")
	require.Len(t, s.Search("   "), 3)
}

func TestByCategory(t *testing.T) {
	s := newTestStore(t)

	require.Len(t, s.ByCategory("Elektronik"), 2)
	require.Len(t, s.ByCategory("elektronik"), 2)
	require.Len(t, s.ByCategory("Bilgisayar"), 1)
	require.Empty(t, s.ByCategory("Mobilya"))
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st := s.Stats()
	require.Equal(t, Stats{TotalProducts: 3, Active: 3, LowStock: 0, Categories: 2}, st)

	_, err := s.Create(ctx, CreateRequest{Name: "Kılıf", Category: "Aksesuar", Stock: 4, IsActive: false})
	require.NoError(t, err)

	st = s.Stats()
	require.Equal(t, 4, st.TotalProducts)
	require.Equal(t, 3, st.Active)
	require.Equal(t, 1, st.LowStock)
	require.Equal(t, 3, st.Categories)
}

func TestSetSelected_AndClear(t *testing.T) {
	s := newTestStore(t)

	p, ok := s.find(2)
	require.True(t, ok)

	var seen []*Product
	cancel := s.SubscribeSelected(func(p *Product) { seen = append(seen, p) })
	defer cancel()

	s.SetSelected(&p)
	require.NotNil(t, s.Selected())
	require.Equal(t, int64(2), s.Selected().ID)

	s.ClearSelected()
	require.Nil(t, s.Selected())

	require.Len(t, seen, 2, "set and clear both republish")
	require.NotNil(t, seen[0])
	require.Nil(t, seen[1])
}

func TestMutation_PublishesBeforeReturning(t *testing.T) {
	s := newTestStore(t)

	var countAtNotify int
	cancel := s.SubscribeProducts(func(ps []Product) { countAtNotify = len(ps) })
	defer cancel()

	_, err := s.Create(context.Background(), CreateRequest{Name: "Y", IsActive: true})
	require.NoError(t, err)
	require.Equal(t, 4, countAtNotify, "subscriber saw the committed collection before Create returned")
}
