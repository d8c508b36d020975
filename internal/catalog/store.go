// Package catalog owns the product collection of the admin console: the
// in-memory snapshot every screen renders from, the current selection, the
// loading flag, and the CRUD operations that are the only way to mutate any
// of it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"CatalogConsole/pkg/state"
)

var ErrNotFound = errors.New("product not found")

// Backend is the persistence seam at the store's remote-call points. A nil
// backend runs the store in mock mode, where the seeded in-memory collection
// is the only source of truth and every call succeeds locally.
type Backend interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, p Product) error
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id int64) error
}

type Options struct {
	Backend Backend
	Log     *zap.Logger
}

// Store is the single writer of catalog state. Mutations are serialized by
// mu; each one commits the new snapshot and publishes it before the
// operation returns, so subscribers observe mutations in commit order.
type Store struct {
	backend Backend
	log     *zap.Logger

	mu     sync.Mutex
	nextID int64

	products *state.Value[[]Product]
	total    *state.Value[int]
	selected *state.Value[int64] // product id, 0 = none
	loading  *state.Value[bool]
}

func NewStore(opts Options) *Store {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		backend:  opts.Backend,
		log:      log,
		nextID:   1,
		products: state.NewValue([]Product(nil)),
		total:    state.NewValue(0),
		selected: state.NewValue[int64](0),
		loading:  state.NewValue(false),
	}
	if s.backend == nil {
		s.seed()
	}
	return s
}

// List returns the current full snapshot. Page and pageSize are echoed back
// without slicing, and search/category are accepted but ignored; filtered
// reads go through Search and ByCategory. This mirrors the shipped console
// rather than silently adding real pagination.
func (s *Store) List(ctx context.Context, page, pageSize int, search, category string) (Page, error) {
	s.loading.Set(true)
	defer s.loading.Set(false)

	if s.backend != nil {
		items, err := s.backend.List(ctx)
		if err != nil {
			return Page{}, err
		}
		s.mu.Lock()
		s.publishLocked(items)
		s.mu.Unlock()
	}

	_ = search
	_ = category
	return Page{
		Items:      s.products.Get(),
		TotalCount: s.total.Get(),
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// GetByID also sets the selection to the found product.
func (s *Store) GetByID(ctx context.Context, id int64) (Product, error) {
	s.loading.Set(true)
	defer s.loading.Set(false)

	if s.backend != nil {
		p, err := s.backend.Get(ctx, id)
		if err != nil {
			return Product{}, err
		}
		s.mu.Lock()
		s.mergeIntoSnapshotLocked(p)
		s.mu.Unlock()
		s.selected.Set(p.ID)
		return p, nil
	}

	p, ok := s.find(id)
	if !ok {
		return Product{}, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	s.selected.Set(p.ID)
	return p, nil
}

// Create assigns a fresh id, fresh color ids and creation timestamps, then
// appends the product to the collection.
func (s *Store) Create(ctx context.Context, req CreateRequest) (Product, error) {
	s.loading.Set(true)
	defer s.loading.Set(false)

	s.mu.Lock()
	now := time.Now().UTC()
	p := Product{
		ID:          s.nextIDLocked(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, c := range req.Colors {
		c.ID = s.nextIDLocked()
		p.Colors = append(p.Colors, c)
	}
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.Create(ctx, p); err != nil {
			return Product{}, err
		}
	}

	s.mu.Lock()
	s.publishLocked(append(slices.Clone(s.products.Get()), p))
	s.mu.Unlock()

	s.log.Info("product created", zap.Int64("id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// Update merges req over the existing record: set fields overwrite, nil
// fields are retained, a supplied color at a position that already existed
// keeps that position's id and positions beyond get fresh ids. ID and
// CreatedAt never change; UpdatedAt is stamped. A selected product that was
// updated is republished.
func (s *Store) Update(ctx context.Context, req UpdateRequest) (Product, error) {
	s.loading.Set(true)
	defer s.loading.Set(false)

	s.mu.Lock()
	cur := s.products.Get()
	idx := slices.IndexFunc(cur, func(p Product) bool { return p.ID == req.ID })
	if idx < 0 {
		s.mu.Unlock()
		return Product{}, fmt.Errorf("%w: id=%d", ErrNotFound, req.ID)
	}
	merged := s.mergeLocked(cur[idx], req)
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.Update(ctx, merged); err != nil {
			return Product{}, err
		}
	}

	s.mu.Lock()
	next := slices.Clone(s.products.Get())
	// Re-locate in case the snapshot moved while the backend call ran.
	if i := slices.IndexFunc(next, func(p Product) bool { return p.ID == merged.ID }); i >= 0 {
		next[i] = merged
	}
	s.publishLocked(next)
	s.mu.Unlock()

	if s.selected.Get() == merged.ID {
		s.selected.Set(merged.ID)
	}

	s.log.Info("product updated", zap.Int64("id", merged.ID))
	return merged, nil
}

// Delete removes the product and clears a selection that pointed at it.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.loading.Set(true)
	defer s.loading.Set(false)

	s.mu.Lock()
	cur := s.products.Get()
	idx := slices.IndexFunc(cur, func(p Product) bool { return p.ID == id })
	s.mu.Unlock()
	if idx < 0 {
		return fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}

	if s.backend != nil {
		if err := s.backend.Delete(ctx, id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	next := slices.DeleteFunc(slices.Clone(s.products.Get()), func(p Product) bool { return p.ID == id })
	s.publishLocked(next)
	s.mu.Unlock()

	if s.selected.Get() == id {
		s.selected.Set(0)
	}

	s.log.Info("product deleted", zap.Int64("id", id))
	return nil
}

// SetSelected designates p as the currently viewed product; nil clears.
// Always succeeds, always republishes.
func (s *Store) SetSelected(p *Product) {
	if p == nil {
		s.selected.Set(0)
		return
	}
	s.selected.Set(p.ID)
}

func (s *Store) ClearSelected() { s.SetSelected(nil) }

// Selected resolves the selection against the living collection on every
// read, so a deleted product naturally yields no selection.
func (s *Store) Selected() *Product {
	id := s.selected.Get()
	if id == 0 {
		return nil
	}
	p, ok := s.find(id)
	if !ok {
		return nil
	}
	return &p
}

// SubscribeSelected delivers the resolved product (nil when cleared) on
// every selection change.
func (s *Store) SubscribeSelected(fn func(*Product)) (cancel func()) {
	return s.selected.Subscribe(func(id int64) {
		if id == 0 {
			fn(nil)
			return
		}
		if p, ok := s.find(id); ok {
			fn(&p)
		} else {
			fn(nil)
		}
	})
}

// ByCategory returns products whose category contains the query,
// case-insensitively. Pure read: no loading or selection change.
func (s *Store) ByCategory(category string) []Product {
	q := strings.ToLower(category)
	var out []Product
	for _, p := range s.products.Get() {
		if strings.Contains(strings.ToLower(p.Category), q) && p.Category != "" {
			out = append(out, p)
		}
	}
	return out
}

// Search matches the query case-insensitively against name, description and
// category; any hit qualifies. A blank query returns the full collection.
func (s *Store) Search(query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	cur := s.products.Get()
	if q == "" {
		return slices.Clone(cur)
	}

	var out []Product
	for _, p := range cur {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Category), q) {
			out = append(out, p)
		}
	}
	return out
}

// Stats derives the dashboard numbers from the current snapshot.
func (s *Store) Stats() Stats {
	cur := s.products.Get()
	st := Stats{TotalProducts: len(cur)}
	cats := make(map[string]struct{})
	for _, p := range cur {
		if p.IsActive {
			st.Active++
		}
		if p.LowStock() {
			st.LowStock++
		}
		if p.Category != "" {
			cats[p.Category] = struct{}{}
		}
	}
	st.Categories = len(cats)
	return st
}

func (s *Store) Ping(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Ping(ctx)
}

func (s *Store) Products() []Product { return s.products.Get() }

func (s *Store) TotalCount() int { return s.total.Get() }

func (s *Store) SubscribeProducts(fn func([]Product)) (cancel func()) {
	return s.products.Subscribe(fn)
}

func (s *Store) Loading() bool { return s.loading.Get() }

func (s *Store) SubscribeLoading(fn func(bool)) (cancel func()) {
	return s.loading.Subscribe(fn)
}

func (s *Store) find(id int64) (Product, bool) {
	for _, p := range s.products.Get() {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// publishLocked commits the collection and the derived total count, and keeps
// the id sequence ahead of anything a backend handed us.
func (s *Store) publishLocked(items []Product) {
	for _, p := range items {
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
		for _, c := range p.Colors {
			if c.ID >= s.nextID {
				s.nextID = c.ID + 1
			}
		}
	}
	s.products.Set(items)
	s.total.Set(len(items))
}

func (s *Store) mergeIntoSnapshotLocked(p Product) {
	next := slices.Clone(s.products.Get())
	if i := slices.IndexFunc(next, func(q Product) bool { return q.ID == p.ID }); i >= 0 {
		next[i] = p
	} else {
		next = append(next, p)
	}
	s.publishLocked(next)
}

func (s *Store) mergeLocked(existing Product, req UpdateRequest) Product {
	out := existing
	if req.Name != nil {
		out.Name = *req.Name
	}
	if req.Description != nil {
		out.Description = *req.Description
	}
	if req.Price != nil {
		out.Price = *req.Price
	}
	if req.Category != nil {
		out.Category = *req.Category
	}
	if req.Stock != nil {
		out.Stock = *req.Stock
	}
	if req.ImageURL != nil {
		out.ImageURL = *req.ImageURL
	}
	if req.IsActive != nil {
		out.IsActive = *req.IsActive
	}
	if req.Colors != nil {
		colors := make([]ProductColor, 0, len(req.Colors))
		for i, c := range req.Colors {
			if i < len(existing.Colors) && existing.Colors[i].ID != 0 {
				c.ID = existing.Colors[i].ID
			} else {
				c.ID = s.nextIDLocked()
			}
			colors = append(colors, c)
		}
		out.Colors = colors
	}
	out.UpdatedAt = time.Now().UTC()
	return out
}
