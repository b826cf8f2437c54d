package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

// memStore is an in-memory Writer. calls counts every method hit by name so
// tests can assert how often the cache reached the store.
type memStore struct {
	mu         sync.Mutex
	next       int64
	categories map[int64]Category
	dishes     map[int64]Dish
	flavors    map[int64][]Flavor
	setmeals   map[int64]Setmeal
	components map[int64][]SetmealDish
	calls      map[string]int
	// interleave maps a method name to a func run once right after that
	// method reads, standing in for a concurrent writer.
	interleave map[string]func()
}

func newMemStore() *memStore {
	return &memStore{
		categories: map[int64]Category{},
		dishes:     map[int64]Dish{},
		flavors:    map[int64][]Flavor{},
		setmeals:   map[int64]Setmeal{},
		components: map[int64][]SetmealDish{},
		calls:      map[string]int{},
	}
}

func (m *memStore) hit(name string) { m.calls[name]++ }

func (m *memStore) interleaved(method string) {
	if f := m.interleave[method]; f != nil {
		delete(m.interleave, method)
		f()
	}
}

// fkViolation is what Postgres returns when a category reference breaks.
var fkViolation = &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}

func (m *memStore) referenced(categoryID int64) bool {
	for _, d := range m.dishes {
		if d.CategoryID == categoryID {
			return true
		}
	}
	for _, s := range m.setmeals {
		if s.CategoryID == categoryID {
			return true
		}
	}
	return false
}

func (m *memStore) hasCategory(id int64) bool {
	_, ok := m.categories[id]
	return ok
}

func (m *memStore) id() int64 { m.next++; return m.next }

func (m *memStore) sourceCalls() int {
	return m.calls["DishesByCategory"] + m.calls["FlavorsByDish"] + m.calls["SetmealsByCategory"] + m.calls["SetmealDishes"]
}

func (m *memStore) clone() *memStore {
	c := newMemStore()
	c.next = m.next
	for k, v := range m.categories {
		c.categories[k] = v
	}
	for k, v := range m.dishes {
		c.dishes[k] = v
	}
	for k, v := range m.flavors {
		c.flavors[k] = append([]Flavor{}, v...)
	}
	for k, v := range m.setmeals {
		c.setmeals[k] = v
	}
	for k, v := range m.components {
		c.components[k] = append([]SetmealDish{}, v...)
	}
	return c
}

func (m *memStore) InTx(_ context.Context, fn func(Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.clone()
	if err := fn(m); err != nil {
		m.next, m.categories, m.dishes, m.flavors = snap.next, snap.categories, snap.dishes, snap.flavors
		m.setmeals, m.components = snap.setmeals, snap.components
		return err
	}
	return nil
}

func (m *memStore) DishesByCategory(_ context.Context, categoryID int64) ([]Dish, error) {
	m.hit("DishesByCategory")
	out := []Dish{}
	for _, d := range m.dishes {
		if d.CategoryID == categoryID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FlavorsByDish(_ context.Context, dishID int64) ([]Flavor, error) {
	m.hit("FlavorsByDish")
	return append([]Flavor{}, m.flavors[dishID]...), nil
}

func (m *memStore) SetmealsByCategory(_ context.Context, categoryID int64, status Status) ([]Setmeal, error) {
	m.hit("SetmealsByCategory")
	out := []Setmeal{}
	for _, s := range m.setmeals {
		if s.CategoryID == categoryID && s.Status == status {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) SetmealDishes(_ context.Context, setmealID int64) ([]SetmealDish, error) {
	m.hit("SetmealDishes")
	return append([]SetmealDish{}, m.components[setmealID]...), nil
}

func (m *memStore) CategoryByID(_ context.Context, id int64) (Category, bool, error) {
	c, ok := m.categories[id]
	m.interleaved("CategoryByID")
	return c, ok, nil
}

func (m *memStore) CategoryByName(_ context.Context, name string) (Category, bool, error) {
	for _, c := range m.categories {
		if c.Name == name {
			return c, true, nil
		}
	}
	return Category{}, false, nil
}

func (m *memStore) CategoriesPage(_ context.Context, page, size int) ([]Category, int64, error) {
	all, _ := m.CategoriesByType(context.Background(), 0)
	return window(all, page, size), int64(len(all)), nil
}

func (m *memStore) CategoriesByType(_ context.Context, typ CategoryType) ([]Category, error) {
	out := []Category{}
	for _, c := range m.categories {
		if typ == 0 || c.Type == typ {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CountByCategory(_ context.Context, categoryID int64) (int, int, error) {
	var d, s int
	for _, x := range m.dishes {
		if x.CategoryID == categoryID {
			d++
		}
	}
	for _, x := range m.setmeals {
		if x.CategoryID == categoryID {
			s++
		}
	}
	m.interleaved("CountByCategory")
	return d, s, nil
}

func (m *memStore) DishByID(_ context.Context, id int64) (Dish, bool, error) {
	d, ok := m.dishes[id]
	return d, ok, nil
}

func (m *memStore) DishesByIDs(_ context.Context, ids []int64) ([]Dish, error) {
	out := []Dish{}
	for _, id := range ids {
		if d, ok := m.dishes[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) DishesPage(_ context.Context, name string, page, size int) ([]Dish, int64, error) {
	all := []Dish{}
	for _, d := range m.dishes {
		if name == "" || strings.Contains(strings.ToLower(d.Name), strings.ToLower(name)) {
			all = append(all, d)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return window(all, page, size), int64(len(all)), nil
}

func (m *memStore) SetmealByID(_ context.Context, id int64) (Setmeal, bool, error) {
	s, ok := m.setmeals[id]
	return s, ok, nil
}

func (m *memStore) SetmealsByIDs(_ context.Context, ids []int64) ([]Setmeal, error) {
	out := []Setmeal{}
	for _, id := range ids {
		if s, ok := m.setmeals[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) SetmealsPage(_ context.Context, name string, page, size int) ([]Setmeal, int64, error) {
	all := []Setmeal{}
	for _, s := range m.setmeals {
		if name == "" || strings.Contains(strings.ToLower(s.Name), strings.ToLower(name)) {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return window(all, page, size), int64(len(all)), nil
}

func (m *memStore) InsertCategory(_ context.Context, c Category) (int64, error) {
	c.ID = m.id()
	m.categories[c.ID] = c
	return c.ID, nil
}

func (m *memStore) UpdateCategory(_ context.Context, c Category) error {
	m.categories[c.ID] = c
	return nil
}

func (m *memStore) DeleteCategory(_ context.Context, id int64) error {
	if m.referenced(id) {
		return fkViolation
	}
	delete(m.categories, id)
	return nil
}

func (m *memStore) InsertDish(_ context.Context, d Dish) (int64, error) {
	if !m.hasCategory(d.CategoryID) {
		return 0, fkViolation
	}
	d.ID = m.id()
	m.dishes[d.ID] = d
	return d.ID, nil
}

func (m *memStore) UpdateDish(_ context.Context, d Dish) error {
	if !m.hasCategory(d.CategoryID) {
		return fkViolation
	}
	m.dishes[d.ID] = d
	return nil
}

func (m *memStore) SetDishStatus(_ context.Context, status Status, ids []int64) error {
	for _, id := range ids {
		d := m.dishes[id]
		d.Status = status
		m.dishes[id] = d
	}
	return nil
}

func (m *memStore) DeleteDishes(_ context.Context, ids []int64) error {
	for _, id := range ids {
		delete(m.dishes, id)
	}
	return nil
}

func (m *memStore) ReplaceFlavors(_ context.Context, dishID int64, fs []Flavor) error {
	out := make([]Flavor, 0, len(fs))
	for _, f := range fs {
		f.ID, f.DishID = m.id(), dishID
		out = append(out, f)
	}
	m.flavors[dishID] = out
	return nil
}

func (m *memStore) DeleteFlavors(_ context.Context, dishIDs []int64) error {
	for _, id := range dishIDs {
		delete(m.flavors, id)
	}
	return nil
}

func (m *memStore) InsertSetmeal(_ context.Context, s Setmeal) (int64, error) {
	if !m.hasCategory(s.CategoryID) {
		return 0, fkViolation
	}
	s.ID = m.id()
	m.setmeals[s.ID] = s
	return s.ID, nil
}

func (m *memStore) UpdateSetmeal(_ context.Context, s Setmeal) error {
	if !m.hasCategory(s.CategoryID) {
		return fkViolation
	}
	m.setmeals[s.ID] = s
	return nil
}

func (m *memStore) SetSetmealStatus(_ context.Context, status Status, ids []int64) error {
	for _, id := range ids {
		s := m.setmeals[id]
		s.Status = status
		m.setmeals[id] = s
	}
	return nil
}

func (m *memStore) DeleteSetmeals(_ context.Context, ids []int64) error {
	for _, id := range ids {
		delete(m.setmeals, id)
	}
	return nil
}

func (m *memStore) ReplaceSetmealDishes(_ context.Context, setmealID int64, ds []SetmealDish) error {
	out := make([]SetmealDish, 0, len(ds))
	for _, d := range ds {
		d.ID, d.SetmealID = m.id(), setmealID
		out = append(out, d)
	}
	m.components[setmealID] = out
	return nil
}

func (m *memStore) DeleteSetmealDishes(_ context.Context, setmealIDs []int64) error {
	for _, id := range setmealIDs {
		delete(m.components, id)
	}
	return nil
}

func window[T any](all []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(all) {
		return []T{}
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
