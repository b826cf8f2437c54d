package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/go-takeout/internal/apperr"
	"github.com/ariefcatur/go-takeout/internal/logx"
	"github.com/ariefcatur/go-takeout/internal/paging"
	"github.com/ariefcatur/go-takeout/internal/postgres"
	"github.com/ariefcatur/go-takeout/internal/validate"
)

var (
	ErrCategoryNotEmpty = apperr.New(apperr.KindConflict, "category still has dishes or setmeals")
	ErrComboIsSelling   = apperr.New(apperr.KindConflict, "setmeal is on sale")
	ErrDuplicateName    = apperr.New(apperr.KindConflict, "name already exists")
	ErrCategoryNotFound = apperr.New(apperr.KindNotFound, "category not found")
	ErrDishNotFound     = apperr.New(apperr.KindNotFound, "dish not found")
	ErrSetmealNotFound  = apperr.New(apperr.KindNotFound, "setmeal not found")
	ErrBadStatus        = apperr.New(apperr.KindValidation, "status must be 0 or 1")
	ErrNoIDs            = apperr.New(apperr.KindValidation, "no ids given")
)

type Reader interface {
	Source
	CategoryByID(ctx context.Context, id int64) (Category, bool, error)
	CategoryByName(ctx context.Context, name string) (Category, bool, error)
	CategoriesPage(ctx context.Context, page, size int) ([]Category, int64, error)
	CategoriesByType(ctx context.Context, typ CategoryType) ([]Category, error)
	CountByCategory(ctx context.Context, categoryID int64) (dishes, setmeals int, err error)
	DishByID(ctx context.Context, id int64) (Dish, bool, error)
	DishesByIDs(ctx context.Context, ids []int64) ([]Dish, error)
	DishesPage(ctx context.Context, name string, page, size int) ([]Dish, int64, error)
	SetmealByID(ctx context.Context, id int64) (Setmeal, bool, error)
	SetmealsByIDs(ctx context.Context, ids []int64) ([]Setmeal, error)
	SetmealsPage(ctx context.Context, name string, page, size int) ([]Setmeal, int64, error)
}

type Writer interface {
	Reader
	InsertCategory(ctx context.Context, c Category) (int64, error)
	UpdateCategory(ctx context.Context, c Category) error
	DeleteCategory(ctx context.Context, id int64) error
	InsertDish(ctx context.Context, d Dish) (int64, error)
	UpdateDish(ctx context.Context, d Dish) error
	SetDishStatus(ctx context.Context, status Status, ids []int64) error
	DeleteDishes(ctx context.Context, ids []int64) error
	ReplaceFlavors(ctx context.Context, dishID int64, fs []Flavor) error
	DeleteFlavors(ctx context.Context, dishIDs []int64) error
	InsertSetmeal(ctx context.Context, s Setmeal) (int64, error)
	UpdateSetmeal(ctx context.Context, s Setmeal) error
	SetSetmealStatus(ctx context.Context, status Status, ids []int64) error
	DeleteSetmeals(ctx context.Context, ids []int64) error
	ReplaceSetmealDishes(ctx context.Context, setmealID int64, ds []SetmealDish) error
	DeleteSetmealDishes(ctx context.Context, setmealIDs []int64) error
}

type TxStore interface {
	Writer
	InTx(ctx context.Context, fn func(Writer) error) error
}

// Service is the staff-facing catalog. Every committed write evicts the
// cache entries of the categories it touched.
type Service struct {
	Store TxStore
	Cache *Cache
	Log   *slog.Logger
}

func NewService(store TxStore, cache *Cache, log *slog.Logger) *Service {
	return &Service{Store: store, Cache: cache, Log: logx.OrDiscard(log)}
}

// ---- categories ----

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (int64, error) {
	if err := validate.Struct(in); err != nil {
		return 0, err
	}
	if _, found, err := s.Store.CategoryByName(ctx, in.Name); err != nil {
		return 0, fmt.Errorf("lookup category name: %w", err)
	} else if found {
		return 0, fmt.Errorf("category %q: %w", in.Name, ErrDuplicateName)
	}
	id, err := s.Store.InsertCategory(ctx, Category{Type: in.Type, Name: in.Name, Sort: in.Sort})
	if err != nil {
		return 0, writeConflict(err, "insert category", in.Name)
	}
	return id, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, in CategoryInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	cur, found, err := s.Store.CategoryByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load category %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("category %d: %w", id, ErrCategoryNotFound)
	}
	if other, found, err := s.Store.CategoryByName(ctx, in.Name); err != nil {
		return fmt.Errorf("lookup category name: %w", err)
	} else if found && other.ID != id {
		return fmt.Errorf("category %q: %w", in.Name, ErrDuplicateName)
	}
	cur.Type, cur.Name, cur.Sort = in.Type, in.Name, in.Sort
	if err := s.Store.UpdateCategory(ctx, cur); err != nil {
		return writeConflict(err, "update category", in.Name)
	}
	return nil
}

func (s *Service) PageCategories(ctx context.Context, page, size int) (paging.Page[Category], error) {
	page, size = paging.Normalize(page, size)
	rows, total, err := s.Store.CategoriesPage(ctx, page, size)
	if err != nil {
		return paging.Page[Category]{}, fmt.Errorf("page categories: %w", err)
	}
	return paging.Page[Category]{Records: rows, Total: total, Current: page, Size: size}, nil
}

// ListCategories returns all categories, or those of typ when typ is non-zero.
func (s *Service) ListCategories(ctx context.Context, typ CategoryType) ([]Category, error) {
	out, err := s.Store.CategoriesByType(ctx, typ)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// DeleteCategory refuses while any dish or setmeal still references id.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	err := s.Store.InTx(ctx, func(tx Writer) error {
		if _, found, err := tx.CategoryByID(ctx, id); err != nil {
			return fmt.Errorf("load category %d: %w", id, err)
		} else if !found {
			return fmt.Errorf("category %d: %w", id, ErrCategoryNotFound)
		}
		dishes, setmeals, err := tx.CountByCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("count items of category %d: %w", id, err)
		}
		if dishes > 0 || setmeals > 0 {
			return fmt.Errorf("category %d (%d dishes, %d setmeals): %w", id, dishes, setmeals, ErrCategoryNotEmpty)
		}
		if err := tx.DeleteCategory(ctx, id); err != nil {
			if postgres.IsForeignKeyViolation(err) {
				return fmt.Errorf("category %d: %w", id, ErrCategoryNotEmpty)
			}
			return fmt.Errorf("delete category %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, id)
	s.Log.Info("category deleted", "action", "category_delete", "category_id", id)
	return nil
}

// ---- dishes ----

func (s *Service) CreateDish(ctx context.Context, in DishInput) (int64, error) {
	if err := validate.Struct(in); err != nil {
		return 0, err
	}
	var id int64
	err := s.Store.InTx(ctx, func(tx Writer) error {
		if err := requireCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}
		var err error
		id, err = tx.InsertDish(ctx, in.dish(0))
		if err != nil {
			return writeConflict(err, "insert dish", in.Name)
		}
		if err := tx.ReplaceFlavors(ctx, id, in.flavors(id)); err != nil {
			return fmt.Errorf("insert flavors of dish %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.Cache.Invalidate(ctx, in.CategoryID)
	return id, nil
}

func (s *Service) GetDish(ctx context.Context, id int64) (DishView, error) {
	d, found, err := s.Store.DishByID(ctx, id)
	if err != nil {
		return DishView{}, fmt.Errorf("load dish %d: %w", id, err)
	}
	if !found {
		return DishView{}, fmt.Errorf("dish %d: %w", id, ErrDishNotFound)
	}
	flavors, err := s.Store.FlavorsByDish(ctx, id)
	if err != nil {
		return DishView{}, fmt.Errorf("flavors of dish %d: %w", id, err)
	}
	names := categoryNames{store: s.Store}
	return DishView{Dish: d, Flavors: flavors, CategoryName: names.get(ctx, d.CategoryID)}, nil
}

func (s *Service) PageDishes(ctx context.Context, name string, page, size int) (paging.Page[DishView], error) {
	page, size = paging.Normalize(page, size)
	rows, total, err := s.Store.DishesPage(ctx, name, page, size)
	if err != nil {
		return paging.Page[DishView]{}, fmt.Errorf("page dishes: %w", err)
	}
	names := categoryNames{store: s.Store}
	return paging.Map(paging.Page[Dish]{Records: rows, Total: total, Current: page, Size: size}, func(d Dish) DishView {
		return DishView{Dish: d, CategoryName: names.get(ctx, d.CategoryID)}
	}), nil
}

// UpdateDish rewrites the dish and replaces its flavors. Both the old and the
// new category are evicted when the dish moves.
func (s *Service) UpdateDish(ctx context.Context, id int64, in DishInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	var oldCategory int64
	err := s.Store.InTx(ctx, func(tx Writer) error {
		cur, found, err := tx.DishByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load dish %d: %w", id, err)
		}
		if !found {
			return fmt.Errorf("dish %d: %w", id, ErrDishNotFound)
		}
		oldCategory = cur.CategoryID
		if in.CategoryID != cur.CategoryID {
			if err := requireCategory(ctx, tx, in.CategoryID); err != nil {
				return err
			}
		}
		if err := tx.UpdateDish(ctx, in.dish(id)); err != nil {
			return writeConflict(err, "update dish", in.Name)
		}
		if err := tx.ReplaceFlavors(ctx, id, in.flavors(id)); err != nil {
			return fmt.Errorf("replace flavors of dish %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, oldCategory, in.CategoryID)
	return nil
}

func (s *Service) SetDishStatus(ctx context.Context, status Status, ids ...int64) error {
	if !status.Valid() {
		return ErrBadStatus
	}
	var categories []int64
	err := s.Store.InTx(ctx, func(tx Writer) error {
		dishes, err := loadDishes(ctx, tx, ids)
		if err != nil {
			return err
		}
		categories = dishCategories(dishes)
		if err := tx.SetDishStatus(ctx, status, ids); err != nil {
			return fmt.Errorf("set dish status: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, categories...)
	return nil
}

// DeleteDishes removes the dishes and their flavors.
func (s *Service) DeleteDishes(ctx context.Context, ids ...int64) error {
	var categories []int64
	err := s.Store.InTx(ctx, func(tx Writer) error {
		dishes, err := loadDishes(ctx, tx, ids)
		if err != nil {
			return err
		}
		categories = dishCategories(dishes)
		if err := tx.DeleteFlavors(ctx, ids); err != nil {
			return fmt.Errorf("delete flavors: %w", err)
		}
		if err := tx.DeleteDishes(ctx, ids); err != nil {
			return fmt.Errorf("delete dishes: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, categories...)
	s.Log.Info("dishes deleted", "action", "dish_delete", "ids", ids)
	return nil
}

// ---- setmeals ----

func (s *Service) CreateSetmeal(ctx context.Context, in SetmealInput) (int64, error) {
	if err := validate.Struct(in); err != nil {
		return 0, err
	}
	var id int64
	err := s.Store.InTx(ctx, func(tx Writer) error {
		if err := requireCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}
		var err error
		id, err = tx.InsertSetmeal(ctx, in.setmeal(0))
		if err != nil {
			return writeConflict(err, "insert setmeal", in.Name)
		}
		if err := tx.ReplaceSetmealDishes(ctx, id, in.components(id)); err != nil {
			return fmt.Errorf("insert components of setmeal %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.Cache.Invalidate(ctx, in.CategoryID)
	return id, nil
}

func (s *Service) GetSetmeal(ctx context.Context, id int64) (SetmealView, error) {
	sm, found, err := s.Store.SetmealByID(ctx, id)
	if err != nil {
		return SetmealView{}, fmt.Errorf("load setmeal %d: %w", id, err)
	}
	if !found {
		return SetmealView{}, fmt.Errorf("setmeal %d: %w", id, ErrSetmealNotFound)
	}
	dishes, err := s.Store.SetmealDishes(ctx, id)
	if err != nil {
		return SetmealView{}, fmt.Errorf("components of setmeal %d: %w", id, err)
	}
	names := categoryNames{store: s.Store}
	return SetmealView{Setmeal: sm, Dishes: dishes, CategoryName: names.get(ctx, sm.CategoryID)}, nil
}

func (s *Service) PageSetmeals(ctx context.Context, name string, page, size int) (paging.Page[SetmealView], error) {
	page, size = paging.Normalize(page, size)
	rows, total, err := s.Store.SetmealsPage(ctx, name, page, size)
	if err != nil {
		return paging.Page[SetmealView]{}, fmt.Errorf("page setmeals: %w", err)
	}
	names := categoryNames{store: s.Store}
	out := paging.Page[SetmealView]{Records: make([]SetmealView, 0, len(rows)), Total: total, Current: page, Size: size}
	for _, sm := range rows {
		dishes, err := s.Store.SetmealDishes(ctx, sm.ID)
		if err != nil {
			return paging.Page[SetmealView]{}, fmt.Errorf("components of setmeal %d: %w", sm.ID, err)
		}
		out.Records = append(out.Records, SetmealView{Setmeal: sm, Dishes: dishes, CategoryName: names.get(ctx, sm.CategoryID)})
	}
	return out, nil
}

// UpdateSetmeal rewrites the setmeal and replaces its component rows.
func (s *Service) UpdateSetmeal(ctx context.Context, id int64, in SetmealInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	var oldCategory int64
	err := s.Store.InTx(ctx, func(tx Writer) error {
		cur, found, err := tx.SetmealByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load setmeal %d: %w", id, err)
		}
		if !found {
			return fmt.Errorf("setmeal %d: %w", id, ErrSetmealNotFound)
		}
		oldCategory = cur.CategoryID
		if in.CategoryID != cur.CategoryID {
			if err := requireCategory(ctx, tx, in.CategoryID); err != nil {
				return err
			}
		}
		if err := tx.UpdateSetmeal(ctx, in.setmeal(id)); err != nil {
			return writeConflict(err, "update setmeal", in.Name)
		}
		if err := tx.ReplaceSetmealDishes(ctx, id, in.components(id)); err != nil {
			return fmt.Errorf("replace components of setmeal %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, oldCategory, in.CategoryID)
	return nil
}

func (s *Service) SetSetmealStatus(ctx context.Context, status Status, ids ...int64) error {
	if !status.Valid() {
		return ErrBadStatus
	}
	var categories []int64
	err := s.Store.InTx(ctx, func(tx Writer) error {
		setmeals, err := loadSetmeals(ctx, tx, ids)
		if err != nil {
			return err
		}
		categories = setmealCategories(setmeals)
		if err := tx.SetSetmealStatus(ctx, status, ids); err != nil {
			return fmt.Errorf("set setmeal status: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, categories...)
	return nil
}

// DeleteSetmeals deletes the setmeals and their component rows as one unit.
// If any of them is on sale nothing is deleted.
func (s *Service) DeleteSetmeals(ctx context.Context, ids ...int64) error {
	var categories []int64
	err := s.Store.InTx(ctx, func(tx Writer) error {
		setmeals, err := loadSetmeals(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, sm := range setmeals {
			if sm.Status == StatusOnSale {
				return fmt.Errorf("setmeal %d %q: %w", sm.ID, sm.Name, ErrComboIsSelling)
			}
		}
		categories = setmealCategories(setmeals)
		if err := tx.DeleteSetmealDishes(ctx, ids); err != nil {
			return fmt.Errorf("delete setmeal components: %w", err)
		}
		if err := tx.DeleteSetmeals(ctx, ids); err != nil {
			return fmt.Errorf("delete setmeals: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, categories...)
	s.Log.Info("setmeals deleted", "action", "setmeal_delete", "ids", ids)
	return nil
}

// ---- helpers ----

func requireCategory(ctx context.Context, r Reader, id int64) error {
	_, found, err := r.CategoryByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load category %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("category %d: %w", id, ErrCategoryNotFound)
	}
	return nil
}

func loadDishes(ctx context.Context, r Reader, ids []int64) ([]Dish, error) {
	ids = uniq(ids)
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}
	dishes, err := r.DishesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load dishes: %w", err)
	}
	if missing := missingIDs(ids, dishes, func(d Dish) int64 { return d.ID }); len(missing) > 0 {
		return nil, fmt.Errorf("dishes %v: %w", missing, ErrDishNotFound)
	}
	return dishes, nil
}

func loadSetmeals(ctx context.Context, r Reader, ids []int64) ([]Setmeal, error) {
	ids = uniq(ids)
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}
	setmeals, err := r.SetmealsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load setmeals: %w", err)
	}
	if missing := missingIDs(ids, setmeals, func(s Setmeal) int64 { return s.ID }); len(missing) > 0 {
		return nil, fmt.Errorf("setmeals %v: %w", missing, ErrSetmealNotFound)
	}
	return setmeals, nil
}

func dishCategories(ds []Dish) []int64 {
	out := make([]int64, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.CategoryID)
	}
	return out
}

func setmealCategories(ss []Setmeal) []int64 {
	out := make([]int64, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.CategoryID)
	}
	return out
}

func uniq(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func missingIDs[T any](want []int64, got []T, id func(T) int64) []int64 {
	have := make(map[int64]bool, len(got))
	for _, g := range got {
		have[id(g)] = true
	}
	var missing []int64
	for _, w := range want {
		if !have[w] {
			missing = append(missing, w)
		}
	}
	return missing
}

// writeConflict maps constraint failures of a row write. A foreign key
// failure means the category went away after it was checked.
func writeConflict(err error, op, name string) error {
	switch {
	case postgres.IsUniqueViolation(err):
		return fmt.Errorf("%s %q: %w", op, name, ErrDuplicateName)
	case postgres.IsForeignKeyViolation(err):
		return fmt.Errorf("%s %q: %w", op, name, ErrCategoryNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// categoryNames memoises category lookups for one listing.
type categoryNames struct {
	store Reader
	names map[int64]string
}

func (c *categoryNames) get(ctx context.Context, id int64) string {
	if c.names == nil {
		c.names = map[int64]string{}
	}
	if n, ok := c.names[id]; ok {
		return n
	}
	cat, _, err := c.store.CategoryByID(ctx, id)
	if err != nil {
		return ""
	}
	c.names[id] = cat.Name
	return cat.Name
}
