package address

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/go-takeout/internal/apperr"
	"github.com/ariefcatur/go-takeout/internal/logx"
	"github.com/ariefcatur/go-takeout/internal/validate"
)

var (
	ErrNotFound  = apperr.New(apperr.KindNotFound, "address not found")
	ErrNotOwner  = apperr.New(apperr.KindForbidden, "address belongs to another user")
	ErrNoDefault = apperr.New(apperr.KindNotFound, "no default address")
)

type EntryStore interface {
	ByID(ctx context.Context, id int64) (Entry, bool, error)
	ListByUser(ctx context.Context, userID int64) ([]Entry, error)
	Insert(ctx context.Context, e Entry) (int64, error)
	Update(ctx context.Context, e Entry) error
	Delete(ctx context.Context, id int64) error
	ClearDefault(ctx context.Context, userID int64) error
	MarkDefault(ctx context.Context, userID, id int64) (bool, error)
}

type TxStore interface {
	EntryStore
	InTx(ctx context.Context, fn func(EntryStore) error) error
}

type Service struct {
	Store TxStore
	Log   *slog.Logger
}

func NewService(store TxStore, log *slog.Logger) *Service {
	return &Service{Store: store, Log: logx.OrDiscard(log)}
}

// Owned loads id and checks it belongs to userID.
func Owned(ctx context.Context, s EntryStore, userID, id int64) (Entry, error) {
	e, found, err := s.ByID(ctx, id)
	if err != nil {
		return Entry{}, fmt.Errorf("load address %d: %w", id, err)
	}
	if !found {
		return Entry{}, fmt.Errorf("address %d: %w", id, ErrNotFound)
	}
	if e.UserID != userID {
		return Entry{}, fmt.Errorf("address %d: %w", id, ErrNotOwner)
	}
	return e, nil
}

func (s *Service) Create(ctx context.Context, userID int64, in Input) (int64, error) {
	if err := validate.Struct(in); err != nil {
		return 0, err
	}
	e := Entry{UserID: userID}
	in.apply(&e)
	id, err := s.Store.Insert(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("insert address: %w", err)
	}
	return id, nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]Entry, error) {
	out, err := s.Store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, userID, id int64) (Entry, error) {
	return Owned(ctx, s.Store, userID, id)
}

func (s *Service) Update(ctx context.Context, userID, id int64, in Input) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	e, err := Owned(ctx, s.Store, userID, id)
	if err != nil {
		return err
	}
	in.apply(&e)
	if err := s.Store.Update(ctx, e); err != nil {
		return fmt.Errorf("update address %d: %w", id, err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if _, err := Owned(ctx, s.Store, userID, id); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete address %d: %w", id, err)
	}
	return nil
}

func (s *Service) Default(ctx context.Context, userID int64) (Entry, error) {
	entries, err := s.List(ctx, userID)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.IsDefault {
			return e, nil
		}
	}
	return Entry{}, ErrNoDefault
}

// SetDefault clears every default flag of the user and sets the one on id,
// both in one transaction, so the user never ends with zero or several.
func (s *Service) SetDefault(ctx context.Context, userID, id int64) error {
	err := s.Store.InTx(ctx, func(tx EntryStore) error {
		if _, err := Owned(ctx, tx, userID, id); err != nil {
			return err
		}
		if err := tx.ClearDefault(ctx, userID); err != nil {
			return fmt.Errorf("clear default: %w", err)
		}
		ok, err := tx.MarkDefault(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("mark default: %w", err)
		}
		if !ok {
			return fmt.Errorf("address %d: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Log.Info("default address set", "action", "address_default", "user_id", userID, "address_id", id)
	return nil
}
