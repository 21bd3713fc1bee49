package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"buzzchat/internal/entities"
	"buzzchat/internal/interfaces"
)

// AccountRepository owns the account map and the active account pointer of a
// namespace. Every write is a read-modify-write of the whole map; concurrent
// writers race and the last one wins.
type AccountRepository struct {
	kv interfaces.KeyValueStore
	ns string
}

type storedAccount struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CreatedAt int64           `json:"createdAt"`
	Settings  json.RawMessage `json:"settings,omitempty"`
}

func NewAccountRepository(kv interfaces.KeyValueStore, ns string) *AccountRepository {
	return &AccountRepository{kv: kv, ns: ns}
}

// List returns the account map; a missing map is empty, not an error.
func (r *AccountRepository) List(ctx context.Context) (map[string]*entities.Account, error) {
	var stored map[string]storedAccount
	err := getJSON(ctx, r.kv, r.ns, KeyAccounts, &stored)
	if errors.Is(err, ErrNotFound) {
		return map[string]*entities.Account{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	out := make(map[string]*entities.Account, len(stored))
	for id, sa := range stored {
		acc := &entities.Account{ID: sa.ID, Name: sa.Name, CreatedAt: sa.CreatedAt}
		if acc.ID == "" {
			acc.ID = id
		}
		if len(sa.Settings) > 0 && string(sa.Settings) != "null" {
			s, err := entities.SettingsFromJSON(sa.Settings)
			if err != nil {
				return nil, fmt.Errorf("account %s: %w", id, err)
			}
			acc.Settings = s
		}
		out[id] = acc
	}
	return out, nil
}

// Sorted returns accounts ordered by creation time, default first on ties
func Sorted(accounts map[string]*entities.Account) []*entities.Account {
	out := make([]*entities.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID == entities.DefaultAccountID
	})
	return out
}

// SaveAll replaces the account map
func (r *AccountRepository) SaveAll(ctx context.Context, accounts map[string]*entities.Account) error {
	if err := setJSON(ctx, r.kv, r.ns, KeyAccounts, accounts); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	return nil
}

// Get returns one account or ErrNotFound
func (r *AccountRepository) Get(ctx context.Context, id string) (*entities.Account, error) {
	accounts, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	acc, ok := accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return acc, nil
}

// Update applies fn to one account and writes the map back
func (r *AccountRepository) Update(ctx context.Context, id string, fn func(*entities.Account) error) error {
	accounts, err := r.List(ctx)
	if err != nil {
		return err
	}
	acc, ok := accounts[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(acc); err != nil {
		return err
	}
	return r.SaveAll(ctx, accounts)
}

// ActiveID returns the active account pointer, "default" when unset
func (r *AccountRepository) ActiveID(ctx context.Context) (string, error) {
	var id string
	err := getJSON(ctx, r.kv, r.ns, KeyActiveAccount, &id)
	if errors.Is(err, ErrNotFound) || (err == nil && id == "") {
		return entities.DefaultAccountID, nil
	}
	if err != nil {
		return "", fmt.Errorf("load active account: %w", err)
	}
	return id, nil
}

func (r *AccountRepository) SetActiveID(ctx context.Context, id string) error {
	if err := setJSON(ctx, r.kv, r.ns, KeyActiveAccount, id); err != nil {
		return fmt.Errorf("save active account: %w", err)
	}
	return nil
}

// Active returns the active account, or ErrNotFound if the map is empty or
// the pointer dangles.
func (r *AccountRepository) Active(ctx context.Context) (*entities.Account, error) {
	id, err := r.ActiveID(ctx)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}
