package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"buzzchat/internal/entities"
	"buzzchat/internal/interfaces"
)

var ErrUserExists = errors.New("username already exists")

// UserRepository keeps popup operators in the system namespace, one entry
// per lowercased username. Create relies on the store's insert-if-absent,
// so two registrations of the same name cannot both succeed.
type UserRepository struct {
	kv interfaces.KeyValueStore
	// serializes read-modify-write of a single user entry
	mu sync.Mutex
}

type storedUser struct {
	entities.User
	Hash string `json:"password_hash"`
}

func NewUserRepository(kv interfaces.KeyValueStore) *UserRepository {
	return &UserRepository{kv: kv}
}

func userKey(username string) string {
	return PrefixUser + strings.ToLower(username)
}

func (r *UserRepository) get(ctx context.Context, key string) (*storedUser, error) {
	var su storedUser
	if err := getJSON(ctx, r.kv, SystemNamespace, key, &su); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &su, nil
}

func (r *UserRepository) all(ctx context.Context) (map[string]*storedUser, error) {
	keys, err := keysWithPrefix(ctx, r.kv, SystemNamespace, PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make(map[string]*storedUser, len(keys))
	for _, k := range keys {
		su, err := r.get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			// removed between listing and reading
			continue
		}
		if err != nil {
			return nil, err
		}
		out[k] = su
	}
	return out, nil
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	created, err := insertJSON(ctx, r.kv, SystemNamespace, userKey(user.Username), storedUser{User: *user, Hash: user.PasswordHash})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if !created {
		return ErrUserExists
	}
	return nil
}

// GetByUsername returns nil, nil when the user does not exist
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	su, err := r.get(ctx, userKey(username))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u := su.User
	u.PasswordHash = su.Hash
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	users, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	for _, su := range users {
		if su.ID == id {
			u := su.User
			u.PasswordHash = su.Hash
			return &u, nil
		}
	}
	return nil, nil
}

// GetAllUsers lists users by username, hashes stripped
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]entities.User, error) {
	users, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entities.User, 0, len(users))
	for _, su := range users {
		out = append(out, su.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.all(ctx)
	if err != nil {
		return err
	}
	for key, su := range users {
		if su.ID == id {
			su.IsActive = active
			return setJSON(ctx, r.kv, SystemNamespace, key, su)
		}
	}
	return ErrNotFound
}
