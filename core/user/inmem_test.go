package user

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/trezcool/shule/core"
)

// memRepository is an in-memory Repository for service tests.
type memRepository struct {
	mu    sync.RWMutex
	pk    int
	table map[string]*User
}

var _ Repository = (*memRepository)(nil)

func newMemRepository() *memRepository {
	return &memRepository{table: make(map[string]*User)}
}

func (repo *memRepository) all() []User {
	users := make([]User, 0, len(repo.table))
	for _, u := range repo.table {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users
}

func (repo *memRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers []User, _ ...core.DBExecutor) error {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, usr := range repo.all() {
		if isExcluded(usr, excludedUsers) {
			continue
		}
		if username != "" && usr.Username == username {
			return ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return ErrEmailExists
		}
	}
	return nil
}

func (repo *memRepository) CreateUser(ctx context.Context, usr User, _ ...core.DBExecutor) (User, error) {
	if err := repo.CheckUsernameUniqueness(ctx, usr.Username, usr.Email, nil); err != nil {
		return User{}, err
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.pk++
	usr.ID = strconv.Itoa(repo.pk)
	repo.table[usr.ID] = &usr
	return usr, nil
}

func (repo *memRepository) QueryUsers(_ context.Context, filter *QueryFilter, _ core.ListOptions, _ ...core.DBExecutor) ([]User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	users := make([]User, 0)
	for _, usr := range repo.all() {
		if filter != nil {
			if filter.SchoolID != "" && usr.SchoolID != filter.SchoolID {
				continue
			}
			if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
				continue
			}
			if filter.Roles != nil && !usr.HasAnyRole(filter.Roles...) {
				continue
			}
			if s := strings.ToLower(filter.Search); s != "" &&
				!strings.Contains(strings.ToLower(usr.Name), s) &&
				!strings.Contains(usr.Username, s) &&
				!strings.Contains(usr.Email, s) {
				continue
			}
		}
		users = append(users, usr)
	}
	return users, nil
}

func (repo *memRepository) GetUser(_ context.Context, filter GetFilter, _ ...core.DBExecutor) (User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, usr := range repo.all() {
		if filter.SchoolID != "" && usr.SchoolID != filter.SchoolID {
			continue
		}
		switch {
		case filter.ID != "" && usr.ID == filter.ID,
			filter.Username != "" && usr.Username == filter.Username,
			filter.Email != "" && usr.Email == filter.Email,
			filter.UsernameOrEmail != "" && (usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail):
			return usr, nil
		}
	}
	return User{}, ErrNotFound
}

func (repo *memRepository) UpdateUser(_ context.Context, usr User, _ ...core.DBExecutor) (User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.table[usr.ID]; !ok {
		return User{}, ErrNotFound
	}
	repo.table[usr.ID] = &usr
	return usr, nil
}

func (repo *memRepository) DeleteUsers(_ context.Context, schoolID, _ string, ids []string, _ ...core.DBExecutor) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, id := range ids {
		if usr, ok := repo.table[id]; ok && (schoolID == "" || usr.SchoolID == schoolID) {
			delete(repo.table, id)
		}
	}
	return nil
}

func isExcluded(usr User, excludedUsers []User) bool {
	for _, excl := range excludedUsers {
		if excl.ID == usr.ID {
			return true
		}
	}
	return false
}
