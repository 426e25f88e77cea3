package store

import (
	"context"

	"ustbills/internal/domain"
)

// Users is the identity-keyed user repository. At most one record exists per
// principal; Insert enforces it.
type Users struct {
	t table[domain.User]
}

func newUsers(db *DB) (*Users, error) {
	t, err := newTable[domain.User](db, regionUsers)
	if err != nil {
		return nil, err
	}
	return &Users{t: t}, nil
}

func (u *Users) Insert(_ context.Context, user domain.User) error {
	return u.t.insert([]byte(user.Principal), user)
}

func (u *Users) Get(_ context.Context, p domain.Principal) (domain.User, error) {
	return u.t.get([]byte(p))
}

func (u *Users) Update(_ context.Context, user domain.User) error {
	return u.t.update([]byte(user.Principal), user)
}

// Apply mutates the stored user atomically: fn runs against the freshest
// record inside the write transaction, so a balance or totals delta applied
// here cannot erase a concurrent handler's committed update. Returns the
// record as written.
func (u *Users) Apply(_ context.Context, p domain.Principal, fn func(*domain.User) error) (domain.User, error) {
	return u.t.modify([]byte(p), fn)
}

func (u *Users) Remove(_ context.Context, p domain.Principal) (domain.User, bool, error) {
	return u.t.remove([]byte(p))
}

func (u *Users) All(_ context.Context) ([]domain.User, error) {
	return u.t.filter(nil)
}

func (u *Users) Count() (uint64, error) { return u.t.count() }
