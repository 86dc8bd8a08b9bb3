package memstore

import (
	"context"

	"github.com/MikeMC777/storefront/internal/user"
)

type Users struct{ s *Store }

var (
	_ user.Repository        = (*Users)(nil)
	_ user.AddressRepository = (*Users)(nil)
)

func (r *Users) Create(ctx context.Context, u *user.User) error {
	defer r.s.wlock(ctx)()
	st := r.s.st
	for _, existing := range st.users {
		if existing.Username == u.Username {
			return user.ErrAlreadyExist
		}
	}
	u.ID = st.next("users")
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt
	st.users[u.ID] = *u
	return nil
}

func (r *Users) GetByID(ctx context.Context, id int64) (*user.User, error) {
	defer r.s.rlock(ctx)()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (r *Users) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	defer r.s.rlock(ctx)()
	for _, u := range r.s.st.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *Users) UpdateProfile(ctx context.Context, u *user.User) error {
	defer r.s.wlock(ctx)()
	cur, ok := r.s.st.users[u.ID]
	if !ok {
		return user.ErrNotFound
	}
	cur.Email, cur.FirstName, cur.LastName = u.Email, u.FirstName, u.LastName
	cur.Phone, cur.Age = u.Phone, u.Age
	cur.UpdatedAt = r.s.now()
	u.UpdatedAt = cur.UpdatedAt
	r.s.st.users[u.ID] = cur
	return nil
}

func (r *Users) UpdateRole(ctx context.Context, id int64, role user.Role) error {
	defer r.s.wlock(ctx)()
	cur, ok := r.s.st.users[id]
	if !ok {
		return user.ErrNotFound
	}
	cur.Role = role
	cur.UpdatedAt = r.s.now()
	r.s.st.users[id] = cur
	return nil
}

func (r *Users) SetStaff(ctx context.Context, id int64, staff bool) error {
	defer r.s.wlock(ctx)()
	cur, ok := r.s.st.users[id]
	if !ok {
		return user.ErrNotFound
	}
	cur.IsStaff = staff
	r.s.st.users[id] = cur
	return nil
}

func (r *Users) List(ctx context.Context, limit, offset int) ([]user.User, error) {
	defer r.s.rlock(ctx)()
	var out []user.User
	for _, id := range sortedKeys(r.s.st.users) {
		out = append(out, r.s.st.users[id])
	}
	return page(out, limit, offset), nil
}

func (r *Users) Count(ctx context.Context) (int64, error) {
	defer r.s.rlock(ctx)()
	return int64(len(r.s.st.users)), nil
}

func (r *Users) UpsertAddress(ctx context.Context, a *user.Address) error {
	defer r.s.wlock(ctx)()
	if _, ok := r.s.st.users[a.UserID]; !ok {
		return user.ErrNotFound
	}
	a.UpdatedAt = r.s.now()
	r.s.st.addresses[a.UserID] = *a
	return nil
}

func (r *Users) GetAddress(ctx context.Context, userID int64) (*user.Address, error) {
	defer r.s.rlock(ctx)()
	a, ok := r.s.st.addresses[userID]
	if !ok {
		return nil, user.ErrAddressNotFound
	}
	return &a, nil
}

func page[T any](in []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
