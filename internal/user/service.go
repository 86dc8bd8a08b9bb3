// Package user handles registration, authentication, profiles, shipping
// addresses and back-office role management.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MikeMC777/storefront/internal/activity"
	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/db"
	"github.com/MikeMC777/storefront/internal/notify"
)

var (
	ErrInvalidCredentials = apperr.Unauthorized("invalid username or password")
	ErrPasswordMismatch   = apperr.InvalidFields("registration failed", map[string]string{"confirm_password": "the two passwords must match"})
	ErrOwnerOnly          = apperr.Forbidden("only an owner can grant or revoke the owner role")
)

type Service struct {
	repo      Repository
	addresses AddressRepository
	tx        db.TxManager
	audit     activity.Recorder
	feed      notify.Publisher
}

func NewService(repo Repository, addresses AddressRepository, tx db.TxManager, audit activity.Recorder, feed notify.Publisher) *Service {
	if feed == nil {
		feed = notify.Discard{}
	}
	return &Service{repo: repo, addresses: addresses, tx: tx, audit: audit, feed: feed}
}

// Register creates a customer account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	username := strings.TrimSpace(in.Username)
	fields := map[string]string{}
	if username == "" {
		fields["username"] = "username is required"
	} else if len(username) > 150 {
		fields["username"] = "username must be at most 150 characters"
	}
	if in.Password == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		return nil, apperr.InvalidFields("registration failed", fields)
	}
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, usernameTaken()
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash error: %w", err)
	}
	u := &User{
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         RoleCustomer,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrAlreadyExist) {
			return nil, usernameTaken()
		}
		return nil, fmt.Errorf("create error: %w", err)
	}
	return u, nil
}

func usernameTaken() error {
	return apperr.InvalidFields("registration failed", map[string]string{"username": ErrAlreadyExist.Message})
}

// Authenticate checks the credentials. Unknown user and wrong password are
// reported the same way.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth error: %w", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *Service) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		if p := strings.TrimSpace(*in.Phone); p != "" {
			u.Phone = &p
		} else {
			u.Phone = nil
		}
	}
	if in.Age != nil {
		if *in.Age < 0 {
			return nil, apperr.InvalidFields("invalid profile", map[string]string{"age": "age must be non-negative"})
		}
		u.Age = in.Age
	}
	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Address returns the saved shipping address, or ErrAddressNotFound.
func (s *Service) Address(ctx context.Context, userID int64) (*Address, error) {
	return s.addresses.GetAddress(ctx, userID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	out, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []User{}
	}
	return out, nil
}

// SetRole changes targetID's role on behalf of actor. Only owners may touch the
// owner role, in either direction. Demoting to customer also clears is_staff.
func (s *Service) SetRole(ctx context.Context, actor *User, targetID int64, role Role) (*User, error) {
	if !role.Valid() {
		return nil, apperr.InvalidFields("invalid role", map[string]string{"role": "role must be customer, admin or owner"})
	}
	if actor == nil || !actor.IsAdmin() {
		return nil, apperr.Forbidden("admin access required")
	}

	var (
		target *User
		entry  *activity.Entry
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if target, err = s.repo.GetByID(ctx, targetID); err != nil {
			return err
		}
		if (role == RoleOwner || target.Role == RoleOwner) && actor.Role != RoleOwner {
			return ErrOwnerOnly
		}
		prev := target.Role
		if err := s.repo.UpdateRole(ctx, targetID, role); err != nil {
			return err
		}
		target.Role = role
		// the staff flag alone grants back-office access
		if role == RoleCustomer && target.IsStaff {
			if err := s.repo.SetStaff(ctx, targetID, false); err != nil {
				return err
			}
			target.IsStaff = false
		}
		entry, err = s.audit.Record(ctx, actor.ID, activity.ActionUserRole, activity.KindUser, targetID,
			"changed role of %s from %s to %s", target.Username, prev, role)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.feed.Publish(notify.EventActivity, entry)
	return target, nil
}

// EnsureOwner creates the bootstrap owner account if username is free. An
// existing account is left untouched.
func (s *Service) EnsureOwner(ctx context.Context, username, password string) (*User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, false, apperr.Invalid("owner username and password are required")
	}
	if u, err := s.repo.GetByUsername(ctx, username); err == nil {
		return u, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash error: %w", err)
	}
	u := &User{Username: username, PasswordHash: hash, Role: RoleOwner}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create owner: %w", err)
	}
	return u, true, nil
}
