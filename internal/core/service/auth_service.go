package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/bizdesk/internal/core/calc"
	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/obs"
	"github.com/rl1809/bizdesk/internal/port"
)

const (
	SessionKey         = "businessUser"
	UsersKey           = "businessUsers"
	QuarantineUsersKey = UsersKey + ".corrupt"

	recordVersion     = 2
	minPasswordLength = 6
)

type SignupInput struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	BusinessName string `json:"business_name"`
	OwnerName    string `json:"owner_name"`
	Phone        string `json:"phone"`
}

func (in SignupInput) validate() error {
	switch {
	case strings.TrimSpace(in.BusinessName) == "":
		return invalid("business_name", "is required")
	case strings.TrimSpace(in.OwnerName) == "":
		return invalid("owner_name", "is required")
	case strings.TrimSpace(in.Phone) == "":
		return invalid("phone", "is required")
	case len(in.Password) < minPasswordLength:
		return invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return invalid("email", "is not a valid address")
	}
	return nil
}

// Session is a logged-in user plus the bearer token for the API.
type Session struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type storedUser struct {
	domain.User
	PasswordHash string `json:"password_hash"`
}

type usersRecord struct {
	Version int          `json:"version"`
	Users   []storedUser `json:"users"`
}

type sessionRecord struct {
	Version int         `json:"version"`
	User    domain.User `json:"user"`
}

// legacyUser is the unversioned layout: camelCase keys and, in the users
// list, a cleartext password.
type legacyUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	BusinessName string    `json:"businessName"`
	OwnerName    string    `json:"ownerName"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"createdAt"`
	Password     string    `json:"password"`
}

func (l legacyUser) user() domain.User {
	return domain.User{
		ID:           l.ID,
		Email:        l.Email,
		BusinessName: l.BusinessName,
		OwnerName:    l.OwnerName,
		Phone:        l.Phone,
		CreatedAt:    l.CreatedAt,
	}
}

type AuthService struct {
	kv       port.KeyValueStore
	tokens   port.TokenIssuer
	hashCost int
	now      func() time.Time

	// mu serializes read-modify-write cycles on the users record.
	mu sync.Mutex
}

func NewAuthService(kv port.KeyValueStore, tokens port.TokenIssuer) *AuthService {
	return &AuthService{
		kv:       kv,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := in.validate(); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil && !errors.Is(err, ErrCorruptUsers) {
		return Session{}, err
	}
	for _, u := range users {
		if normalizeEmail(u.Email) == in.Email {
			return Session{}, ErrEmailExists
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           calc.GenerateID(),
		Email:        in.Email,
		BusinessName: strings.TrimSpace(in.BusinessName),
		OwnerName:    strings.TrimSpace(in.OwnerName),
		Phone:        strings.TrimSpace(in.Phone),
		CreatedAt:    s.now(),
	}
	users = append(users, storedUser{User: user, PasswordHash: string(hash)})
	if err := s.saveUsers(ctx, users); err != nil {
		return Session{}, err
	}
	obs.Logger.Info("user_signed_up", "user_id", user.ID)
	return s.startSession(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)

	s.mu.Lock()
	users, err := s.loadUsers(ctx)
	s.mu.Unlock()
	if err != nil && !errors.Is(err, ErrCorruptUsers) {
		return Session{}, err
	}

	for _, u := range users {
		if normalizeEmail(u.Email) != email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			break
		}
		return s.startSession(ctx, u.User)
	}
	return Session{}, ErrInvalidCredentials
}

// Logout removes the persisted session if it belongs to userID. Bearer
// tokens are stateless and stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	current, err := s.loadSession(ctx)
	if errors.Is(err, ErrCorruptSession) {
		return nil
	}
	if err != nil {
		return err
	}
	if current == nil || current.ID != userID {
		return nil
	}
	if err := s.kv.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// User looks up a registered account by id.
func (s *AuthService) User(ctx context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	users, err := s.loadUsers(ctx)
	s.mu.Unlock()
	if err != nil && !errors.Is(err, ErrCorruptUsers) {
		return domain.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u.User, nil
		}
	}
	return domain.User{}, ErrUserNotFound
}

// Bootstrap restores the persisted session at startup and upgrades old
// records in place. A nil user with a nil error means logged out. An
// unreadable session is removed and reported as ErrCorruptSession; an
// unreadable users record is moved aside and reported as ErrCorruptUsers.
// Both may be returned together, and neither stops a valid session from
// being restored.
func (s *AuthService) Bootstrap(ctx context.Context) (*domain.User, error) {
	s.mu.Lock()
	_, usersErr := s.loadUsers(ctx)
	s.mu.Unlock()
	if usersErr != nil && !errors.Is(usersErr, ErrCorruptUsers) {
		return nil, usersErr
	}

	user, err := s.loadSession(ctx)
	if err != nil && !errors.Is(err, ErrCorruptSession) {
		return nil, err
	}
	return user, errors.Join(usersErr, err)
}

func (s *AuthService) startSession(ctx context.Context, user domain.User) (Session, error) {
	blob, err := json.Marshal(sessionRecord{Version: recordVersion, User: user})
	if err != nil {
		return Session{}, fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Set(ctx, SessionKey, blob); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) loadSession(ctx context.Context) (*domain.User, error) {
	blob, err := s.kv.Get(ctx, SessionKey)
	if errors.Is(err, port.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(blob, &rec); err == nil && rec.Version == recordVersion && rec.User.ID != "" {
		return &rec.User, nil
	}

	var legacy legacyUser
	if err := json.Unmarshal(blob, &legacy); err == nil && legacy.ID != "" && legacy.Email != "" {
		user := legacy.user()
		migrated, err := json.Marshal(sessionRecord{Version: recordVersion, User: user})
		if err != nil {
			return nil, fmt.Errorf("encode session: %w", err)
		}
		if err := s.kv.Set(ctx, SessionKey, migrated); err != nil {
			return nil, fmt.Errorf("migrate session: %w", err)
		}
		obs.Logger.Info("session_migrated", "user_id", user.ID, "to_version", recordVersion)
		return &user, nil
	}

	if err := s.kv.Delete(ctx, SessionKey); err != nil {
		return nil, fmt.Errorf("discard corrupt session: %w", err)
	}
	return nil, ErrCorruptSession
}

// loadUsers must be called with s.mu held. An unreadable record is moved to
// QuarantineUsersKey and reported as ErrCorruptUsers with no users, so the
// caller can carry on as if nobody had registered.
func (s *AuthService) loadUsers(ctx context.Context) ([]storedUser, error) {
	blob, err := s.kv.Get(ctx, UsersKey)
	if errors.Is(err, port.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}

	if bytes.HasPrefix(bytes.TrimSpace(blob), []byte("[")) {
		var legacy []legacyUser
		if err := json.Unmarshal(blob, &legacy); err != nil {
			return nil, s.quarantineUsers(ctx, blob, "unparsable legacy list")
		}
		return s.migrateUsers(ctx, legacy)
	}

	var rec usersRecord
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, s.quarantineUsers(ctx, blob, "unparsable record")
	}
	if rec.Version != recordVersion {
		return nil, s.quarantineUsers(ctx, blob, fmt.Sprintf("unknown version %d", rec.Version))
	}
	return rec.Users, nil
}

func (s *AuthService) quarantineUsers(ctx context.Context, blob []byte, reason string) error {
	if err := s.kv.Set(ctx, QuarantineUsersKey, blob); err != nil {
		return fmt.Errorf("quarantine users: %w", err)
	}
	if err := s.kv.Delete(ctx, UsersKey); err != nil {
		return fmt.Errorf("discard corrupt users: %w", err)
	}
	obs.Logger.Warn("users_record_quarantined", "reason", reason, "key", QuarantineUsersKey)
	return ErrCorruptUsers
}

// migrateUsers hashes the cleartext passwords of an unversioned users list
// and rewrites it as the current version.
func (s *AuthService) migrateUsers(ctx context.Context, legacy []legacyUser) ([]storedUser, error) {
	users := make([]storedUser, 0, len(legacy))
	for _, l := range legacy {
		hash, err := bcrypt.GenerateFromPassword([]byte(l.Password), s.hashCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", l.ID, err)
		}
		users = append(users, storedUser{User: l.user(), PasswordHash: string(hash)})
	}
	if err := s.saveUsers(ctx, users); err != nil {
		return nil, err
	}
	obs.Logger.Info("users_migrated", "count", len(users), "to_version", recordVersion)
	return users, nil
}

func (s *AuthService) saveUsers(ctx context.Context, users []storedUser) error {
	blob, err := json.Marshal(usersRecord{Version: recordVersion, Users: users})
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := s.kv.Set(ctx, UsersKey, blob); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
