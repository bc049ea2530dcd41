package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hungbv115/education-backend/internal/domain"
	"github.com/hungbv115/education-backend/internal/notification"
	"github.com/hungbv115/education-backend/internal/repository"
)

// In-memory fakes mirroring the postgres repositories' contracts, including
// the replace-on-upsert and compare-and-delete semantics of the token store.

type fakeTokenRepo struct {
	mu     sync.Mutex
	byVal  map[string]*domain.AccountToken
	byPair map[string]string // (user|purpose|device) -> token value
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{
		byVal:  make(map[string]*domain.AccountToken),
		byPair: make(map[string]string),
	}
}

func pairKey(t *domain.AccountToken) string {
	device := ""
	if t.DeviceID != nil {
		device = *t.DeviceID
	}
	return t.UserID + "|" + string(t.Purpose) + "|" + device
}

func (r *fakeTokenRepo) Upsert(ctx context.Context, token *domain.AccountToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	key := pairKey(token)
	if old, ok := r.byPair[key]; ok {
		delete(r.byVal, old)
	}

	cp := *token
	r.byVal[token.Token] = &cp
	r.byPair[key] = token.Token
	return nil
}

func (r *fakeTokenRepo) GetByToken(ctx context.Context, token string) (*domain.AccountToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.byVal[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *record
	return &cp, nil
}

func (r *fakeTokenRepo) Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) (*domain.AccountToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.byVal[oldToken]
	if !ok {
		return nil, repository.ErrNotFound
	}

	delete(r.byVal, oldToken)
	record.Token = newToken
	record.ExpiresAt = expiresAt
	r.byVal[newToken] = record
	r.byPair[pairKey(record)] = newToken

	cp := *record
	return &cp, nil
}

func (r *fakeTokenRepo) Redeem(ctx context.Context, token string, now time.Time) (*domain.AccountToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.byVal[token]
	if !ok || !record.ExpiresAt.After(now) {
		return nil, repository.ErrNotFound
	}

	delete(r.byVal, token)
	delete(r.byPair, pairKey(record))
	cp := *record
	return &cp, nil
}

func (r *fakeTokenRepo) DeleteExpired(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for val, record := range r.byVal {
		if record.IsExpired(now) {
			delete(r.byVal, val)
			delete(r.byPair, pairKey(record))
		}
	}
	return nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[string]*domain.User),
	}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	cp := *user
	r.byEmail[user.Email] = &cp
	r.byID[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) Enable(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.Enabled = true
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) UpdateUsing2FA(ctx context.Context, userID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.Using2FA = enabled
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	user.LastLoginAt = &now
	return nil
}

type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*domain.Device // (user|device) key
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[string]*domain.Device)}
}

func deviceKey(userID, deviceID string) string {
	return userID + "|" + deviceID
}

func (r *fakeDeviceRepo) RecordOrGet(ctx context.Context, device *domain.Device) (*domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := deviceKey(device.UserID, device.DeviceID)
	if existing, ok := r.devices[key]; ok {
		cp := *existing
		return &cp, nil
	}

	if device.ID == "" {
		device.ID = uuid.New().String()
	}
	now := time.Now()
	device.Approved = false
	device.CreatedAt = now
	device.LastLoginAt = now

	cp := *device
	r.devices[key] = &cp
	out := cp
	return &out, nil
}

func (r *fakeDeviceRepo) GetByUserAndDevice(ctx context.Context, userID, deviceID string) (*domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.devices[deviceKey(userID, deviceID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *device
	return &cp, nil
}

func (r *fakeDeviceRepo) Approve(ctx context.Context, userID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.devices[deviceKey(userID, deviceID)]
	if !ok {
		return repository.ErrNotFound
	}
	device.Approved = true
	return nil
}

func (r *fakeDeviceRepo) TouchLastLogin(ctx context.Context, userID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.devices[deviceKey(userID, deviceID)]
	if !ok {
		return repository.ErrNotFound
	}
	device.LastLoginAt = time.Now()
	return nil
}

func (r *fakeDeviceRepo) GetByUserID(ctx context.Context, userID string) ([]*domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Device
	for _, device := range r.devices {
		if device.UserID == userID {
			cp := *device
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeLocationRepo struct {
	mu        sync.Mutex
	locations []*domain.UserLocation
}

func newFakeLocationRepo() *fakeLocationRepo {
	return &fakeLocationRepo{}
}

func (r *fakeLocationRepo) Create(ctx context.Context, loc *domain.UserLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	cp := *loc
	r.locations = append(r.locations, &cp)
	return nil
}

func (r *fakeLocationRepo) GetByCountryAndUser(ctx context.Context, country, userID string) (*domain.UserLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, loc := range r.locations {
		if loc.Country == country && loc.UserID == userID {
			cp := *loc
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeLocationRepo) GetByUserID(ctx context.Context, userID string) ([]*domain.UserLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.UserLocation
	for _, loc := range r.locations {
		if loc.UserID == userID {
			cp := *loc
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeOutboxRepo struct {
	mu       sync.Mutex
	messages []*repository.OutboxMessage
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{}
}

func (r *fakeOutboxRepo) Enqueue(ctx context.Context, msg *repository.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	cp := *msg
	r.messages = append(r.messages, &cp)
	return nil
}

func (r *fakeOutboxRepo) ClaimPending(ctx context.Context, limit, maxAttempts int) ([]*repository.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var out []*repository.OutboxMessage
	for _, msg := range r.messages {
		if msg.SentAt != nil || msg.Attempts >= maxAttempts || len(out) >= limit {
			continue
		}
		if msg.ClaimedAt != nil && msg.ClaimedAt.After(now.Add(-time.Minute)) {
			continue
		}
		stamp := now
		msg.ClaimedAt = &stamp
		out = append(out, msg)
	}
	return out, nil
}

func (r *fakeOutboxRepo) MarkSent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range r.messages {
		if msg.ID == id {
			now := time.Now()
			msg.SentAt = &now
			msg.Attempts++
		}
	}
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range r.messages {
		if msg.ID == id {
			msg.Attempts++
			msg.LastError = &reason
			msg.ClaimedAt = nil
		}
	}
	return nil
}

func (r *fakeOutboxRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notification.Message
	fail bool
}

func (d *recordingDispatcher) Send(ctx context.Context, msg notification.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fail {
		return context.DeadlineExceeded
	}
	d.sent = append(d.sent, msg)
	return nil
}

type fakeResolver struct {
	country string
	err     error
}

func (r fakeResolver) Country(ctx context.Context, ip string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.country, nil
}
