package repository

import (
	"github.com/hungbv115/education-backend/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User     UserRepository
	Token    TokenRepository
	Device   DeviceRepository
	Location LocationRepository
	Outbox   OutboxRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Token:    NewTokenRepository(db),
		Device:   NewDeviceRepository(db),
		Location: NewLocationRepository(db),
		Outbox:   NewOutboxRepository(db),
	}
}
