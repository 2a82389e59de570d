package store

import "github.com/logon-vault/logon-server/internal/logger"

type Repositories struct {
	UserRepository     UserRepository
	GroupKeyRepository GroupKeyRepository
}

func NewRepositories(db *DB, log *logger.Logger) *Repositories {
	return &Repositories{
		UserRepository:     NewUserRepository(db, log),
		GroupKeyRepository: NewGroupKeyRepository(db, log),
	}
}
