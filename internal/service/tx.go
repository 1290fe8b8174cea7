package service

import (
	"familytree/internal/database"
	"familytree/internal/repository"
)

// Transactor runs a unit of work against repositories bound to one transaction
type Transactor interface {
	InTx(fn func(repos *repository.Repositories) error) error
}

// DBTransactor implements Transactor with database transactions
type DBTransactor struct {
	db *database.DB
}

// NewTransactor returns a Transactor backed by db
func NewTransactor(db *database.DB) *DBTransactor {
	return &DBTransactor{db: db}
}

// InTx runs fn inside one transaction, committing when fn returns nil
func (t *DBTransactor) InTx(fn func(repos *repository.Repositories) error) error {
	return t.db.WithTx(func(tx *database.Tx) error {
		return fn(repository.NewRepositories(tx))
	})
}
