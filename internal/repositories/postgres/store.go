package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Store bundles the repositories over one connection. A Store handed out by
// UnitOfWork is bound to the open transaction.
type Store struct {
	db *gorm.DB

	Users          *UserRepository
	Groups         *GroupRepository
	Memberships    *MembershipRepository
	DirectMessages *DirectMessageRepository
	GroupMessages  *GroupMessageRepository
	Notifications  *NotificationRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:             db,
		Users:          NewUserRepository(db),
		Groups:         NewGroupRepository(db),
		Memberships:    NewMembershipRepository(db),
		DirectMessages: NewDirectMessageRepository(db),
		GroupMessages:  NewGroupMessageRepository(db),
		Notifications:  NewNotificationRepository(db),
	}
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

var ErrTxDone = errors.New("transaction already committed or rolled back")

// UnitOfWork opens explicit transactions over a Store.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Tx is one open transaction. Exactly one of Commit or Rollback ends it.
type Tx struct {
	*Store
	tx   *gorm.DB
	done bool
}

func (u *UnitOfWork) Begin(ctx context.Context) (*Tx, error) {
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return &Tx{Store: NewStore(tx), tx: tx}, nil
}

func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if err := t.tx.Rollback().Error; err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Do runs fn inside one transaction: commit if fn returns nil, rollback on
// error or panic. A cancelled ctx fails the statements in flight and so
// rolls back like any other error.
func (u *UnitOfWork) Do(ctx context.Context, fn func(tx *Store) error) (err error) {
	tx, err := u.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx.Store); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	return tx.Commit()
}
