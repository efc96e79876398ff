package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dog-catalog/internal/core/database"
	"dog-catalog/internal/domain"
)

// read 取连接并用 OpTimeout 约束；请求取消会中断查询
func read(ctx context.Context, m *database.Manager) (*gorm.DB, context.CancelFunc, error) {
	db, err := m.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	opCtx, cancel := context.WithTimeout(ctx, m.OpTimeout())
	return db.WithContext(opCtx), cancel, nil
}

// write 与 read 相同，但写入一旦发出就不随请求取消而中断
func write(ctx context.Context, m *database.Manager) (*gorm.DB, context.CancelFunc, error) {
	return read(context.WithoutCancel(ctx), m)
}

func mapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case database.IsConnErr(err):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
