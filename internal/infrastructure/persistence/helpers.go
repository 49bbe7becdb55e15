package persistence

import (
	"context"
	"time"

	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

// increment applies an unconditional atomic update to one aggregate row and
// bumps its version. notFoundErr is returned when the row does not exist.
func increment(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, notFoundErr error, updates map[string]any) error {
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = nowUTC()
	result := db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundErr
	}
	return nil
}

// forUpdate locks the selected rows until the transaction ends. SQLite
// ignores the clause and relies on its database-level write lock.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func countAccounts(ctx context.Context, db *gorm.DB, model any) (account.Counts, error) {
	var row struct {
		Total  int64
		Active int64
	}
	if err := db.WithContext(ctx).
		Model(model).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active").
		Scan(&row).Error; err != nil {
		return account.Counts{}, TranslateError(err)
	}
	return account.Counts{Total: row.Total, Active: row.Active}, nil
}

// within restricts column to period. Open bounds add no condition.
func within(column string, period shared.Period) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !period.From.IsZero() {
			db = db.Where(column+" >= ?", period.From)
		}
		if !period.To.IsZero() {
			db = db.Where(column+" < ?", period.To)
		}
		return db
	}
}
