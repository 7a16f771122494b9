package models

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) error {
	if err := db.AutoMigrate(&Seller{}, &Order{}, &OrderItem{}); err != nil {
		return fmt.Errorf("migrate order store: %w", err)
	}
	return nil
}

// ResetTables empties the store so each run starts from the current snapshot only.
func ResetTables(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// children first
		for _, m := range []any{&OrderItem{}, &Order{}, &Seller{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("reset %T: %w", m, err)
			}
		}
		return nil
	})
}
