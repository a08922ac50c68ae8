package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderByID sorts ascending by primary key, which is creation order for
// auto-increment tables.
func OrderByID() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}
}

// ForUpdate takes row locks on drivers that support SELECT ... FOR UPDATE.
// SQLite ignores the clause and relies on its database-level write lock.
func ForUpdate() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if db.Dialector.Name() == "sqlite" {
			return db
		}
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
}
