package permission

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// PermissionSync grants the owner role to every registered owner key, so an
// owner can act under its own key without an explicit role assignment.
type PermissionSync struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewPermissionSync(db *gorm.DB, logger logger.Interface) *PermissionSync {
	return &PermissionSync{
		db:     db,
		logger: logger,
	}
}

// SyncOwnerRoles inserts missing grouping rules. Reload the enforcer policy
// afterwards.
func (s *PermissionSync) SyncOwnerRoles() (int64, error) {
	query := `
		INSERT INTO casbin_rule (ptype, v0, v1, v2, v3, v4, v5)
		SELECT DISTINCT 'g', o.owner_key, 'owner', '', '', '', ''
		FROM owners o
		WHERE NOT EXISTS (
			SELECT 1 FROM casbin_rule cr
			WHERE cr.ptype = 'g'
			AND cr.v0 = o.owner_key
			AND cr.v1 = 'owner'
		)
	`

	var synced int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(query)
		if result.Error != nil {
			return result.Error
		}
		synced = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sync owner roles: %w", err)
	}

	if synced > 0 {
		s.logger.Infow("synced owner roles to casbin", "count", synced)
	}
	return synced, nil
}
