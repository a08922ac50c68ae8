package permission

import (
	"github.com/cipherboy/candlepin/internal/domain/permission"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// InitDefaultPolicies grants the built-in role matrix. It is safe to run on
// every start.
func InitDefaultPolicies(e *Enforcer, log logger.Interface) error {
	policies := permission.DefaultPolicies()
	for _, p := range policies {
		if err := e.AddPolicy(p); err != nil {
			return err
		}
	}

	log.Infow("default permissions initialized", "policies", len(policies))
	return nil
}
