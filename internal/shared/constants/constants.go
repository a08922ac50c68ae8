package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Database table names
	TableOwners             = "owners"
	TableProducts           = "products"
	TableSubscriptions      = "subscriptions"
	TablePools              = "pools"
	TableCertificates       = "entitlement_certificates"
	TableRevocations        = "certificate_revocations"
	TableCasbinRule         = "casbin_rule"
	TableGooseDBVersion     = "goose_db_version"
	DefaultOwnerDisplayName = "Default Organization"
)
