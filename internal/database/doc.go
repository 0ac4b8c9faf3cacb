// Package database opens the relational store and migrates the schema.
//
// # Architecture
//
//	database/
//	├── database.go      # Driver selection (sqlite, postgres), migrations
//	├── audit/           # Audit event persistence
//	└── tokens/          # Refresh token persistence and expiry sweeps
//
// Domain services (catalog, library, genres, auth) work on *gorm.DB
// directly; the sub-packages here hold storage used by more than one
// component.
//
// # Usage
//
//	db, err := database.NewDatabase(cfg.Database)
//	defer db.Close()
//
//	tokensRepo := tokens.NewRepository(db.DB)
//	auditRepo := audit.NewRepository(db.DB)
package database
