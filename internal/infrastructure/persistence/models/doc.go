// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and TenantModel
//   - finance.go: contracts, receivables and expenses
//   - import_history.go: one row per processed source file
package models
