package persistence

import (
	"gorm.io/gorm"
)

// Repositories groups the GORM repositories used by the import pipeline
type Repositories struct {
	Contracts     *GormContractRepository
	Receivables   *GormReceivableRepository
	Expenses      *GormExpenseRepository
	ImportHistory *GormImportHistoryRepository
}

// NewRepositories creates all repositories over one connection
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Contracts:     NewGormContractRepository(db),
		Receivables:   NewGormReceivableRepository(db),
		Expenses:      NewGormExpenseRepository(db),
		ImportHistory: NewGormImportHistoryRepository(db),
	}
}
