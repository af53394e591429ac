package database

import "spilledin/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// parents before children.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Company{},
		&models.UserProfile{},
		&models.Confession{},
		&models.Vote{},
		&models.Award{},
		&models.ToxicityEvent{},
		&models.MonthlyRecap{},
	}
}
