package main

import (
	"log"

	"gorm.io/gorm"

	"github.com/gavelhub/gavel/config"
	"github.com/gavelhub/gavel/models"
	"github.com/gavelhub/gavel/routes"
	"github.com/gavelhub/gavel/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Category{},
		&models.Bid{},
		&models.Listing{},
		&models.Comment{},
	)

	if err := seedCategories(db, cfg.SeedCategories); err != nil {
		log.Fatalf("failed to seed categories: %v", err)
	}

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// seedCategories inserts the configured category labels when the table is empty.
func seedCategories(db *gorm.DB, names []string) error {
	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, name := range names {
		if err := db.Create(&models.Category{Name: name}).Error; err != nil {
			return err
		}
	}
	return nil
}
