package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/akowalski/bibliotek/internal/entities"
)

var defaultCategories = []entities.Category{
	{Name: "Fiction"},
	{Name: "Science"},
	{Name: "History"},
	{Name: "Biography"},
	{Name: "Children"},
	{Name: "Poetry"},
}

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the SQLite database, runs migrations and seeds the
// default categories. Transactions are opened with an immediate write
// lock so that concurrent checkout/return calls on the same book
// serialize instead of failing mid-transaction.
func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Category{},
		&entities.User{},
		&entities.Book{},
		&entities.Loan{},
		&entities.Reservation{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedCategories(); err != nil {
		return nil, fmt.Errorf("failed to seed categories: %w", err)
	}

	log.Printf("Database initialized at %s", dbPath)

	return database, nil
}

func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath
	}
	return dbPath + "?_busy_timeout=5000&_txlock=immediate"
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedCategories() error {
	for _, category := range defaultCategories {
		var existing entities.Category
		result := d.DB.Where("name = ?", category.Name).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			if err := d.DB.Create(&category).Error; err != nil {
				return fmt.Errorf("failed to create category %s: %w", category.Name, err)
			}
		}
	}
	return nil
}
