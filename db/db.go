package db

import (
	"Gin_postgres_redis_storage_tracker/models"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	err = Migrate(DB)
	if err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return DB
}

func Migrate(db *gorm.DB) error {
	// Transactions before Items: stg_items.current_loan_id references the ledger.
	if err := db.AutoMigrate(&models.User{}, &models.Invite{}, &models.Transaction{}, &models.Item{}); err != nil {
		return err
	}

	// 删除物品时保留账本历史：item_id 置空，绝不级联删除
	if err := db.Exec(fmt.Sprintf(`
	  DO $$ BEGIN
	    ALTER TABLE %s
	      ADD CONSTRAINT %s_item_fk
	      FOREIGN KEY (item_id) REFERENCES %s (id) ON DELETE SET NULL;
	  EXCEPTION WHEN duplicate_object THEN NULL;
	  END $$;
	`, models.TransactionTable, models.TransactionTable, models.ItemTable)).Error; err != nil {
		return err
	}

	// 查询某物品的账本更快（按 id 倒序分页）
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_item_id_desc
	  ON %s (item_id, id DESC);
	`, models.TransactionTable, models.TransactionTable)).Error; err != nil {
		return err
	}

	return nil
}
