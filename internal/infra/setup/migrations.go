package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

// MigrateDB 迁移 users 与 pixels 两张表。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	if err := migrateUsersTable(db); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}

	// pixels 表只追加写入, 交给 AutoMigrate 处理即可
	if err := db.AutoMigrate(&domain.Pixel{}); err != nil {
		logrus.WithError(err).Error("Failed to auto-migrate pixels table")
		return fmt.Errorf("failed to auto-migrate pixels table: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}

// migrateUsersTable 表不存在时用原生 SQL 建表 (TEXT 列与索引长度需要显式指定),
// 已存在时交给 AutoMigrate 补齐新增的列, 例如 is_admin。
func migrateUsersTable(db *gorm.DB) error {
	if db.Migrator().HasTable(&domain.User{}) {
		if err := db.AutoMigrate(&domain.User{}); err != nil {
			return fmt.Errorf("failed to auto-migrate users table: %w", err)
		}
		logrus.Info("Users table schema checked/updated successfully")
		return nil
	}
	return createUsersTable(db)
}

func createUsersTable(db *gorm.DB) error {
	sql := `
	CREATE TABLE users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(191) NOT NULL,
		password TEXT NOT NULL,
		email VARCHAR(191),
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME(3),
		updated_at DATETIME(3),
		UNIQUE INDEX idx_username (username),
		UNIQUE INDEX idx_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_general_ci;
	`
	if err := db.Exec(sql).Error; err != nil {
		logrus.WithError(err).Error("Failed to create users table")
		return fmt.Errorf("failed to create users table: %w", err)
	}
	logrus.Info("Users table created successfully")
	return nil
}
