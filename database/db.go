// Package database opens the relational store, migrates the schema and seeds
// the fixed role groups.
package database

import (
	"errors"
	"log"
	"strings"

	"github.com/dicoevent/dicoevent/config"
	"github.com/dicoevent/dicoevent/database/model"
	"github.com/dicoevent/dicoevent/util/common"
	"github.com/dicoevent/dicoevent/util/crypto"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// RoleNames are the groups every installation starts with.
var RoleNames = []string{"admin", "organizer"}

func models() []any {
	return []any{
		&model.User{},
		&model.Group{},
		&model.Event{},
		&model.EventPoster{},
		&model.Ticket{},
		&model.Registration{},
		&model.Payment{},
	}
}

// Open connects to the configured database. SQLite connections are opened
// with foreign keys enforced so that deletes cascade.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}

	var gormLogger logger.Interface
	if config.IsDebug() {
		gormLogger = logger.Default
	} else {
		gormLogger = logger.Discard
	}

	c := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	}

	var dialector gorm.Dialector
	if cfg.IsPostgreSQL() {
		dialector = postgres.Open(cfg.GetDSN())
	} else {
		if err := cfg.EnsureDirectoryExists(); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(sqliteDSN(cfg.GetDSN()))
	}

	db, err := gorm.Open(dialector, c)
	if err != nil {
		return nil, err
	}

	if cfg.IsSQLite() {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// A single connection keeps shared in-memory databases and WAL writers consistent.
		sqlDB.SetMaxOpenConns(1)
		if _, err = sqlDB.Exec("PRAGMA foreign_keys = ON;"); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func sqliteDSN(path string) string {
	params := "_foreign_keys=on"
	if !strings.Contains(path, "mode=memory") && path != ":memory:" {
		params = "cache=shared&_journal_mode=WAL&_synchronous=NORMAL&" + params
	}
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

// Migrate creates or updates every table of the domain.
func Migrate(db *gorm.DB) error {
	for _, m := range models() {
		if err := db.AutoMigrate(m); err != nil {
			log.Printf("Error auto migrating model: %v", err)
			return err
		}
	}
	return SeedRoles(db)
}

// SeedRoles makes sure the fixed role groups exist.
func SeedRoles(db *gorm.DB) error {
	for _, name := range RoleNames {
		group := &model.Group{Name: name}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).
			Where(model.Group{Name: name}).
			FirstOrCreate(group).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateSuperuser inserts a superuser account, failing when the username is taken.
func CreateSuperuser(db *gorm.DB, username, email, password string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, common.NewError("username and password are required")
	}
	hash, err := crypto.HashPasswordAsBcrypt(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsSuperuser:  true,
	}
	if err := db.Omit(clause.Associations).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
