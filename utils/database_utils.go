// database_utils should be the canonical place to put shared DB utils.
// It should not include:
// 1. Any util that doesn't manipulate DB
// 2. Any util that contains business logic
package utils

import (
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/JamisonProctor/planz/model"
)

const (
	TestDBPrefix         = "testonlydb_"
	TestDBNameCharLength = 8

	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

// GormTransaction is the callback function used during db.Transaction in Gorm.
type GormTransaction func(tx *gorm.DB) error

func randomTestDBName() string {
	return TestDBPrefix + RandomAlphabetString(TestDBNameCharLength)
}

// GetDBConnection get a connection to the database specified by env.
// DB_DRIVER selects "postgres" (default) or "sqlite", in which case DB_NAME is
// the database file path.
func GetDBConnection() (*gorm.DB, error) {
	if os.Getenv("DB_DRIVER") == DriverSqlite {
		return GetSqliteConnection(os.Getenv("DB_NAME"))
	}
	return GetCustomizedConnection(os.Getenv("DB_NAME"))
}

// GetCustomizedConnection connect to any postgres db
func GetCustomizedConnection(dbName string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable", os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASS"), dbName, os.Getenv("DB_PORT"))
	return getDB(postgres.Open(dsn))
}

// GetSqliteConnection opens a sqlite database, dsn is a file path or a
// "file:...?mode=memory" uri.
func GetSqliteConnection(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("sqlite database path is empty")
	}
	db, err := getDB(sqlite.Open(dsn))
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers anyway, a single connection keeps transactions
	// and in-memory databases consistent.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Create a temp DB for testing, note that this function should only be called
// in a testing environment with test state manager testing.T
// The database lives in memory and is discarded when the connection is closed
// during test cleanup.
func CreateTempDB(t *testing.T) (*gorm.DB, string) {
	t.Helper()
	dbName := randomTestDBName()
	db, err := GetSqliteConnection(fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", dbName))
	if err != nil {
		log.Fatalln("fail to create temp DB with name: ", dbName, err)
	}
	if err := DatabaseSetupAndMigration(db); err != nil {
		log.Fatalln("fail to migrate temp DB: ", dbName, err)
	}
	t.Cleanup(func() {
		conn, _ := db.DB()
		conn.Close()
	})

	return db, dbName
}

func getDB(dialector gorm.Dialector) (db *gorm.DB, err error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func DatabaseSetupAndMigration(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(
		&model.SourceDomain{},
		&model.SourceUrl{},
		&model.SearchRun{},
		&model.SearchQuery{},
		&model.SearchResult{},
		&model.SourceUrlDiscovery{},
		&model.AcquisitionIssue{},
		&model.Event{},
		&model.CalendarSync{},
		&model.EventSeries{},
	), "fail to migrate planz schema")
}
