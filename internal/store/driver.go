package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// dialectorFor maps the DATABASE_DRIVER config value to a GORM dialector.
// "sqlite" backs tests and single-node deployments, "postgres" everything
// else.
var dialectorFor = map[string]func(dsn string) gorm.Dialector{
	"sqlite":   sqlite.Open,
	"postgres": postgres.Open,
}

func openDialector(driver, dsn string) (gorm.Dialector, error) {
	open, ok := dialectorFor[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	return open(dsn), nil
}
