package resource

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"transcribe-service/pkg/assert"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/logger"
	"transcribe-service/pkg/manager"
)

var (
	mysqlResourceOnce sync.Once
	mysqlSingleton    *MySqlResource
)

// MySqlResource manages the lifecycle of the main database connection.
type MySqlResource struct {
	db *gorm.DB
}

// DefaultMysqlResource returns the global MySQL resource instance.
func DefaultMysqlResource() *MySqlResource {
	assert.NotCircular()
	mysqlResourceOnce.Do(func() {
		mysqlSingleton = &MySqlResource{}
	})
	assert.NotNil(mysqlSingleton)
	return mysqlSingleton
}

// MustOpen establishes the database connection using global configuration.
func (r *MySqlResource) MustOpen() {
	if r.db != nil {
		return
	}

	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized")
	}

	dbCfg := cfg.Database
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		dbCfg.Username, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.Database, dbCfg.Charset)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		panic("failed to connect database: " + err.Error())
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic("failed to get sql.DB: " + err.Error())
	}
	if dbCfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
	}
	if dbCfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
	}
	if dbCfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	r.db = db
	logger.Info("MySQL resource initialized", map[string]interface{}{
		"host":     dbCfg.Host,
		"database": dbCfg.Database,
	})
}

// Close tidies up the underlying connection pool.
func (r *MySqlResource) Close() {
	if r.db == nil {
		return
	}
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// MainDB exposes the gorm handle.
func (r *MySqlResource) MainDB() *gorm.DB {
	return r.db
}

// MySqlResourcePlugin wires the resource into the manager.
type MySqlResourcePlugin struct{}

func (p *MySqlResourcePlugin) Name() string {
	return "mysql"
}

func (p *MySqlResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultMysqlResource()
}
