package database // MySQL connection and schema management

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/kidcheck/internal/config"
)

// DSN builds the driver DSN. Times are parsed into time.Time and kept in
// UTC so created_at and response_time compare correctly.
func DSN(c config.DBConfig) string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Pass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, c.Port)
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Open connects to MySQL and pings it within ctx.
func Open(ctx context.Context, c config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(c))
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql at %s: %w", net.JoinHostPort(c.Host, c.Port), err)
	}
	return db, nil
}
