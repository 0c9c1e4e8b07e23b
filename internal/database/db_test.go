package database

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/kidcheck/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{User: "kid", Pass: "p@ss", Host: "db", Port: "3306", Name: "kidcheck"})
	mc, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "kid", mc.User)
	assert.Equal(t, "p@ss", mc.Passwd)
	assert.Equal(t, "db:3306", mc.Addr)
	assert.Equal(t, "kidcheck", mc.DBName)
	assert.True(t, mc.ParseTime)
	assert.Equal(t, "UTC", mc.Loc.String())
}

func TestSchemaIsIdempotent(t *testing.T) {
	for _, stmt := range schema {
		assert.Contains(t, stmt, "IF NOT EXISTS")
	}
}
