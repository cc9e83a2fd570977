package setup

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBConfig_DSN(t *testing.T) {
	dsn, err := DBConfig{User: "place", Password: "p@ss:word", Host: "db", Port: "3307", Name: "canvas"}.DSN()
	require.NoError(t, err)

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "place", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "db:3307", parsed.Addr)
	assert.Equal(t, "canvas", parsed.DBName)
	assert.True(t, parsed.ParseTime)
}

func TestDBConfig_DSN_Defaults(t *testing.T) {
	dsn, err := DBConfig{User: "place"}.DSN()
	require.NoError(t, err)

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3306", parsed.Addr)
	assert.Equal(t, "place_db", parsed.DBName)
}

func TestDBConfig_DSN_RequiresUser(t *testing.T) {
	_, err := DBConfig{}.DSN()
	assert.Error(t, err)
}
