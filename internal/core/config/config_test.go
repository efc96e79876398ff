package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := writeYAML(t, `
app:
  http:
    port: 9090
db:
  driver: mysql
  dsn: "mysql://u:p@127.0.0.1:3306/dogs"
  maxOpenConns: 4
jwt:
  secret: from-file
`)
	t.Setenv("APP_JWT_SECRET", "from-env")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, c.App.HTTP.Port)
	assert.Equal(t, "mysql", c.DB.Driver)
	assert.Equal(t, 4, c.DB.MaxOpenConns)
	assert.Equal(t, "from-env", c.JWT.Secret)
	// defaults
	assert.Equal(t, 30, c.DB.ServerSelectionTimeoutSec)
	assert.Equal(t, 60, c.DB.SocketTimeoutSec)
	assert.Equal(t, "session", c.JWT.CookieName)
	assert.NoError(t, c.Validate())
}

func TestLoad_EnvOnlyWhenDefaultFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/dogs")
	t.Setenv("SESSION_SECRET", "s3cret")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/dogs", c.DB.DSN)
	assert.Equal(t, "s3cret", c.JWT.Secret)
	assert.NoError(t, c.Validate())
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_RequiredSettings(t *testing.T) {
	c := &Config{DB: DB{Driver: "postgres"}, JWT: JWT{AccessTokenTTLMin: 10}}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.dsn")
	assert.Contains(t, err.Error(), "jwt.secret")

	c.DB.DSN = "x"
	c.JWT.Secret = "y"
	c.DB.Driver = "mongo"
	assert.ErrorContains(t, c.Validate(), "not supported")
}
