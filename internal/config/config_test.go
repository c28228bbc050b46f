package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const postgresConfig = `
server:
  host: 0.0.0.0
  http_port: 8080
  grpc_port: 9090
database:
  host: localhost
  user: rentdesk
  database: rentdesk
billing:
  tax_percent: "18"
`

func TestLoad(t *testing.T) {
	t.Run("DefaultsApplied", func(t *testing.T) {
		cfg, err := Load(writeFile(t, "config.yaml", postgresConfig))
		require.NoError(t, err)

		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "text", cfg.Log.Format)
		assert.Equal(t, 72, cfg.Idempotency.RetentionHours)
		assert.NotEmpty(t, cfg.Scheduler.PurgeIdempotencyKeys)
		assert.True(t, decimal.NewFromInt(18).Equal(cfg.TaxPercent()))
		assert.Equal(t, "0.0.0.0:8080", cfg.GetHTTPAddress())
		assert.Equal(t, "postgres://rentdesk:@localhost:5432/rentdesk?sslmode=disable", cfg.GetDatabaseConnectionString())
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("DB_HOST", "db.internal")
		t.Setenv("HTTP_PORT", "8181")
		t.Setenv("KAFKA_ENABLED", "true")
		t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load(writeFile(t, "config.yaml", postgresConfig))
		require.NoError(t, err)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 8181, cfg.Server.HTTPPort)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, "rentdesk.events", cfg.Kafka.Topic)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("MemoryDriverNeedsNoDatabase", func(t *testing.T) {
		cfg, err := Load(writeFile(t, "config.yaml", `
server: {http_port: 8080, grpc_port: 9090}
database: {driver: memory}
seed:
  products:
    - {name: Frame, price_per_unit: "100", available_count: 40}
`))
		require.NoError(t, err)
		assert.Equal(t, DriverMemory, cfg.Database.Driver)
		require.Len(t, cfg.Seed.Products, 1)
	})

	t.Run("Invalid", func(t *testing.T) {
		cases := map[string]string{
			"same ports":   "server: {http_port: 8080, grpc_port: 8080}\ndatabase: {driver: memory}\n",
			"bad driver":   "server: {http_port: 8080, grpc_port: 9090}\ndatabase: {driver: mysql}\n",
			"no db host":   "server: {http_port: 8080, grpc_port: 9090}\n",
			"bad tax":      "server: {http_port: 8080, grpc_port: 9090}\ndatabase: {driver: memory}\nbilling: {tax_percent: abc}\n",
			"tax too high": "server: {http_port: 8080, grpc_port: 9090}\ndatabase: {driver: memory}\nbilling: {tax_percent: \"101\"}\n",
			"kafka":        "server: {http_port: 8080, grpc_port: 9090}\ndatabase: {driver: memory}\nkafka: {enabled: true}\n",
			"seed price":   "server: {http_port: 8080, grpc_port: 9090}\ndatabase: {driver: memory}\nseed: {products: [{name: X, price_per_unit: nope}]}\n",
		}
		for name, content := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := Load(writeFile(t, "config.yaml", content))
				assert.Error(t, err)
			})
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))

	path := writeFile(t, ".env", "RENTDESK_TEST_VALUE=from-dotenv\n")
	t.Setenv("RENTDESK_TEST_VALUE", "")
	os.Unsetenv("RENTDESK_TEST_VALUE")
	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-dotenv", os.Getenv("RENTDESK_TEST_VALUE"))
}
