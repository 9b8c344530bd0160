package boot

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/memohai/photorelay/internal/relay"
	"github.com/memohai/photorelay/internal/server"
	"github.com/memohai/photorelay/internal/upload"
)

const testConfig = `
[telegram]
bot_token = "123456:test-token"

[sessions]
id_format = "timestamp"
ttl = "1h"
sweep_schedule = "@every 1m"

[email]
provider = "generic"
to = "dest@example.com"

[email.config]
smtp_host = "smtp.example.com"
username = "bot@example.com"
password = "secret"
`

func writeConfig(t *testing.T, body string) ConfigPath {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return ConfigPath(path)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BOT_TOKEN", "GMAIL_USER", "GMAIL_PASS", "EMAIL_TO", "HTTP_ADDR", "WEBHOOK_PATH", "TELEGRAM_MODE"} {
		t.Setenv(key, "")
	}
}

func TestModuleWiresServer(t *testing.T) {
	clearEnv(t)

	var (
		srv         *server.Server
		dispatcher  *relay.Dispatcher
		coordinator *upload.Coordinator
		sweeper     *upload.Sweeper
	)
	app := fxtest.New(t,
		Module,
		fx.Supply(writeConfig(t, testConfig)),
		fx.Populate(&srv, &dispatcher, &coordinator, &sweeper),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, dispatcher)
	assert.True(t, coordinator.CanDeliver())
	assert.True(t, sweeper.Enabled())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bot", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email_provider":"generic"`)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestModuleWithoutEmail(t *testing.T) {
	clearEnv(t)

	var coordinator *upload.Coordinator
	app := fxtest.New(t,
		Module,
		fx.Supply(writeConfig(t, "[telegram]\nbot_token = \"123456:test-token\"\n")),
		fx.Populate(&coordinator),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.False(t, coordinator.CanDeliver())
}

func TestModuleRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)

	var srv *server.Server
	app := fx.New(
		Module,
		fx.Supply(writeConfig(t, "[telegram]\nmode = \"carrier-pigeon\"\n")),
		fx.Populate(&srv),
	)
	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), "load config")
}
