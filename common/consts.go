package common

const (
	PRIVATE_CREDENTIALS_DOTENV = ".env.private"
	DEFAULT_CONFIG_DIR         = ".config/"
	DEFAULT_CONFIG_FILE        = "config.json"

	DEFAULT_REDIS_ADDR   = "localhost:6379"
	DEFAULT_REDIS_PREFIX = "wizard:"
	DEFAULT_LISTEN_ADDR  = ":4000"

	// Durable-until-cleared wizard state has no expiry; the session fence
	// flag does. A session that goes quiet longer than this is treated as
	// a fresh one on its next touch.
	DEFAULT_SESSION_TTL_MINUTES = 30

	DEFAULT_CATALOG_SERVICE_URL = "http://localhost:4100"
	DEFAULT_ORDER_SERVICE_URL   = "http://localhost:4200"
)
