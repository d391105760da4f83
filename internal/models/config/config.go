package config

// Config основной конфиг приложения
type Config struct {
	Environment string
	HTTPPort    string
	Bot         BotConfig
	Database    DatabaseConfig
}

type BotConfig struct {
	Token    string
	Debug    bool
	AdminIDs []int64 // чаты администраторов для уведомлений о заменах и отменах
}

func (c *Config) Production() bool {
	return c.Environment == "production"
}
