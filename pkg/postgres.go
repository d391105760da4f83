package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"dance-school-crm/internal/models/config"
)

func NewPostgres(cfg *config.Config, logger *zap.Logger) (*sqlx.DB, error) {
	db := cfg.Database

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host,
		db.Port,
		db.Username,
		db.Password,
		db.Name,
		db.SSLMode,
	)

	conn, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("🗄️  Подключено к PostgreSQL",
		zap.String("host", db.Host),
		zap.Int("port", db.Port),
		zap.String("db", db.Name))
	return conn, nil
}
