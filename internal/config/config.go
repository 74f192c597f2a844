package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken             string
	DBDSN                string
	APIBaseURL           string
	RedisAddr            string
	CalendarURL          string
	Environment          string
	AdminTelegramIDs     []int64
	DefaultClientMessage string
	PageLimit            int
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		BotToken:             os.Getenv("BOT_API_TOKEN"),
		DBDSN:                os.Getenv("DB_DSN"),
		APIBaseURL:           os.Getenv("API_BASE_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		CalendarURL:          os.Getenv("CALENDAR_URL"),
		Environment:          os.Getenv("ENV"),
		DefaultClientMessage: os.Getenv("DEFAULT_CLIENT_MESSAGE"),
		PageLimit:            10,
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.DefaultClientMessage == "" {
		cfg.DefaultClientMessage = "Здравствуйте! Для размещения рекламы свяжитесь с администратором."
	}

	if raw := os.Getenv("PAGE_LIMIT"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("PAGE_LIMIT must be a positive integer, got %q", raw)
		}
		cfg.PageLimit = limit
	}

	// ADMIN_TELEGRAM_IDS: список id через запятую
	if raw := os.Getenv("ADMIN_TELEGRAM_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("ADMIN_TELEGRAM_IDS contains invalid id %q", part)
			}
			cfg.AdminTelegramIDs = append(cfg.AdminTelegramIDs, id)
		}
	}

	// Проверяем обязательные поля
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_API_TOKEN is required but not set")
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required but not set")
	}

	// Календарь живёт рядом с каталогом, если адрес не задан отдельно
	if cfg.CalendarURL == "" {
		cfg.CalendarURL = strings.TrimRight(cfg.APIBaseURL, "/") + "/calendar"
	}

	return cfg, nil
}

// IsAdminID проверяет входит ли telegram id в список админов из конфига
func (c *Config) IsAdminID(telegramID int64) bool {
	for _, id := range c.AdminTelegramIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
