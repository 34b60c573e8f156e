package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string `mapstructure:"PORT"`
	DatabasePath   string `mapstructure:"DATABASE_PATH"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	AwardImageDir  string `mapstructure:"AWARD_IMAGE_DIR"`
	AwardImageBase string `mapstructure:"AWARD_IMAGE_BASE"`
	IconDir        string `mapstructure:"ICON_DIR"`
	IconBase       string `mapstructure:"ICON_BASE"`
	SMTPHost       string `mapstructure:"SMTP_HOST"`
	SMTPPort       int    `mapstructure:"SMTP_PORT"`
	SMTPUser       string `mapstructure:"SMTP_USER"`
	SMTPPass       string `mapstructure:"SMTP_PASS"`
	SMTPFrom       string `mapstructure:"SMTP_FROM"`
	SeedAdminEmail string `mapstructure:"SEED_ADMIN_EMAIL"`
	SeedAdminPass  string `mapstructure:"SEED_ADMIN_PASSWORD"`
	EnableCORS     bool   `mapstructure:"ENABLE_CORS"`
}

func LoadConfig() *Config {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "microcred.db")
	viper.SetDefault("AWARD_IMAGE_DIR", "static/awards")
	viper.SetDefault("AWARD_IMAGE_BASE", "/static/awards")
	viper.SetDefault("ICON_DIR", "static/icons")
	viper.SetDefault("ICON_BASE", "/static/icons")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_FROM", "no-reply@example.com")

	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("DATABASE_PATH")
	viper.BindEnv("AWARD_IMAGE_DIR")
	viper.BindEnv("AWARD_IMAGE_BASE")
	viper.BindEnv("ICON_DIR")
	viper.BindEnv("ICON_BASE")
	viper.BindEnv("SMTP_HOST")
	viper.BindEnv("SMTP_PORT")
	viper.BindEnv("SMTP_USER")
	viper.BindEnv("SMTP_PASS")
	viper.BindEnv("SMTP_FROM")
	viper.BindEnv("SEED_ADMIN_EMAIL")
	viper.BindEnv("SEED_ADMIN_PASSWORD")
	viper.BindEnv("ENABLE_CORS")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
