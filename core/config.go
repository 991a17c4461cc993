package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Debug    bool
	TestMode bool
	Env      string
	Build    string
	AppName  string
	WorkDir  string

	SecretKey        string
	DefaultFromEmail mail.Address
	SendgridApiKey   string
	RollbarToken     string

	SessionTTL               time.Duration
	NotificationPollInterval time.Duration
	ExtractionPollInterval   time.Duration
	DigestEnabled            bool

	Server struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	Marketplace struct {
		BaseURL string
		Timeout time.Duration
	}

	Database struct {
		Enabled       bool
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}
}

func (c *Config) DatabaseAddress() string {
	return c.Database.Host + ":" + c.Database.Port
}

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Appalto Smart")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "x0q5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sessionTTL", 7*24*time.Hour)
	v.SetDefault("notificationPollInterval", 30*time.Second)
	v.SetDefault("extractionPollInterval", 2*time.Second)
	v.SetDefault("digestEnabled", false)
	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:8010")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("marketplaceBaseURL", "http://localhost:9000")
	v.SetDefault("marketplaceTimeout", 30*time.Second)
	v.SetDefault("databaseEnabled", false)
	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "appalto_webclient")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseDisableTLS", true)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		WorkDir:          wd,
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: mail.Address{Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),

		SessionTTL:               v.GetDuration("sessionTTL"),
		NotificationPollInterval: v.GetDuration("notificationPollInterval"),
		ExtractionPollInterval:   v.GetDuration("extractionPollInterval"),
		DigestEnabled:            v.GetBool("digestEnabled"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.DebugHost = v.GetString("serverDebugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Marketplace.BaseURL = strings.TrimRight(v.GetString("marketplaceBaseURL"), "/")
	conf.Marketplace.Timeout = v.GetDuration("marketplaceTimeout")
	conf.Database.Enabled = v.GetBool("databaseEnabled")
	conf.Database.Engine = v.GetString("databaseEngine")
	conf.Database.Name = v.GetString("databaseName")
	conf.Database.Host = v.GetString("databaseHost")
	conf.Database.Port = v.GetString("databasePort")
	conf.Database.User = v.GetString("databaseUser")
	conf.Database.Password = v.GetString("databasePassword")
	conf.Database.AdminUser = v.GetString("databaseAdminUser")
	conf.Database.AdminPassword = v.GetString("databaseAdminPassword")
	conf.Database.DisableTLS = v.GetBool("databaseDisableTLS")
	return conf
}
