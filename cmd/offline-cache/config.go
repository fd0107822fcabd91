package main

import (
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port      int      `yaml:"port" env:"OFFLINE_CACHE_PORT"`
	Origin    string   `yaml:"origin" env:"OFFLINE_CACHE_ORIGIN"`
	Host      string   `yaml:"host" env:"OFFLINE_CACHE_HOST"`
	DB        string   `yaml:"db" env:"OFFLINE_CACHE_DB"`
	CacheName string   `yaml:"cacheName" env:"OFFLINE_CACHE_NAME"`
	Assets    []string `yaml:"assets" env:"OFFLINE_CACHE_ASSETS" envSeparator:","`
}

// defaultConfig carries the app shell of the gym-management frontend:
// the pages and static files every signed-in screen needs offline.
func defaultConfig() Config {
	return Config{
		Port:      8080,
		DB:        "offline-cache.db",
		CacheName: "fitness-app-v1",
		Assets: []string{
			"/",
			"/dashboard",
			"/add_member",
			"/fees",
			"/static/manifest.json",
			"/static/style.css",
			"/static/icon.png",
		},
	}
}

// getConfig layers the config file (if any) and environment variables
// over the defaults. Flags are applied on top by the caller.
func getConfig(filename string) (Config, error) {
	config := defaultConfig()
	if filename != "" {
		configBytes, err := os.ReadFile(filename)
		if err != nil {
			return config, err
		}
		if err := yaml.Unmarshal(configBytes, &config); err != nil {
			return config, err
		}
	}
	if err := env.Parse(&config); err != nil {
		return config, err
	}
	return config, nil
}
