package infra

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		AppVersion string `yaml:"app_version"`
	} `yaml:"app"`
	API struct {
		TimeoutSeconds int `yaml:"timeout_seconds"` // 所有核心操作的逾時秒數
	} `yaml:"api"`
	Ingest struct {
		BatchSize int `yaml:"batch_size"` // 單一 chunk 的最大筆數
	} `yaml:"ingest"`
	MongoDB struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongodb"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`
	CertBaseURL string `yaml:"cert_base_url"`
}

var AppConfig Config

func LoadConfig() error {
	f, err := os.Open("config.yml")
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(&AppConfig)
	if err != nil {
		return err
	}

	applyDefaults()
	return nil
}

// applyDefaults 補上未設定的預設值
func applyDefaults() {
	if AppConfig.API.TimeoutSeconds <= 0 {
		AppConfig.API.TimeoutSeconds = 30
	}
	if AppConfig.Ingest.BatchSize <= 0 {
		AppConfig.Ingest.BatchSize = 50000
	}
}
