package config

import (
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv 加载 .env（不存在也没关系，生产环境直接用真实环境变量）
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}
}
