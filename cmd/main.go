package main

import (
	"CourseMarket/internal/app"
	"CourseMarket/internal/config"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.MustLoad()
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	app.Run(cfg)
}
