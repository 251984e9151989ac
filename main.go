package main

import (
	"keydrop/exchange-bot/api"
	"keydrop/exchange-bot/bot"
	"keydrop/exchange-bot/config"
	"keydrop/exchange-bot/db"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	database, err := db.New()
	if err != nil {
		panic(err)
	}

	tg, err := tgbotapi.NewBotAPI(viper.GetString("bot.token"))
	if err != nil {
		panic(err)
	}

	b := bot.New(tg, database)

	go func() {
		if err := api.Serve(); err != nil {
			zap.L().Error("Heartbeat listener stopped", zap.Error(err))
		}
	}()

	zap.L().Info("Bot starting", zap.String("username", tg.Self.UserName))

	b.Poll(tg)
}
