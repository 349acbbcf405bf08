package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/zarachi/zarachi-backend/internal/config"
	"github.com/zarachi/zarachi-backend/internal/db"
	"github.com/zarachi/zarachi-backend/internal/mail"
	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/server"
	"github.com/zarachi/zarachi-backend/internal/service"
	"github.com/zarachi/zarachi-backend/internal/storage"
	"github.com/zarachi/zarachi-backend/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog := logger.New(cfg.LogLevel, logger.FileConfig{
		Enabled:    cfg.LogFile != "",
		Path:       cfg.LogFile,
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
	})
	defer zlog.Sync()

	conn, err := db.Connect(cfg)
	if err != nil {
		zlog.Fatal("db connect failed", zap.Error(err))
	}
	if err := conn.AutoMigrate(
		&model.Product{},
		&model.Variant{},
		&model.OrderSerial{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrphanPayment{},
		&model.ReceiptEmailStatus{},
		&model.Customer{},
		&model.ShippingLabel{},
	); err != nil {
		zlog.Fatal("auto migrate failed", zap.Error(err))
	}

	rdb, err := db.ConnectRedis(cfg)
	if err != nil {
		// Quote caching is the only redis consumer; run without it.
		zlog.Warn("redis unavailable, shipping quote cache disabled", zap.Error(err))
		rdb = nil
	}

	sender := mail.NewSMTPSender(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
	})

	var uploader service.ImageUploader
	if cfg.StorageBucket != "" {
		up, err := storage.NewUploader(context.Background(), cfg.StorageBucket)
		if err != nil {
			zlog.Warn("storage unavailable, product image upload disabled", zap.Error(err))
		} else {
			defer up.Close()
			uploader = up
		}
	}

	srv, err := server.New(server.Deps{
		Config:   cfg,
		DB:       conn,
		Redis:    rdb,
		Sender:   sender,
		Uploader: uploader,
		Logger:   zlog,
	})
	if err != nil {
		zlog.Fatal("server init failed", zap.Error(err))
	}

	addr := ":" + cfg.Port
	zlog.Info("starting server", zap.String("addr", addr))
	if err := srv.Start(addr); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
