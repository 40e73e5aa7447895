package handler

import (
	"coachlink/internal/app/signal"
	"coachlink/internal/app/storage"
	"coachlink/internal/app/store"
	"coachlink/internal/configs"
)

type AppDeps struct {
	Hub            *signal.Hub
	Config         *configs.AppConfig
	StorageService storage.StorageService
	Store          *store.Store
}
