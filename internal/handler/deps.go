package handler

import (
	"hzpresence/internal/app/directory"
	"hzpresence/internal/app/hub"
	"hzpresence/internal/configs"
)

// AppDeps are the collaborators shared by the development server's handlers.
type AppDeps struct {
	Config *configs.ServerConfig
	Users  *directory.Directory
	Hub    *hub.Hub
}
