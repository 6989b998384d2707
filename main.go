package main

import (
	"github.com/biosecret/task-api/app"
	_ "github.com/biosecret/task-api/docs"
)

// @title                       Task API
// @version                     1.0
// @description                 REST API quản lý task có xác thực JWT và phân quyền theo owner/admin.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// setup and run app
	err := app.SetupAndRunApp()
	if err != nil {
		panic(err)
	}
}
