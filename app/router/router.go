package router

import (
	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dochub/backend-go/app/controllers"
	"github.com/dochub/backend-go/app/middleware"
)

// Init registers all routes. Must be called after bootstrap.
func Init() {
	web.InsertFilter("/*", web.BeforeRouter, middleware.RequestIDFilter)
	web.InsertFilter("/*", web.BeforeRouter, middleware.JWTAuthFilter)

	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Handler("/metrics", promhttp.Handler())

	authController := &controllers.AuthController{}
	web.Router("/api/auth/token", authController, "post:Token")
	web.Router("/api/auth/me", authController, "get:Me")

	indexController := &controllers.IndexController{}
	web.Router("/api/indexes", indexController, "get:List;post:Create")
	web.Router("/api/indexes/:name", indexController, "get:Get;delete:Delete")

	documentController := &controllers.DocumentController{}
	web.Router("/api/indexes/:name/documents", documentController, "get:List;post:Upload")
	web.Router("/api/indexes/:name/documents/:doc_id", documentController, "delete:Delete")

	queryController := &controllers.QueryController{}
	web.Router("/api/query", queryController, "post:Ask")
}
