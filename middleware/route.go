package middleware

import (
	"github.com/gin-gonic/gin"

	midsec "github.com/homeproapp/realtorapp-server-sub001/middleware/security"
)

type RouteOpt struct {
	IsAuth bool
	Auth   *midsec.Options
}

func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.POST(path, midsec.Middleware(opt.Auth), handler)
	} else {
		r.POST(path, handler)
	}
}

func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.GET(path, midsec.Middleware(opt.Auth), handler)
	} else {
		r.GET(path, handler)
	}
}

func DELETE(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.DELETE(path, midsec.Middleware(opt.Auth), handler)
	} else {
		r.DELETE(path, handler)
	}
}

func PATCH(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.PATCH(path, midsec.Middleware(opt.Auth), handler)
	} else {
		r.PATCH(path, handler)
	}
}
