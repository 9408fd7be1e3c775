package router

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/lifeos/internal/handler"
)

// Options 描述路由层需要的会话与静态资源配置
type Options struct {
	SessionSecret string
	UploadDir     string
	UploadURLPath string
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 30 * 24 * 60 * 60})
	r.Use(sessions.Sessions("lifeos_session", store))

	if dir := strings.TrimSpace(opts.UploadDir); dir != "" {
		urlPath := "/" + strings.Trim(strings.TrimSpace(opts.UploadURLPath), "/")
		if urlPath == "/" {
			urlPath = "/static/uploads"
		}
		r.Static(urlPath, dir)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/session", api.Login)
		apiGroup.DELETE("/session", api.Logout)

		authed := apiGroup.Group("")
		authed.Use(api.PrincipalRequired())
		{
			authed.GET("/session", api.Whoami)

			todo := authed.Group("/todo")
			{
				todo.GET("", api.GetTodos)
				todo.GET("/today", api.GetTodayTodos)
				todo.POST("", api.CreateTodo)
				todo.POST("/quick", api.QuickAddTodo)
				todo.PATCH("", api.UpdateTodo)
				todo.PATCH("/:id", api.UpdateTodo)
				todo.DELETE("", api.DeleteTodo)
				todo.DELETE("/:id", api.DeleteTodo)
				todo.POST("/status", api.UpsertTodoStatus)
				todo.DELETE("/status", api.ClearTodoStatus)
			}

			brain := authed.Group("/brain")
			{
				brain.GET("/run", api.RunBrain)
				brain.POST("/run", api.RunBrain)
				brain.GET("/history", api.BrainHistory)
				brain.GET("/checkins", api.BrainCheckins)
				brain.POST("/checkins/answer", api.AnswerCheckin)
			}

			media := authed.Group("/media")
			{
				media.GET("", api.ListMedia)
				media.POST("", api.CreateMedia)
				media.GET("/tags", api.ListMediaTags)
				media.POST("/upload", api.UploadMedia)
				media.GET("/:id", api.GetMedia)
				media.DELETE("/:id", api.DeleteMedia)
				media.POST("/:id/view", api.RecordMediaView)
				media.PUT("/:id/favorite", api.SetMediaFavorite)
			}
		}
	}

	return r
}
