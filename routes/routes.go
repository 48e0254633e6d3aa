package routes

import (
	"Gin_postgres_redis_storage_tracker/app"
	"Gin_postgres_redis_storage_tracker/controllers"
	"time"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	uc := controllers.GetUserController(s)
	itemCtl := controllers.NewItemController(s)
	lendCtl := controllers.NewLendingController(s)
	txCtl := controllers.NewTransactionController(s)
	inviteCtl := controllers.GetInviteController(s)

	// 复用的中间件
	authMW := app.AuthRequired(s.AppSess, s.Repo)
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)

	// ------------------------------
	// 账号（公开：注册/登录）
	// ------------------------------
	users := r.Group("/api/users")
	{
		users.POST("/register", uc.Register)
		users.POST("/login", uc.Login)
	}

	usersAuth := users.Group("", authMW, seenMW)
	{
		usersAuth.POST("/logout", uc.Logout)
		usersAuth.GET("/me", uc.Me)
	}

	// ------------------------------
	// 用户管理（仅管理员）
	// ------------------------------
	usersAdmin := users.Group("", authMW, adminMW)
	{
		usersAdmin.GET("", uc.ListUsers) // ?q=&page=&size=
		usersAdmin.GET("/:id", uc.GetUser)
		usersAdmin.DELETE("/:id", uc.DeleteUser)
	}

	// ------------------------------
	// 邀请（仅管理员）
	// ------------------------------
	admin := r.Group("/admin", authMW, adminMW)
	{
		admin.POST("/invites", inviteCtl.CreateInvite)
	}

	// ------------------------------
	// 物品：登记/浏览/编辑 + 借还
	// ------------------------------
	items := r.Group("/api/items", authMW, seenMW)
	{
		items.POST("", itemCtl.CreateItem)
		items.GET("", itemCtl.ListItems) // ?q=&status=&ownerId=&page=&size=
		items.GET("/:id", itemCtl.GetItem)
		items.PUT("/:id", itemCtl.UpdateItem)
		items.DELETE("/:id", itemCtl.DeleteItem)

		items.POST("/:id/loan", lendCtl.Loan)
		items.POST("/:id/return", lendCtl.Return)
	}

	// ------------------------------
	// 账本（只读）
	// ------------------------------
	tx := r.Group("/api/transactions", authMW, seenMW)
	{
		tx.GET("", txCtl.ListTransactions) // ?itemId=&userId=&kind=&page=&size=
	}
}
