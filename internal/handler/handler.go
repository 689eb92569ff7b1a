// Package handler はREST APIの入出力を担当します
package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/apperror"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/booking"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/catalog"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/profile"
)

// UserHeader は操作する利用者のIDを受け取るヘッダーです
const UserHeader = "X-User-ID"

const userKey = "user_id"

// Services はハンドラーが使用するサービスの一式です
type Services struct {
	Booking *booking.Service
	Profile *profile.Service
	Catalog *catalog.Service
}

// NewRouter はルーティングを設定したgin.Engineを返します
func NewRouter(s Services, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(allowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowOrigins
	}
	corsCfg.AddAllowHeaders(UserHeader)
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	bh := NewBookingHandler(s.Booking)
	ph := NewProfileHandler(s.Profile)
	ch := NewCatalogHandler(s.Catalog)

	r.GET("/sports", ch.ListSports)
	r.GET("/sport-halls", ch.ListSportHalls)
	r.GET("/time-slots", ch.ListTimeSlots)

	r.GET("/bookings", bh.List)
	r.GET("/bookings/search", bh.Search)
	r.GET("/bookings/:id", bh.Get)
	r.GET("/users/:id/bookings", bh.ListByUser)
	r.GET("/profiles/:id", ph.Get)

	secured := r.Group("")
	secured.Use(RequireUser())
	{
		secured.POST("/bookings", bh.Create)
		secured.PUT("/bookings/:id", bh.Modify)
		secured.DELETE("/bookings/:id", bh.Delete)
		secured.POST("/bookings/:id/cancel", bh.Cancel)

		secured.DELETE("/profiles/:id", ph.Delete)
		secured.GET("/notifications", ph.ListNotifications)
		secured.PUT("/notifications/:id/read", ph.MarkRead)
	}

	admin := secured.Group("")
	admin.Use(RequireAdmin(s.Profile))
	{
		admin.POST("/bookings/:id/confirm", bh.Confirm)
		admin.POST("/bookings/:id/reject", bh.Reject)
	}

	return r
}

// RequireUser はX-User-IDヘッダーから操作する利用者を取り出します
// 認証は行いません
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": UserHeader + " header is required"})
			return
		}
		c.Set(userKey, userID)
		c.Next()
	}
}

// RequireAdmin は操作する利用者が管理者の場合のみ処理を続けます
// RequireUserの後に使用します
func RequireAdmin(profiles *profile.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := profiles.RequireAdmin(c.Request.Context(), currentUser(c)); err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userKey)
}

// writeError はエラー種別に応じたステータスと短いメッセージを返します
func writeError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindUnclassified {
		log.Printf("unclassified error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(apperror.HTTPStatus(kind), gin.H{"error": apperror.PublicMessage(err)})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
