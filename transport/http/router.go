package http

import (
	"github.com/gin-gonic/gin"

	"github.com/layer-3/encryptme/ports"
	"github.com/layer-3/encryptme/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, ledger ports.Ledger, vault ports.BidVault) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	handlers := NewHandlers(authService, ledger, vault)

	router.POST("/sessions", handlers.CreateSession)
	router.GET("/sessions/:address", handlers.SessionStatus)
	router.GET("/accounts/:address", handlers.Account)

	actions := router.Group("/actions")
	{
		actions.POST("/register", handlers.Register)
		actions.POST("/grant", handlers.Grant)
		actions.POST("/send", handlers.Send)
		actions.POST("/decrypt", handlers.Decrypt)
	}

	router.GET("/messages/count", handlers.MessageCount)
	router.GET("/messages/:id", handlers.Message)
	router.GET("/bids/:address", handlers.BidStatus)

	// Bidder is the token subject
	api := router.Group("/")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.POST("/logout", handlers.Logout)
		api.POST("/bids/commit", handlers.CommitBid)
		api.POST("/bids/reveal", handlers.RevealBid)
		api.POST("/bids/cancel", handlers.CancelBid)
	}

	return router
}
