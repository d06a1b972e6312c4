package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lirepay/walletcore/internal/ledger"
	"github.com/lirepay/walletcore/internal/otp"
	"github.com/lirepay/walletcore/internal/transfer"
	"github.com/lirepay/walletcore/internal/withdrawal"
)

// Server represents the HTTP server
type Server struct {
	logger          *zap.Logger
	ledgerSvc       ledger.LedgerService
	otpGate         otp.Gate
	withdrawalSvc   withdrawal.WorkflowService
	transferSvc     transfer.TransferService
	defaultPageSize int
	maxPageSize     int
}

// NewServer creates a new HTTP server
func NewServer(
	logger *zap.Logger,
	ledgerSvc ledger.LedgerService,
	otpGate otp.Gate,
	withdrawalSvc withdrawal.WorkflowService,
	transferSvc transfer.TransferService,
	defaultPageSize, maxPageSize int,
) *Server {
	return &Server{
		logger:          logger,
		ledgerSvc:       ledgerSvc,
		otpGate:         otpGate,
		withdrawalSvc:   withdrawalSvc,
		transferSvc:     transferSvc,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// Router builds the gin engine with all routes and middleware
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(ginzap.Ginzap(s.logger, "2006-01-02T15:04:05Z07:00", true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(cors.Default())
	router.Use(traceMiddleware())

	// Health and metrics
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			wallet := v1.Group("/wallet")
			{
				wallet.GET("", s.handleGetWallet)
				wallet.GET("/:id/transactions", s.handleListTransactions)
				wallet.GET("/:id/transactions/export", s.handleExportTransactions)
			}

			otpGroup := v1.Group("/otp")
			{
				otpGroup.POST("/send", s.handleSendOtp)
				otpGroup.POST("/resend", s.handleSendOtp)
			}

			withdrawals := v1.Group("/withdrawals")
			{
				withdrawals.POST("", s.handleSubmitWithdrawal)
				withdrawals.GET("", s.handleListWithdrawals)
				withdrawals.POST("/:id/approve", s.handleApproveWithdrawal)
				withdrawals.POST("/:id/reject", s.handleRejectWithdrawal)
				withdrawals.POST("/:id/cancel", s.handleCancelWithdrawal)
			}

			v1.POST("/transfers", s.handleTransfer)
		}
	}

	return router
}
