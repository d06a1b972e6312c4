package server

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lirepay/walletcore/internal/ledger"
	"github.com/lirepay/walletcore/internal/query"
	apperrors "github.com/lirepay/walletcore/pkg/errors"
	"github.com/lirepay/walletcore/pkg/models"
)

func (s *Server) handleGetWallet(c *gin.Context) {
	kind := models.OwnerKind(c.Query("owner_kind"))
	ownerID := c.Query("owner_id")

	wallet, err := s.ledgerSvc.GetWallet(c.Request.Context(), kind, ownerID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, "wallet fetched", wallet)
}

func (s *Server) handleListTransactions(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.fail(c, apperrors.Validation("invalid wallet id"))
		return
	}

	filter, err := transactionFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	page, pageSize := s.pagination(c)

	items, total, err := s.ledgerSvc.ListTransactions(c.Request.Context(), walletID, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, "transactions fetched", pageData{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (s *Server) handleExportTransactions(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.fail(c, apperrors.Validation("invalid wallet id"))
		return
	}
	filter, err := transactionFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	items, _, err := s.ledgerSvc.ListTransactions(c.Request.Context(), walletID, filter, -1, 0)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=transactions-%s.csv", walletID))
	if err := query.ExportCSV(c.Writer, items); err != nil {
		s.fail(c, apperrors.Internal("failed to export transactions", err))
	}
}

func (s *Server) handleSendOtp(c *gin.Context) {
	var req sendOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}

	challenge, err := s.otpGate.IssueCode(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, "verification code sent", gin.H{
		"phone_number": challenge.PhoneNumber,
		"expires_at":   challenge.ExpiresAt,
	})
}

func (s *Server) handleSubmitWithdrawal(c *gin.Context) {
	var req submitWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		s.fail(c, apperrors.Validation("invalid wallet id"))
		return
	}
	request, err := s.withdrawalSvc.Submit(c.Request.Context(), walletID, req.Amount,
		models.PaymentMethod(req.PaymentMethod), models.PaymentDetails{
			PhoneNumber: req.PaymentDetails.PhoneNumber,
			OtpCode:     req.PaymentDetails.OtpCode,
			CardNumber:  req.PaymentDetails.CardNumber,
			CardHolder:  req.PaymentDetails.CardHolder,
			CardExpiry:  req.PaymentDetails.CardExpiry,
		})
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, "withdrawal request submitted", request)
}

func (s *Server) handleListWithdrawals(c *gin.Context) {
	page, pageSize := s.pagination(c)
	status := models.WithdrawalStatus(c.Query("status"))

	items, total, err := s.withdrawalSvc.List(c.Request.Context(), status, pageSize, (page-1)*pageSize)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, "withdrawal requests fetched", pageData{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (s *Server) handleApproveWithdrawal(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.fail(c, apperrors.Validation("invalid request id"))
		return
	}
	var req adminNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		s.fail(c, err)
		return
	}

	request, err := s.withdrawalSvc.Approve(c.Request.Context(), requestID, req.AdminNote)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, "withdrawal request approved", request)
}

func (s *Server) handleRejectWithdrawal(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.fail(c, apperrors.Validation("invalid request id"))
		return
	}
	var req adminNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		s.fail(c, err)
		return
	}

	request, err := s.withdrawalSvc.Reject(c.Request.Context(), requestID, req.AdminNote)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, "withdrawal request rejected", request)
}

func (s *Server) handleCancelWithdrawal(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.fail(c, apperrors.Validation("invalid request id"))
		return
	}
	var req cancelWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}

	request, err := s.withdrawalSvc.Cancel(c.Request.Context(), requestID, req.OwnerID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, "withdrawal request cancelled", request)
}

func (s *Server) handleTransfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err)
		return
	}

	sourceID, err := uuid.Parse(req.SourceWalletID)
	if err != nil {
		s.fail(c, apperrors.Validation("invalid source wallet id"))
		return
	}
	debit, credit, err := s.transferSvc.Transfer(c.Request.Context(), sourceID,
		req.RecipientAccountID, req.Amount, req.Description, req.Secret)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, "transfer completed", gin.H{
		"debit":  debit,
		"credit": credit,
	})
}

// pagination parses page/page_size query params, clamping size to the
// configured maximum.
func (s *Server) pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(s.defaultPageSize)))
	if pageSize < 1 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	return page, pageSize
}

// transactionFilter parses the listing filter query params.
func transactionFilter(c *gin.Context) (ledger.Filter, error) {
	filter := ledger.Filter{
		Type:     models.TransactionType(c.Query("type")),
		Status:   models.TransactionStatus(c.Query("status")),
		FreeText: c.Query("q"),
	}
	if from := c.Query("date_from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return filter, apperrors.Validation("invalid date_from").WithField("date_from", "expected YYYY-MM-DD")
		}
		filter.DateFrom = t
	}
	if to := c.Query("date_to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return filter, apperrors.Validation("invalid date_to").WithField("date_to", "expected YYYY-MM-DD")
		}
		// Include the whole end day
		filter.DateTo = t.Add(24*time.Hour - time.Nanosecond)
	}
	return filter, nil
}
