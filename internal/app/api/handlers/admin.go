package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/lumifin/reconciler/internal/app/service/analysis"
	"github.com/lumifin/reconciler/internal/app/service/checkout"
	subsvc "github.com/lumifin/reconciler/internal/app/service/subscription"
	"github.com/lumifin/reconciler/internal/models"
	"github.com/lumifin/reconciler/pkg/response"
	"github.com/lumifin/reconciler/pkg/types"
)

type PaymentItem struct {
	ID             string                `json:"id"`
	UserID         string                `json:"user_id"`
	Provider       types.PaymentProvider `json:"provider"`
	SourceEventID  string                `json:"source_event_id"`
	TransactionKey string                `json:"transaction_key"`
	ProductID      string                `json:"product_id"`
	Type           types.PaymentType     `json:"type"`
	Amount         int64                 `json:"amount"`
	Currency       string                `json:"currency"`
	Status         types.PaymentStatus   `json:"status"`
	Method         string                `json:"method"`
	PurchaseAt     time.Time             `json:"purchase_at"`
	CreatedAt      time.Time             `json:"created_at"`
}

func toPaymentItem(m *models.Payment) *PaymentItem {
	return &PaymentItem{
		ID:             m.ID,
		UserID:         m.UserID,
		Provider:       m.Provider,
		SourceEventID:  m.SourceEventID,
		TransactionKey: m.TransactionKey,
		ProductID:      m.ProductID,
		Type:           m.Type,
		Amount:         m.Amount,
		Currency:       m.Currency,
		Status:         m.Status,
		Method:         m.Method,
		PurchaseAt:     m.PurchaseAt,
		CreatedAt:      m.CreatedAt,
	}
}

type ListPaymentsResponse struct {
	Items []*PaymentItem `json:"items"`
	Total int64          `json:"total"`
}

// ApiListPayments retrieves a paginated and filterable list of payments.
func ApiListPayments(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkout.ScanPaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanPayments(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		items := lo.Map(res.Items, func(it *models.Payment, _ int) *PaymentItem { return toPaymentItem(it) })
		c.JSON(http.StatusOK, response.OKT(&ListPaymentsResponse{Items: items, Total: res.Total}))
	}
}

// ApiGrantPayment grants a product to a user outside the payment
// processor, running the same fan-out as a paid checkout.
func ApiGrantPayment(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID     string `json:"user_id"`
			ProductID  string `json:"product_id"`
			Quantity   int64  `json:"quantity"`
			OperatorID string `json:"operator_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.UserID == "" || req.ProductID == "" || req.OperatorID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id or product_id or operator_id"))
			return
		}
		res, err := svc.GrantManual(c.Request.Context(), req.UserID, req.ProductID, req.Quantity, req.OperatorID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// ApiTerminateSubscription cancels a user's subscription with the manual
// override marker, so later provider signals cannot silently reactivate it.
func ApiTerminateSubscription(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID     string `json:"user_id"`
			OperatorID string `json:"operator_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.UserID == "" || req.OperatorID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id or operator_id"))
			return
		}
		if err := sub.ManualTerminate(c.Request.Context(), req.UserID, req.OperatorID); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// ApiGetSubscription returns the local subscription record for a user.
func ApiGetSubscription(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		record, err := sub.Get(c.Request.Context(), req.UserID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(record))
	}
}

// ApiGetAnalysisCredits returns the per-user analysis credit balance.
func ApiGetAnalysisCredits(svc *analysis.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		credits, err := svc.Credits(c.Request.Context(), req.UserID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(credits))
	}
}

// ApiBackfillAnalysisTasks repairs analysis payments left without a task.
func ApiBackfillAnalysisTasks(svc *analysis.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		created, err := svc.BackfillTasks(c.Request.Context(), req.UserID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]int{"created": created}))
	}
}

// ApiAdvanceAnalysisTask moves one analysis task forward in its lifecycle.
func ApiAdvanceAnalysisTask(svc *analysis.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			TicketCode string `json:"ticket_code"`
			Status     string `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.TicketCode == "" || req.Status == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing ticket_code or status"))
			return
		}
		task, err := svc.AdvanceTask(c.Request.Context(), req.TicketCode, models.AnalysisTaskStatus(req.Status))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(task))
	}
}

func RegisterAdminRoutes(r gin.IRouter, checkoutSvc *checkout.Service, sub *subsvc.Service, analysisSvc *analysis.Service) {
	r.POST("/list_payments", ApiListPayments(checkoutSvc))
	r.POST("/grant_payment", ApiGrantPayment(checkoutSvc))
	r.POST("/terminate_subscription", ApiTerminateSubscription(sub))
	r.POST("/get_subscription", ApiGetSubscription(sub))
	r.POST("/get_analysis_credits", ApiGetAnalysisCredits(analysisSvc))
	r.POST("/backfill_analysis_tasks", ApiBackfillAnalysisTasks(analysisSvc))
	r.POST("/advance_analysis_task", ApiAdvanceAnalysisTask(analysisSvc))
}
