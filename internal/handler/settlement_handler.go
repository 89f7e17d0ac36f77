package handler

import (
	"net/http"

	"github.com/csacanam/fanio-sub001/internal/logic"
	"github.com/gin-gonic/gin"
)

// SettlementHandler 结算与退款记录处理器
type SettlementHandler struct {
	refundLogic     *logic.RefundLogic
	settlementLogic *logic.SettlementLogic
}

// NewSettlementHandler 创建结算与退款记录处理器
func NewSettlementHandler(refundLogic *logic.RefundLogic, settlementLogic *logic.SettlementLogic) *SettlementHandler {
	return &SettlementHandler{
		refundLogic:     refundLogic,
		settlementLogic: settlementLogic,
	}
}

// GetCampaignRefunds 获取活动退款记录
func (h *SettlementHandler) GetCampaignRefunds(c *gin.Context) {
	campaignId, err := parseCampaignId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	page, pageSize := parsePagination(c)

	refunds, total, err := h.refundLogic.GetCampaignRefunds(campaignId, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	pagination := Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}

	SuccessResponse(c, http.StatusOK, "获取退款记录成功", gin.H{
		"refunds":    refunds,
		"pagination": pagination,
	})
}

// GetCampaignSettlements 获取活动结算记录
func (h *SettlementHandler) GetCampaignSettlements(c *gin.Context) {
	campaignId, err := parseCampaignId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	settlements, err := h.settlementLogic.GetSettlementRecords(campaignId)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取结算记录成功", settlements)
}
