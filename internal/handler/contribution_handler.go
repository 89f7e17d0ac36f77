package handler

import (
	"net/http"

	"github.com/csacanam/fanio-sub001/internal/logic"
	"github.com/gin-gonic/gin"
)

// ContributionHandler 出资记录处理器
type ContributionHandler struct {
	ledgerLogic *logic.LedgerLogic
}

// NewContributionHandler 创建出资记录处理器
func NewContributionHandler(ledgerLogic *logic.LedgerLogic) *ContributionHandler {
	return &ContributionHandler{
		ledgerLogic: ledgerLogic,
	}
}

// GetCampaignContributions 获取活动出资记录
func (h *ContributionHandler) GetCampaignContributions(c *gin.Context) {
	campaignId, err := parseCampaignId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	page, pageSize := parsePagination(c)

	contributions, total, err := h.ledgerLogic.GetContributions(campaignId, page, pageSize)
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

	SuccessResponse(c, http.StatusOK, "获取出资记录成功", GetContributionsResponse{
		Contributions: ToContributionResponseList(contributions),
		Pagination:    pagination,
	})
}

// GetContributionStats 获取活动出资统计信息
func (h *ContributionHandler) GetContributionStats(c *gin.Context) {
	campaignId, err := parseCampaignId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	stats, err := h.ledgerLogic.GetContributionStats(campaignId)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取出资统计成功", stats)
}
