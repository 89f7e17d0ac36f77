package handler

import (
	"net/http"
	"strconv"

	"github.com/csacanam/fanio-sub001/internal/logic"
	"github.com/gin-gonic/gin"
)

// CampaignHandler 活动处理器
type CampaignHandler struct {
	campaignLogic *logic.CampaignLogic
}

// NewCampaignHandler 创建活动处理器
func NewCampaignHandler(campaignLogic *logic.CampaignLogic) *CampaignHandler {
	return &CampaignHandler{
		campaignLogic: campaignLogic,
	}
}

// CreateCampaign 创建活动
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var params logic.CreateCampaignParams
	if err := c.ShouldBindJSON(&params); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	campaign, err := h.campaignLogic.CreateCampaign(c.Request.Context(), params)
	if err != nil {
		BusinessErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "活动创建成功", ToCampaignResponse(campaign))
}

// Contribute 支持者出资
func (h *CampaignHandler) Contribute(c *gin.Context) {
	campaignId, err := parseCampaignId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	var req ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	raisedAmount, err := h.campaignLogic.Contribute(c.Request.Context(), campaignId, req.Backer, req.Amount)
	if err != nil {
		BusinessErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "出资成功", ContributeResponse{
		CampaignId:   campaignId,
		RaisedAmount: raisedAmount,
	})
}

// CloseCampaign 关闭过期活动
func (h *CampaignHandler) CloseCampaign(c *gin.Context) {
	campaignId, err := parseCampaignId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	if err := h.campaignLogic.CloseExpiredCampaign(c.Request.Context(), campaignId); err != nil {
		BusinessErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "活动已关闭并启动退款", nil)
}

// GetCampaignStatus 查询活动状态
func (h *CampaignHandler) GetCampaignStatus(c *gin.Context) {
	campaignId, err := parseCampaignId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	status, err := h.campaignLogic.GetStatus(campaignId)
	if err != nil {
		BusinessErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取活动状态成功", status)
}

// GetCampaignToken 查询活动凭证代币
func (h *CampaignHandler) GetCampaignToken(c *gin.Context) {
	campaignId, err := parseCampaignId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	eventToken, err := h.campaignLogic.GetCampaignToken(campaignId)
	if err != nil {
		BusinessErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取凭证代币成功", ToEventTokenResponse(eventToken))
}

// GetCampaigns 获取活动列表
func (h *CampaignHandler) GetCampaigns(c *gin.Context) {
	status := c.Query("status")
	page, pageSize := parsePagination(c)

	campaigns, total, err := h.campaignLogic.GetCampaigns(status, page, pageSize)
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

	SuccessResponse(c, http.StatusOK, "获取活动列表成功", GetCampaignsResponse{
		Campaigns:  ToCampaignResponseList(campaigns),
		Pagination: pagination,
	})
}

// GetCampaign 获取活动详情
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	campaignId, err := parseCampaignId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	campaign, err := h.campaignLogic.GetCampaign(campaignId)
	if err != nil {
		BusinessErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取活动详情成功", ToCampaignResponse(campaign))
}

// GetGlobalStats 获取全局统计信息
func (h *CampaignHandler) GetGlobalStats(c *gin.Context) {
	stats, err := h.campaignLogic.GetGlobalStats()
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取全局统计成功", stats)
}

// parseCampaignId 解析路径中的活动ID
func parseCampaignId(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
