package model

import "errors"

// 业务错误定义，handler 层据此映射HTTP状态码
var (
	ErrInvalidParameters   = errors.New("创建参数无效")
	ErrInsufficientDeposit = errors.New("主办方押金不足或未授权")
	ErrInsufficientBalance = errors.New("余额不足或未授权")
	ErrCampaignNotFound    = errors.New("活动不存在")
	ErrCampaignNotActive   = errors.New("活动不在进行中，无法接受出资")
	ErrInvalidAmount       = errors.New("出资金额必须大于0")
	ErrNotExpired          = errors.New("活动尚未过期，无法关闭")
	ErrAlreadyClosed       = errors.New("活动已关闭")
	ErrAlreadyFinalized    = errors.New("活动已结算")
	ErrCapExceeded         = errors.New("铸造数量超过代币上限")
	ErrTransferFailed      = errors.New("转账失败")
)
