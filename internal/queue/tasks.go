package queue

import (
	"encoding/json"
	"time"

	"github.com/agent-console/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskExchangeCodeExpire 过期兑换码清扫任务
	TaskExchangeCodeExpire = constants.TaskExchangeCodeExpire
	// TaskLoginLogRecord 登录日志落库任务
	TaskLoginLogRecord = constants.TaskLoginLogRecord
)

// ExchangeCodeExpirePayload 过期兑换码清扫任务载荷
type ExchangeCodeExpirePayload struct {
	TriggeredAt time.Time `json:"triggered_at"`
}

// LoginLogPayload 登录日志任务载荷
type LoginLogPayload struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason"`
	IP         string `json:"ip"`
	UserAgent  string `json:"user_agent"`
}

// NewExchangeCodeExpireTask 创建过期兑换码清扫任务
func NewExchangeCodeExpireTask(payload ExchangeCodeExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExchangeCodeExpire, body), nil
}

// NewLoginLogTask 创建登录日志任务
func NewLoginLogTask(payload LoginLogPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLoginLogRecord, body), nil
}
