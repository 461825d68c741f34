package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/agent-console/internal/logger"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/provider"
	"github.com/agent-console/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskExchangeCodeExpire, c.handleExchangeCodeExpire)
	mux.HandleFunc(queue.TaskLoginLogRecord, c.handleLoginLogRecord)
}

func (c *Consumer) handleExchangeCodeExpire(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_exchange_code_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ExchangeCodeExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_exchange_code_expire_unmarshal_failed", "error", err)
		return err
	}
	if c.PointsService == nil {
		logger.Warnw("worker_exchange_code_expire_skip_points_service_nil")
		return nil
	}
	affected, err := c.PointsService.ExpireOverdueExchangeCodes()
	if err != nil {
		logger.Warnw("worker_exchange_code_expire_failed", "error", err)
		return err
	}
	if affected > 0 {
		logger.Infow("worker_exchange_code_expired", "count", affected)
	}
	return nil
}

func (c *Consumer) handleLoginLogRecord(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_login_log_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LoginLogPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_login_log_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.Username) == "" && payload.UserID == 0 {
		logger.Debugw("worker_login_log_skip_empty_payload")
		return nil
	}
	log := &models.UserLoginLog{
		Username:   strings.TrimSpace(payload.Username),
		Status:     payload.Status,
		FailReason: payload.FailReason,
		IP:         payload.IP,
		UserAgent:  payload.UserAgent,
	}
	if payload.UserID != 0 {
		userID := payload.UserID
		log.UserID = &userID
	}
	if err := c.UserRepo.CreateLoginLog(log); err != nil {
		logger.Warnw("worker_login_log_create_failed", "username", payload.Username, "error", err)
		return err
	}
	return nil
}
