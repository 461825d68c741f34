package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/logger"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	exchangeCodeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	exchangeCodeLength      = 16
	exchangeCodeMaxAttempts = 100
	conflictRetryAttempts   = 3
)

// PointsService 积分账本服务
type PointsService struct {
	pointsRepo   repository.PointsRepository
	userRepo     repository.UserRepository
	exchangeRepo repository.ExchangeCodeRepository
}

// PointsRechargeInput 积分充值输入
type PointsRechargeInput struct {
	UserID uint
	Amount models.Money
	Method string
	Remark string
}

// PointsConsumeInput 积分扣减输入
type PointsConsumeInput struct {
	UserID    uint
	Points    int64
	UsageType string
	RelatedID string
	Remark    string
}

// PointsTransferInput 积分转赠输入
type PointsTransferInput struct {
	FromUserID uint
	ToUserID   uint
	Points     int64
	Remark     string
}

// PointsTransferResult 积分转赠结果
type PointsTransferResult struct {
	TransferID    string                       `json:"transfer_id"`
	UsageRecord   *models.PointsUsageRecord    `json:"usage_record"`
	CreditRecord  *models.PointsRechargeRecord `json:"credit_record"`
	SenderBalance int64                        `json:"sender_balance"`
}

// ExchangeCodeCreateInput 创建兑换码输入
type ExchangeCodeCreateInput struct {
	CreatorID uint
	Points    int64
	ExpiresAt *time.Time
	Remark    string
}

// PointsInfo 积分概览
type PointsInfo struct {
	Balance         int64                         `json:"balance"`
	TotalRecharged  int64                         `json:"total_recharged"`
	TotalUsed       int64                         `json:"total_used"`
	RecentRecharges []models.PointsRechargeRecord `json:"recent_recharges"`
}

// NewPointsService 创建积分账本服务
func NewPointsService(
	pointsRepo repository.PointsRepository,
	userRepo repository.UserRepository,
	exchangeRepo repository.ExchangeCodeRepository,
) *PointsService {
	return &PointsService{
		pointsRepo:   pointsRepo,
		userRepo:     userRepo,
		exchangeRepo: exchangeRepo,
	}
}

// GetInfo 获取用户积分概览
func (s *PointsService) GetInfo(userID uint) (*PointsInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrAccountNotFound
	}
	totalRecharged, err := s.pointsRepo.SumRechargePoints(userID)
	if err != nil {
		return nil, err
	}
	totalUsed, err := s.pointsRepo.SumUsagePoints(userID)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.pointsRepo.ListRechargeRecords(repository.RechargeRecordListFilter{
		UserID:   userID,
		Page:     1,
		PageSize: 10,
	})
	if err != nil {
		return nil, err
	}
	return &PointsInfo{
		Balance:         user.PointsBalance,
		TotalRecharged:  totalRecharged,
		TotalUsed:       totalUsed,
		RecentRecharges: recent,
	}, nil
}

// ListRechargeRecords 查询充值记录
func (s *PointsService) ListRechargeRecords(filter repository.RechargeRecordListFilter) ([]models.PointsRechargeRecord, int64, error) {
	return s.pointsRepo.ListRechargeRecords(filter)
}

// ListUsageRecords 查询使用记录
func (s *PointsService) ListUsageRecords(filter repository.UsageRecordListFilter) ([]models.PointsUsageRecord, int64, error) {
	return s.pointsRepo.ListUsageRecords(filter)
}

// Recharge 积分充值（模拟支付，1 元 = 1 积分）
func (s *PointsService) Recharge(input PointsRechargeInput) (*models.PointsRechargeRecord, error) {
	if input.UserID == 0 {
		return nil, ErrAccountNotFound
	}
	amount := input.Amount.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	method := strings.TrimSpace(input.Method)
	if method != constants.RechargeMethodAlipay && method != constants.RechargeMethodWechat {
		return nil, ErrInvalidRechargeMethod
	}
	points := amount.IntPart()
	if points <= 0 {
		return nil, ErrInvalidAmount
	}

	var result *models.PointsRechargeRecord
	err := s.withConflictRetry(func() error {
		return s.pointsRepo.Transaction(func(tx *gorm.DB) error {
			userRepo := s.userRepo.WithTx(tx)
			pointsRepo := s.pointsRepo.WithTx(tx)

			user, err := userRepo.GetByIDForUpdate(input.UserID)
			if err != nil {
				return err
			}
			if user == nil {
				return ErrAccountNotFound
			}

			before := user.PointsBalance
			after := before + points
			user.PointsBalance = after
			if err := userRepo.Update(user); err != nil {
				return err
			}

			record := &models.PointsRechargeRecord{
				UserID:        user.ID,
				Amount:        models.NewMoneyFromDecimal(amount),
				Points:        points,
				Method:        method,
				Status:        constants.RechargeStatusCompleted,
				TransactionID: buildTransactionID(),
				BalanceBefore: before,
				BalanceAfter:  after,
				Remark:        cleanRemark(input.Remark, "积分充值"),
			}
			if err := pointsRepo.CreateRechargeRecord(record); err != nil {
				return err
			}
			result = record
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Consume 积分扣减（服务消耗、管理员扣减等）
func (s *PointsService) Consume(input PointsConsumeInput) (*models.PointsUsageRecord, error) {
	if input.UserID == 0 {
		return nil, ErrAccountNotFound
	}
	if input.Points <= 0 {
		return nil, ErrInvalidAmount
	}
	usageType := strings.TrimSpace(input.UsageType)
	if usageType == "" {
		usageType = constants.UsageTypeServiceConsumption
	}

	var result *models.PointsUsageRecord
	err := s.withConflictRetry(func() error {
		return s.pointsRepo.Transaction(func(tx *gorm.DB) error {
			userRepo := s.userRepo.WithTx(tx)
			pointsRepo := s.pointsRepo.WithTx(tx)

			user, err := userRepo.GetByIDForUpdate(input.UserID)
			if err != nil {
				return err
			}
			if user == nil {
				return ErrAccountNotFound
			}

			before := user.PointsBalance
			if before < input.Points {
				return ErrInsufficientBalance
			}
			after := before - input.Points
			user.PointsBalance = after
			if err := userRepo.Update(user); err != nil {
				return err
			}

			record := &models.PointsUsageRecord{
				UserID:        user.ID,
				Points:        input.Points,
				UsageType:     usageType,
				RelatedID:     input.RelatedID,
				BalanceBefore: before,
				BalanceAfter:  after,
				Remark:        cleanRemark(input.Remark, "积分消耗"),
			}
			if err := pointsRepo.CreateUsageRecord(record); err != nil {
				return err
			}
			result = record
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Transfer 积分转赠。双方账户行按 ID 升序加锁，扣减与入账在同一事务内
// 完成，配对的使用/充值记录共享同一 transfer_id。
func (s *PointsService) Transfer(input PointsTransferInput) (*PointsTransferResult, error) {
	if input.FromUserID == 0 || input.ToUserID == 0 {
		return nil, ErrAccountNotFound
	}
	if input.FromUserID == input.ToUserID {
		return nil, ErrSelfTransfer
	}
	if input.Points <= 0 {
		return nil, ErrInvalidAmount
	}

	transferID := uuid.NewString()
	var result *PointsTransferResult
	err := s.withConflictRetry(func() error {
		return s.pointsRepo.Transaction(func(tx *gorm.DB) error {
			userRepo := s.userRepo.WithTx(tx)
			pointsRepo := s.pointsRepo.WithTx(tx)

			firstID, secondID := input.FromUserID, input.ToUserID
			if secondID < firstID {
				firstID, secondID = secondID, firstID
			}
			first, err := userRepo.GetByIDForUpdate(firstID)
			if err != nil {
				return err
			}
			second, err := userRepo.GetByIDForUpdate(secondID)
			if err != nil {
				return err
			}
			if first == nil || second == nil {
				return ErrAccountNotFound
			}

			sender, receiver := first, second
			if sender.ID != input.FromUserID {
				sender, receiver = second, first
			}

			senderBefore := sender.PointsBalance
			if senderBefore < input.Points {
				return ErrInsufficientBalance
			}
			receiverBefore := receiver.PointsBalance

			sender.PointsBalance = senderBefore - input.Points
			receiver.PointsBalance = receiverBefore + input.Points
			if err := userRepo.Update(sender); err != nil {
				return err
			}
			if err := userRepo.Update(receiver); err != nil {
				return err
			}

			remark := cleanRemark(input.Remark, fmt.Sprintf("转赠给用户 %d", receiver.ID))
			usage := &models.PointsUsageRecord{
				UserID:        sender.ID,
				Points:        input.Points,
				UsageType:     constants.UsageTypeTransferToOthers,
				RelatedID:     transferID,
				BalanceBefore: senderBefore,
				BalanceAfter:  sender.PointsBalance,
				Remark:        remark,
			}
			if err := pointsRepo.CreateUsageRecord(usage); err != nil {
				return err
			}

			credit := &models.PointsRechargeRecord{
				UserID:        receiver.ID,
				Amount:        models.NewMoneyFromDecimal(decimal.Zero),
				Points:        input.Points,
				Method:        constants.RechargeMethodTransfer,
				Status:        constants.RechargeStatusCompleted,
				TransactionID: buildTransactionID(),
				RelatedID:     transferID,
				BalanceBefore: receiverBefore,
				BalanceAfter:  receiver.PointsBalance,
				Remark:        cleanRemark(input.Remark, fmt.Sprintf("来自用户 %d 的转赠", sender.ID)),
			}
			if err := pointsRepo.CreateRechargeRecord(credit); err != nil {
				return err
			}

			result = &PointsTransferResult{
				TransferID:    transferID,
				UsageRecord:   usage,
				CreditRecord:  credit,
				SenderBalance: sender.PointsBalance,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RedeemExchangeCode 兑换码入账。码行加锁后先检查状态与有效期，
// 状态翻转与积分入账在同一事务内完成，保证恰好消费一次。
func (s *PointsService) RedeemExchangeCode(userID uint, code string) (*models.PointsRechargeRecord, error) {
	if userID == 0 {
		return nil, ErrAccountNotFound
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrExchangeCodeNotFound
	}

	var result *models.PointsRechargeRecord
	var overdue *models.ExchangeCode
	err := s.withConflictRetry(func() error {
		return s.pointsRepo.Transaction(func(tx *gorm.DB) error {
			userRepo := s.userRepo.WithTx(tx)
			pointsRepo := s.pointsRepo.WithTx(tx)
			exchangeRepo := s.exchangeRepo.WithTx(tx)

			record, err := exchangeRepo.GetByCodeForUpdate(code)
			if err != nil {
				return err
			}
			if record == nil {
				return ErrExchangeCodeNotFound
			}
			now := time.Now()
			switch record.Status {
			case constants.ExchangeCodeStatusUsed:
				return ErrExchangeCodeAlreadyUsed
			case constants.ExchangeCodeStatusExpired:
				return ErrExchangeCodeExpired
			}
			if record.ExpiresAt != nil && record.ExpiresAt.Before(now) {
				overdue = record
				return ErrExchangeCodeExpired
			}

			user, err := userRepo.GetByIDForUpdate(userID)
			if err != nil {
				return err
			}
			if user == nil {
				return ErrAccountNotFound
			}

			before := user.PointsBalance
			after := before + record.Points
			user.PointsBalance = after
			if err := userRepo.Update(user); err != nil {
				return err
			}

			record.Status = constants.ExchangeCodeStatusUsed
			record.UsedAt = &now
			record.UsedByUserID = &user.ID
			if err := exchangeRepo.Update(record); err != nil {
				return err
			}

			credit := &models.PointsRechargeRecord{
				UserID:        user.ID,
				Amount:        models.NewMoneyFromDecimal(decimal.Zero),
				Points:        record.Points,
				Method:        constants.RechargeMethodExchangeCode,
				Status:        constants.RechargeStatusCompleted,
				TransactionID: buildTransactionID(),
				RelatedID:     record.Code,
				BalanceBefore: before,
				BalanceAfter:  after,
				Remark:        "兑换码充值",
			}
			if err := pointsRepo.CreateRechargeRecord(credit); err != nil {
				return err
			}
			result = credit
			return nil
		})
	})
	if err != nil {
		// 惰性过期翻转在失败事务外落库，否则会随回滚一起丢失
		if errors.Is(err, ErrExchangeCodeExpired) && overdue != nil {
			overdue.Status = constants.ExchangeCodeStatusExpired
			if uerr := s.exchangeRepo.Update(overdue); uerr != nil {
				logger.Warnw("exchange_code_lazy_expire_failed", "code", overdue.Code, "error", uerr)
			}
		}
		return nil, err
	}
	return result, nil
}

// CreateExchangeCode 生成兑换码。面额从创建者余额中预先扣除，
// 扣减记录与码的创建在同一事务内完成。
func (s *PointsService) CreateExchangeCode(input ExchangeCodeCreateInput) (*models.ExchangeCode, error) {
	if input.CreatorID == 0 {
		return nil, ErrAccountNotFound
	}
	if input.Points <= 0 {
		return nil, ErrInvalidAmount
	}

	var result *models.ExchangeCode
	err := s.withConflictRetry(func() error {
		return s.pointsRepo.Transaction(func(tx *gorm.DB) error {
			userRepo := s.userRepo.WithTx(tx)
			pointsRepo := s.pointsRepo.WithTx(tx)
			exchangeRepo := s.exchangeRepo.WithTx(tx)

			creator, err := userRepo.GetByIDForUpdate(input.CreatorID)
			if err != nil {
				return err
			}
			if creator == nil {
				return ErrAccountNotFound
			}

			before := creator.PointsBalance
			if !creator.IsSuperuser {
				if before < input.Points {
					return ErrInsufficientBalance
				}
				creator.PointsBalance = before - input.Points
				if err := userRepo.Update(creator); err != nil {
					return err
				}
			}

			codeValue, err := s.issueUniqueExchangeCode(exchangeRepo)
			if err != nil {
				return err
			}
			record := &models.ExchangeCode{
				Code:      codeValue,
				Points:    input.Points,
				Status:    constants.ExchangeCodeStatusUnused,
				ExpiresAt: input.ExpiresAt,
				CreatorID: creator.ID,
				Remark:    strings.TrimSpace(input.Remark),
			}
			if err := exchangeRepo.Create(record); err != nil {
				return err
			}

			if !creator.IsSuperuser {
				usage := &models.PointsUsageRecord{
					UserID:        creator.ID,
					Points:        input.Points,
					UsageType:     constants.UsageTypeGenerateExchangeCode,
					RelatedID:     codeValue,
					BalanceBefore: before,
					BalanceAfter:  creator.PointsBalance,
					Remark:        "生成兑换码",
				}
				if err := pointsRepo.CreateUsageRecord(usage); err != nil {
					return err
				}
			}
			result = record
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListExchangeCodes 查询兑换码列表
func (s *PointsService) ListExchangeCodes(filter repository.ExchangeCodeListFilter) ([]models.ExchangeCode, int64, error) {
	return s.exchangeRepo.List(filter)
}

// ExpireOverdueExchangeCodes 将到期未用的兑换码批量置为过期
func (s *PointsService) ExpireOverdueExchangeCodes() (int64, error) {
	return s.exchangeRepo.ExpireOverdue(time.Now())
}

func (s *PointsService) issueUniqueExchangeCode(repo *repository.GormExchangeCodeRepository) (string, error) {
	for attempt := 0; attempt < exchangeCodeMaxAttempts; attempt++ {
		buf := make([]byte, exchangeCodeLength)
		for i := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(exchangeCodeAlphabet))))
			if err != nil {
				return "", err
			}
			buf[i] = exchangeCodeAlphabet[n.Int64()]
		}
		code := string(buf)
		count, err := repo.CountByCode(code)
		if err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// withConflictRetry 对锁等待/串行化失败做有限次重试
func (s *PointsService) withConflictRetry(fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < conflictRetryAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isRetryableConflict(lastErr) {
			return lastErr
		}
		time.Sleep(time.Duration(attempt+1) * 20 * time.Millisecond)
	}
	if isRetryableConflict(lastErr) {
		return ErrConcurrencyConflict
	}
	return lastErr
}

func isRetryableConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "lock timeout")
}

func buildTransactionID() string {
	return constants.TransactionIDPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func cleanRemark(remark, fallback string) string {
	remark = strings.TrimSpace(remark)
	if remark == "" {
		return fallback
	}
	return remark
}
