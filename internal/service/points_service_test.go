package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPointsServiceTest(t *testing.T) (*PointsService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:points_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.PointsRechargeRecord{},
		&models.PointsUsageRecord{},
		&models.ExchangeCode{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	svc := NewPointsService(
		repository.NewPointsRepository(db),
		repository.NewUserRepository(db),
		repository.NewExchangeCodeRepository(db),
	)
	return svc, db
}

func createPointsTestUser(t *testing.T, db *gorm.DB, username string, balance int64, superuser bool) *models.User {
	t.Helper()

	user := &models.User{
		Username:       username,
		Email:          username + "@example.com",
		PasswordHash:   "x",
		IsActive:       true,
		IsSuperuser:    superuser,
		ParentUserID:   constants.NoParentUserID,
		InvitationCode: strings.ToUpper(username),
		PointsBalance:  balance,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s failed: %v", username, err)
	}
	return user
}

func loadBalance(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		t.Fatalf("load user %d failed: %v", userID, err)
	}
	return user.PointsBalance
}

func TestRechargeCreditsPointsOneToOne(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	user := createPointsTestUser(t, db, "recharge_user", 10, false)

	record, err := svc.Recharge(PointsRechargeInput{
		UserID: user.ID,
		Amount: models.NewMoneyFromDecimal(decimal.NewFromFloat(50.80)),
		Method: constants.RechargeMethodAlipay,
	})
	if err != nil {
		t.Fatalf("recharge failed: %v", err)
	}
	if record.Points != 50 {
		t.Fatalf("points want 50 got %d", record.Points)
	}
	if record.BalanceBefore != 10 || record.BalanceAfter != 60 {
		t.Fatalf("balance before/after want 10/60 got %d/%d", record.BalanceBefore, record.BalanceAfter)
	}
	if !strings.HasPrefix(record.TransactionID, constants.TransactionIDPrefix) {
		t.Fatalf("transaction id should carry prefix, got %s", record.TransactionID)
	}
	if record.Status != constants.RechargeStatusCompleted {
		t.Fatalf("status want completed got %s", record.Status)
	}
	if got := loadBalance(t, db, user.ID); got != 60 {
		t.Fatalf("balance want 60 got %d", got)
	}
}

func TestRechargeRejectsInvalidInput(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	user := createPointsTestUser(t, db, "recharge_bad", 0, false)

	if _, err := svc.Recharge(PointsRechargeInput{
		UserID: user.ID,
		Amount: models.NewMoneyFromDecimal(decimal.Zero),
		Method: constants.RechargeMethodAlipay,
	}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount want ErrInvalidAmount got %v", err)
	}

	if _, err := svc.Recharge(PointsRechargeInput{
		UserID: user.ID,
		Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Method: "cash",
	}); !errors.Is(err, ErrInvalidRechargeMethod) {
		t.Fatalf("unknown method want ErrInvalidRechargeMethod got %v", err)
	}

	if got := loadBalance(t, db, user.ID); got != 0 {
		t.Fatalf("rejected recharge should not change balance, got %d", got)
	}
}

func TestConsumeInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	user := createPointsTestUser(t, db, "consume_poor", 5, false)

	_, err := svc.Consume(PointsConsumeInput{UserID: user.ID, Points: 6})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance got %v", err)
	}
	if got := loadBalance(t, db, user.ID); got != 5 {
		t.Fatalf("balance should stay 5, got %d", got)
	}

	var count int64
	if err := db.Model(&models.PointsUsageRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count usage records failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed consume should not leave usage record, got %d", count)
	}
}

func TestConsumeDeductsAndRecords(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	user := createPointsTestUser(t, db, "consume_user", 100, false)

	record, err := svc.Consume(PointsConsumeInput{
		UserID:    user.ID,
		Points:    30,
		UsageType: constants.UsageTypeAdminDeduction,
	})
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if record.BalanceBefore != 100 || record.BalanceAfter != 70 {
		t.Fatalf("balance before/after want 100/70 got %d/%d", record.BalanceBefore, record.BalanceAfter)
	}
	if record.UsageType != constants.UsageTypeAdminDeduction {
		t.Fatalf("usage type want admin_deduction got %s", record.UsageType)
	}
	if got := loadBalance(t, db, user.ID); got != 70 {
		t.Fatalf("balance want 70 got %d", got)
	}
}

func TestTransferConservesTotalAndPairsRecords(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	sender := createPointsTestUser(t, db, "transfer_sender", 100, false)
	receiver := createPointsTestUser(t, db, "transfer_receiver", 20, false)

	result, err := svc.Transfer(PointsTransferInput{
		FromUserID: sender.ID,
		ToUserID:   receiver.ID,
		Points:     40,
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if result.TransferID == "" {
		t.Fatalf("transfer id should not be empty")
	}
	if result.UsageRecord.RelatedID != result.TransferID || result.CreditRecord.RelatedID != result.TransferID {
		t.Fatalf("paired records should share transfer id %s, got %s / %s",
			result.TransferID, result.UsageRecord.RelatedID, result.CreditRecord.RelatedID)
	}
	if result.CreditRecord.Method != constants.RechargeMethodTransfer {
		t.Fatalf("credit method want transfer got %s", result.CreditRecord.Method)
	}
	if result.UsageRecord.UsageType != constants.UsageTypeTransferToOthers {
		t.Fatalf("usage type want transfer_to_others got %s", result.UsageRecord.UsageType)
	}

	senderAfter := loadBalance(t, db, sender.ID)
	receiverAfter := loadBalance(t, db, receiver.ID)
	if senderAfter != 60 || receiverAfter != 60 {
		t.Fatalf("balances want 60/60 got %d/%d", senderAfter, receiverAfter)
	}
	if senderAfter+receiverAfter != 120 {
		t.Fatalf("transfer must conserve total points, got %d", senderAfter+receiverAfter)
	}
}

func TestTransferRejectsSelfAndInsufficient(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	sender := createPointsTestUser(t, db, "transfer_self", 10, false)
	receiver := createPointsTestUser(t, db, "transfer_peer", 0, false)

	if _, err := svc.Transfer(PointsTransferInput{
		FromUserID: sender.ID,
		ToUserID:   sender.ID,
		Points:     1,
	}); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("self transfer want ErrSelfTransfer got %v", err)
	}

	if _, err := svc.Transfer(PointsTransferInput{
		FromUserID: sender.ID,
		ToUserID:   receiver.ID,
		Points:     11,
	}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraw want ErrInsufficientBalance got %v", err)
	}
	if got := loadBalance(t, db, receiver.ID); got != 0 {
		t.Fatalf("failed transfer should not credit receiver, got %d", got)
	}
}

func TestCreateExchangeCodeDeductsNonSuperuserCreator(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	creator := createPointsTestUser(t, db, "code_agent", 100, false)

	code, err := svc.CreateExchangeCode(ExchangeCodeCreateInput{CreatorID: creator.ID, Points: 30})
	if err != nil {
		t.Fatalf("create exchange code failed: %v", err)
	}
	if code.Status != constants.ExchangeCodeStatusUnused {
		t.Fatalf("status want unused got %s", code.Status)
	}
	if got := loadBalance(t, db, creator.ID); got != 70 {
		t.Fatalf("creator balance want 70 got %d", got)
	}

	var usage models.PointsUsageRecord
	if err := db.Where("user_id = ?", creator.ID).First(&usage).Error; err != nil {
		t.Fatalf("load usage record failed: %v", err)
	}
	if usage.UsageType != constants.UsageTypeGenerateExchangeCode {
		t.Fatalf("usage type want generate_exchange_code got %s", usage.UsageType)
	}
	if usage.RelatedID != code.Code {
		t.Fatalf("usage record should reference code %s got %s", code.Code, usage.RelatedID)
	}

	if _, err := svc.CreateExchangeCode(ExchangeCodeCreateInput{CreatorID: creator.ID, Points: 71}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraw want ErrInsufficientBalance got %v", err)
	}
}

func TestCreateExchangeCodeSuperuserSkipsDeduction(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	admin := createPointsTestUser(t, db, "code_admin", 0, true)

	code, err := svc.CreateExchangeCode(ExchangeCodeCreateInput{CreatorID: admin.ID, Points: 500})
	if err != nil {
		t.Fatalf("superuser create exchange code failed: %v", err)
	}
	if code.Points != 500 {
		t.Fatalf("points want 500 got %d", code.Points)
	}
	if got := loadBalance(t, db, admin.ID); got != 0 {
		t.Fatalf("superuser balance should stay 0, got %d", got)
	}

	var count int64
	if err := db.Model(&models.PointsUsageRecord{}).Where("user_id = ?", admin.ID).Count(&count).Error; err != nil {
		t.Fatalf("count usage records failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("superuser creation should not leave usage record, got %d", count)
	}
}

func TestRedeemExchangeCodeExactlyOnce(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	admin := createPointsTestUser(t, db, "redeem_admin", 0, true)
	user := createPointsTestUser(t, db, "redeem_user", 0, false)

	code, err := svc.CreateExchangeCode(ExchangeCodeCreateInput{CreatorID: admin.ID, Points: 80})
	if err != nil {
		t.Fatalf("create exchange code failed: %v", err)
	}

	credit, err := svc.RedeemExchangeCode(user.ID, code.Code)
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if credit.Method != constants.RechargeMethodExchangeCode {
		t.Fatalf("credit method want exchange_code got %s", credit.Method)
	}
	if credit.RelatedID != code.Code {
		t.Fatalf("credit should reference code %s got %s", code.Code, credit.RelatedID)
	}
	if got := loadBalance(t, db, user.ID); got != 80 {
		t.Fatalf("balance want 80 got %d", got)
	}

	var stored models.ExchangeCode
	if err := db.Where("code = ?", code.Code).First(&stored).Error; err != nil {
		t.Fatalf("load exchange code failed: %v", err)
	}
	if stored.Status != constants.ExchangeCodeStatusUsed {
		t.Fatalf("status want used got %s", stored.Status)
	}
	if stored.UsedByUserID == nil || *stored.UsedByUserID != user.ID {
		t.Fatalf("used_by_user_id want %d got %v", user.ID, stored.UsedByUserID)
	}

	if _, err := svc.RedeemExchangeCode(user.ID, code.Code); !errors.Is(err, ErrExchangeCodeAlreadyUsed) {
		t.Fatalf("second redeem want ErrExchangeCodeAlreadyUsed got %v", err)
	}
	if got := loadBalance(t, db, user.ID); got != 80 {
		t.Fatalf("second redeem should not credit again, got %d", got)
	}
}

func TestRedeemExpiredExchangeCode(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	admin := createPointsTestUser(t, db, "expire_admin", 0, true)
	user := createPointsTestUser(t, db, "expire_user", 0, false)

	past := time.Now().Add(-time.Hour)
	code, err := svc.CreateExchangeCode(ExchangeCodeCreateInput{
		CreatorID: admin.ID,
		Points:    10,
		ExpiresAt: &past,
	})
	if err != nil {
		t.Fatalf("create exchange code failed: %v", err)
	}

	if _, err := svc.RedeemExchangeCode(user.ID, code.Code); !errors.Is(err, ErrExchangeCodeExpired) {
		t.Fatalf("want ErrExchangeCodeExpired got %v", err)
	}
	if got := loadBalance(t, db, user.ID); got != 0 {
		t.Fatalf("expired code should not credit, got %d", got)
	}

	var stored models.ExchangeCode
	if err := db.Where("code = ?", code.Code).First(&stored).Error; err != nil {
		t.Fatalf("load exchange code failed: %v", err)
	}
	if stored.Status != constants.ExchangeCodeStatusExpired {
		t.Fatalf("status should flip to expired, got %s", stored.Status)
	}
}

// 并发用例把连接池压到单连接，事务在池上排队，避免内存库不稳定的锁错误
func limitToSingleConnection(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
}

func TestConcurrentRedeemCreditsExactlyOnce(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	limitToSingleConnection(t, db)

	admin := createPointsTestUser(t, db, "race_admin", 0, true)
	user := createPointsTestUser(t, db, "race_user", 0, false)

	code, err := svc.CreateExchangeCode(ExchangeCodeCreateInput{CreatorID: admin.ID, Points: 40})
	if err != nil {
		t.Fatalf("create exchange code failed: %v", err)
	}

	const workers = 8
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RedeemExchangeCode(user.ID, code.Code)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, alreadyUsed int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrExchangeCodeAlreadyUsed):
			alreadyUsed++
		default:
			t.Fatalf("unexpected redeem error: %v", err)
		}
	}
	if succeeded != 1 || alreadyUsed != workers-1 {
		t.Fatalf("want exactly one winning redeem, got %d success / %d already-used", succeeded, alreadyUsed)
	}
	if got := loadBalance(t, db, user.ID); got != 40 {
		t.Fatalf("code must credit exactly once, balance want 40 got %d", got)
	}

	var stored models.ExchangeCode
	if err := db.Where("code = ?", code.Code).First(&stored).Error; err != nil {
		t.Fatalf("load exchange code failed: %v", err)
	}
	if stored.Status != constants.ExchangeCodeStatusUsed {
		t.Fatalf("status want used got %s", stored.Status)
	}
}

func TestConcurrentConsumeNeverOverdraws(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	limitToSingleConnection(t, db)

	user := createPointsTestUser(t, db, "race_consumer", 50, false)

	const workers = 10
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(PointsConsumeInput{UserID: user.ID, Points: 10})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientBalance):
			rejected++
		default:
			t.Fatalf("unexpected consume error: %v", err)
		}
	}
	if succeeded != 5 || rejected != 5 {
		t.Fatalf("50 points cover 5 consumes of 10, got %d success / %d rejected", succeeded, rejected)
	}
	if got := loadBalance(t, db, user.ID); got != 0 {
		t.Fatalf("final balance want 0 got %d", got)
	}

	var records int64
	if err := db.Model(&models.PointsUsageRecord{}).Where("user_id = ?", user.ID).Count(&records).Error; err != nil {
		t.Fatalf("count usage records failed: %v", err)
	}
	if records != 5 {
		t.Fatalf("usage records want 5 got %d", records)
	}
}

func TestExpireOverdueExchangeCodes(t *testing.T) {
	svc, db := setupPointsServiceTest(t)
	admin := createPointsTestUser(t, db, "sweep_admin", 0, true)

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	if _, err := svc.CreateExchangeCode(ExchangeCodeCreateInput{CreatorID: admin.ID, Points: 1, ExpiresAt: &past}); err != nil {
		t.Fatalf("create overdue code failed: %v", err)
	}
	if _, err := svc.CreateExchangeCode(ExchangeCodeCreateInput{CreatorID: admin.ID, Points: 1, ExpiresAt: &future}); err != nil {
		t.Fatalf("create valid code failed: %v", err)
	}

	affected, err := svc.ExpireOverdueExchangeCodes()
	if err != nil {
		t.Fatalf("expire sweep failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected want 1 got %d", affected)
	}

	var expired int64
	if err := db.Model(&models.ExchangeCode{}).
		Where("status = ?", constants.ExchangeCodeStatusExpired).
		Count(&expired).Error; err != nil {
		t.Fatalf("count expired codes failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired count want 1 got %d", expired)
	}
}
