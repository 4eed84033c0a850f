package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
	"bitbucket.org/mmdatafocus/esteira_backend/utils"
	"gorm.io/gorm"
)

// History is one audit-log row. Written inside the same transaction as
// the mutation it describes, so a rolled-back batch leaves no trace.
type History struct {
	ID          int        `gorm:"primary_key" json:"id"`
	OperatorId  int        `gorm:"index;not null" json:"operator_id"`
	Action      ActionType `gorm:"size:20;not null" json:"action"`
	Description string     `gorm:"type:text" json:"description"`
	IpAddress   string     `gorm:"size:45" json:"ip_address"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// createHistory writes an audit row with the acting operator taken from
// the context. Operator identity missing from context is tolerated
// (internal jobs) and recorded as operator 0.
func createHistory(tx *gorm.DB, ctx context.Context, action ActionType, description string) error {
	operatorId, _ := utils.GetOperatorIdFromContext(ctx)
	return tx.Create(&History{
		OperatorId:  operatorId,
		Action:      action,
		Description: description,
	}).Error
}

// CreateHistory is the exported variant for handlers that log outside a
// batch transaction (login, report downloads).
func CreateHistory(ctx context.Context, action ActionType, description string, ipAddress string) error {
	operatorId, _ := utils.GetOperatorIdFromContext(ctx)
	db := config.GetDB()
	return db.WithContext(ctx).Create(&History{
		OperatorId:  operatorId,
		Action:      action,
		Description: description,
		IpAddress:   ipAddress,
	}).Error
}

func PaginateHistories(ctx context.Context, page int, limit int, operatorId *int) (*Page[History], error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&History{})
	if operatorId != nil && *operatorId > 0 {
		dbCtx = dbCtx.Where("operator_id = ?", *operatorId)
	}
	return FetchPage[History](dbCtx, page, limit, "created_at DESC, id DESC")
}
