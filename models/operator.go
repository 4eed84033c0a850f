package models

import (
	"context"
	"errors"
	"math"
	"time"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
	"bitbucket.org/mmdatafocus/esteira_backend/utils"
	"gorm.io/gorm"
)

// Operator is an account driving uploads. Score reflects the most recent
// batch; the cumulative counters feed the dashboards.
type Operator struct {
	ID                 int       `gorm:"primary_key" json:"id"`
	Nome               string    `gorm:"size:100;not null" json:"nome"`
	Usuario            string    `gorm:"size:60;uniqueIndex;not null" json:"usuario"`
	Senha              string    `gorm:"size:100;not null" json:"-"`
	Role               string    `gorm:"size:20;not null;default:'operador'" json:"role"`
	PropostasValidadas int       `gorm:"not null;default:0" json:"propostas_validadas"`
	PropostasComErro   int       `gorm:"not null;default:0" json:"propostas_com_erro"`
	Score              int       `gorm:"not null;default:0" json:"score"`
	IsActive           *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOperator struct {
	Nome    string `json:"nome" binding:"required"`
	Usuario string `json:"usuario" binding:"required"`
	Senha   string `json:"senha" binding:"required,min=6"`
	Role    string `json:"role"`
}

type LoginInfo struct {
	Token    string    `json:"token"`
	Operator *Operator `json:"operator"`
}

// ComputeScore applies the batch scoring rule:
// round(100 * (1 - errors/processed)). processed counts successful rows
// only (inserted + updated); when nothing was processed the error rate
// is 0 and the batch scores 100. errors can exceed processed, in which
// case the score goes negative, same as the legacy computation.
func ComputeScore(errorsInBatch int, processedInBatch int) int {
	errorRate := 0.0
	if processedInBatch > 0 {
		errorRate = float64(errorsInBatch) / float64(processedInBatch)
	}
	return int(math.Round(100 * (1 - errorRate)))
}

func Login(ctx context.Context, usuario string, senha string) (*LoginInfo, error) {
	db := config.GetDB()

	var operator Operator
	if err := db.WithContext(ctx).Where("usuario = ?", usuario).First(&operator).Error; err != nil {
		return nil, errors.New("invalid username or password")
	}
	if operator.IsActive != nil && !*operator.IsActive {
		return nil, errors.New("account is inactive")
	}
	if err := utils.ComparePassword(operator.Senha, senha); err != nil {
		return nil, errors.New("invalid username or password")
	}

	token, err := utils.JwtGenerate(operator.ID, operator.Nome, operator.Role)
	if err != nil {
		return nil, err
	}

	// cache for GetOperator lookups during uploads
	if err := utils.StoreRedis[Operator](&operator, operator.ID); err != nil {
		return nil, err
	}

	return &LoginInfo{Token: token, Operator: &operator}, nil
}

// GetOperator fetches an account, redis first. May return RecordNotFound.
func GetOperator(ctx context.Context, id int) (*Operator, error) {
	result, err := utils.RetrieveRedis[Operator](id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result, err = utils.FetchSingleModel[Operator](ctx, id)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedis[Operator](result, id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func GetAllOperators(ctx context.Context) ([]*Operator, error) {
	db := config.GetDB()
	var results []*Operator
	if err := db.WithContext(ctx).Order("nome").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func CreateOperator(ctx context.Context, input *NewOperator) (*Operator, error) {
	db := config.GetDB()

	var count int64
	if err := db.WithContext(ctx).Model(&Operator{}).Where("usuario = ?", input.Usuario).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("duplicate usuario")
	}

	hashed, err := utils.HashPassword(input.Senha)
	if err != nil {
		return nil, err
	}
	role := input.Role
	if role == "" {
		role = RoleOperador
	}

	operator := Operator{
		Nome:    input.Nome,
		Usuario: input.Usuario,
		Senha:   string(hashed),
		Role:    role,
	}
	if err := db.WithContext(ctx).Create(&operator).Error; err != nil {
		return nil, err
	}
	return &operator, nil
}

func UpdateOperator(ctx context.Context, id int, nome string, role string) (*Operator, error) {
	operator, err := utils.FetchSingleModel[Operator](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(operator).Updates(map[string]interface{}{
		"nome": nome,
		"role": role,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedis[Operator](id); err != nil {
		return nil, err
	}
	return operator, nil
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (*Operator, error) {
	operatorId, ok := utils.GetOperatorIdFromContext(ctx)
	if !ok {
		return nil, errors.New("operator id is required")
	}
	operator, err := utils.FetchSingleModel[Operator](ctx, operatorId)
	if err != nil {
		return nil, err
	}
	if err := utils.ComparePassword(operator.Senha, oldPassword); err != nil {
		return nil, errors.New("old password does not match")
	}
	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(operator).UpdateColumn("senha", string(hashed)).Error; err != nil {
		return nil, err
	}
	return operator, nil
}

func ToggleActiveOperator(ctx context.Context, id int, isActive bool) (*Operator, error) {
	operator, err := utils.FetchSingleModel[Operator](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(operator).UpdateColumn("is_active", isActive).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedis[Operator](id); err != nil {
		return nil, err
	}
	return operator, nil
}

// applyBatchStats bumps the cumulative counters and rewrites the score
// inside the batch transaction, so a rollback discards them with the rows.
func applyBatchStats(tx *gorm.DB, operatorId int, processed int, errorCount int) error {
	score := ComputeScore(errorCount, processed)

	updates := map[string]interface{}{
		"propostas_validadas": gorm.Expr("propostas_validadas + ?", processed),
		"score":               score,
	}
	if errorCount > 0 {
		updates["propostas_com_erro"] = gorm.Expr("propostas_com_erro + ?", errorCount)
	}
	if err := tx.Model(&Operator{}).Where("id = ?", operatorId).Updates(updates).Error; err != nil {
		return err
	}
	// cached copy is stale after a batch
	return utils.RemoveRedis[Operator](operatorId)
}
