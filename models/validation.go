package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
	"bitbucket.org/mmdatafocus/esteira_backend/utils"
	"gorm.io/gorm"
)

// Validation is a persisted anomaly detected during reconciliation or a
// standalone validation run. id_unico is a loose reference to the
// proposal's natural key, deliberately not a foreign key: issues may
// reference rows that were never stored (NAO_ENCONTRADO).
type Validation struct {
	ID            int            `gorm:"primary_key" json:"id"`
	IdUnico       string         `gorm:"size:120;index" json:"id_unico"`
	TipoValidacao ValidationType `gorm:"size:30;not null" json:"tipo_validacao"`
	Descricao     string         `gorm:"type:text" json:"descricao"`
	Resolvido     *bool          `gorm:"not null;default:false" json:"resolvido"`
	ResolvidoEm   *time.Time     `json:"resolvido_em"`
	ResolvidoPor  int            `json:"resolvido_por"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValidationFilter narrows list queries.
type ValidationFilter struct {
	IdUnico       *string         `form:"id_unico"`
	TipoValidacao *ValidationType `form:"tipo_validacao"`
	Resolvido     *bool           `form:"resolvido"`
}

// createValidationTx writes an issue inside the caller's transaction.
// No uniqueness constraint: the same (id_unico, tipo) pair may hold
// several open issues; the engine dedupes within a batch where it cares.
func createValidationTx(tx *gorm.DB, idUnico string, tipo ValidationType, descricao string) (*Validation, error) {
	validation := Validation{
		IdUnico:       idUnico,
		TipoValidacao: tipo,
		Descricao:     descricao,
		Resolvido:     utils.NewFalse(),
	}
	if err := tx.Create(&validation).Error; err != nil {
		return nil, err
	}
	return &validation, nil
}

func CreateValidation(ctx context.Context, idUnico string, tipo ValidationType, descricao string) (*Validation, error) {
	db := config.GetDB()
	return createValidationTx(db.WithContext(ctx), idUnico, tipo, descricao)
}

func GetValidation(ctx context.Context, id int) (*Validation, error) {
	return utils.FetchSingleModel[Validation](ctx, id)
}

func PaginateValidations(ctx context.Context, page int, limit int, filter *ValidationFilter) (*Page[Validation], error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Validation{})
	if filter != nil {
		if filter.IdUnico != nil && *filter.IdUnico != "" {
			dbCtx = dbCtx.Where("id_unico = ?", *filter.IdUnico)
		}
		if filter.TipoValidacao != nil && *filter.TipoValidacao != "" {
			dbCtx = dbCtx.Where("tipo_validacao = ?", *filter.TipoValidacao)
		}
		if filter.Resolvido != nil {
			dbCtx = dbCtx.Where("resolvido = ?", *filter.Resolvido)
		}
	}
	return FetchPage[Validation](dbCtx, page, limit, "created_at DESC, id DESC")
}

// OpenValidationsFor returns the unresolved issues referencing one
// natural key, oldest first. Used to annotate validation exports.
func OpenValidationsFor(ctx context.Context, idUnico string) ([]*Validation, error) {
	db := config.GetDB()
	var results []*Validation
	err := db.WithContext(ctx).
		Where("id_unico = ? AND resolvido = ?", idUnico, false).
		Order("created_at").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ResolveValidation flips an issue to resolved exactly once. A second
// call is rejected with ErrorAlreadyResolved and leaves the original
// resolvido_em/resolvido_por audit fields unchanged.
func ResolveValidation(ctx context.Context, id int, resolvingOperatorId int) (*Validation, error) {
	validation, err := utils.FetchSingleModel[Validation](ctx, id)
	if err != nil {
		return nil, err
	}
	if validation.Resolvido != nil && *validation.Resolvido {
		return nil, utils.ErrorAlreadyResolved
	}

	now := time.Now()
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(validation).Updates(map[string]interface{}{
			"resolvido":     true,
			"resolvido_em":  now,
			"resolvido_por": resolvingOperatorId,
		}).Error; err != nil {
			return err
		}
		return createHistory(tx, ctx, ActionResolve, "Resolved validation "+validation.IdUnico)
	})
	if err != nil {
		return nil, err
	}
	return validation, nil
}

func DeleteValidation(ctx context.Context, id int) (*Validation, error) {
	validation, err := utils.FetchSingleModel[Validation](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(validation).Error; err != nil {
		return nil, err
	}
	return validation, nil
}
