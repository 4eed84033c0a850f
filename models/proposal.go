package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
	"bitbucket.org/mmdatafocus/esteira_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Proposal is one reconciled card-proposal record. id_unico is the
// natural key derived from (cpf, matricula); the unique index is what
// keeps concurrent batches from inserting the same record twice.
type Proposal struct {
	ID             int                `gorm:"primary_key" json:"id"`
	IdUnico        string             `gorm:"size:120;uniqueIndex;not null" json:"id_unico"`
	Cpf            string             `gorm:"size:20;index" json:"cpf"`
	Matricula      string             `gorm:"size:40;index" json:"matricula"`
	Nome           string             `gorm:"size:150" json:"nome"`
	Empregador     string             `gorm:"size:150;index" json:"empregador"`
	Logo           int                `json:"logo"`
	Proposta30     string             `gorm:"size:60" json:"proposta30"`
	Digitado       DigitizationStatus `gorm:"size:20;not null" json:"digitado"`
	Situacao       string             `gorm:"size:60;default:'-'" json:"situacao"`
	Extrator       string             `gorm:"size:60;default:'-'" json:"extrator"`
	Utilizacao     string             `gorm:"size:60;default:'-'" json:"utilizacao"`
	ValorContrato  decimal.Decimal    `gorm:"type:decimal(14,2)" json:"valor_contrato"`
	ValorParcela   decimal.Decimal    `gorm:"type:decimal(14,2)" json:"valor_parcela"`
	Prazo          int                `json:"prazo"`
	DataImportacao time.Time          `json:"data_importacao"`
	Operador       string             `gorm:"size:100" json:"operador"`
	FonteDados     SourceType         `gorm:"size:20;index" json:"fonte_dados"`
	CreatedAt      time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpdateProposalInput carries the operator-editable fields. These are
// the only columns a human may change through the API, and the only
// columns the reconciliation engine must never overwrite.
type UpdateProposalInput struct {
	Situacao   *string `json:"situacao"`
	Extrator   *string `json:"extrator"`
	Utilizacao *string `json:"utilizacao"`
}

// ProposalFilter narrows list queries.
type ProposalFilter struct {
	IdUnico    *string             `form:"id_unico"`
	Cpf        *string             `form:"cpf"`
	Empregador *string             `form:"empregador"`
	Digitado   *DigitizationStatus `form:"digitado"`
	FonteDados *SourceType         `form:"fonte_dados"`
	Situacao   *string             `form:"situacao"`
}

func findProposalByUniqueId(tx *gorm.DB, idUnico string) (*Proposal, error) {
	var proposal Proposal
	err := tx.Where("id_unico = ?", idUnico).First(&proposal).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

func GetProposal(ctx context.Context, id int) (*Proposal, error) {
	return utils.FetchSingleModel[Proposal](ctx, id)
}

func GetProposalByUniqueId(ctx context.Context, idUnico string) (*Proposal, error) {
	db := config.GetDB()
	return findProposalByUniqueId(db.WithContext(ctx), idUnico)
}

func applyProposalFilter(dbCtx *gorm.DB, filter *ProposalFilter) *gorm.DB {
	if filter == nil {
		return dbCtx
	}
	if filter.IdUnico != nil && *filter.IdUnico != "" {
		dbCtx = dbCtx.Where("id_unico = ?", *filter.IdUnico)
	}
	if filter.Cpf != nil && *filter.Cpf != "" {
		dbCtx = dbCtx.Where("cpf = ?", *filter.Cpf)
	}
	if filter.Empregador != nil && *filter.Empregador != "" {
		dbCtx = dbCtx.Where("empregador LIKE ?", "%"+*filter.Empregador+"%")
	}
	if filter.Digitado != nil && *filter.Digitado != "" {
		dbCtx = dbCtx.Where("digitado = ?", *filter.Digitado)
	}
	if filter.FonteDados != nil && *filter.FonteDados != "" {
		dbCtx = dbCtx.Where("fonte_dados = ?", *filter.FonteDados)
	}
	if filter.Situacao != nil && *filter.Situacao != "" {
		dbCtx = dbCtx.Where("situacao = ?", *filter.Situacao)
	}
	return dbCtx
}

// PaginateProposals lists proposals with offset pagination, newest first.
func PaginateProposals(ctx context.Context, page int, limit int, filter *ProposalFilter) (*Page[Proposal], error) {
	db := config.GetDB()
	dbCtx := applyProposalFilter(db.WithContext(ctx).Model(&Proposal{}), filter)
	return FetchPage[Proposal](dbCtx, page, limit, "data_importacao DESC, id DESC")
}

// UpdateProposalManualFields updates the operator-editable columns only.
// Nil input fields are left untouched.
func UpdateProposalManualFields(ctx context.Context, id int, input *UpdateProposalInput) (*Proposal, error) {
	proposal, err := utils.FetchSingleModel[Proposal](ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Situacao != nil {
		updates["situacao"] = *input.Situacao
	}
	if input.Extrator != nil {
		updates["extrator"] = *input.Extrator
	}
	if input.Utilizacao != nil {
		updates["utilizacao"] = *input.Utilizacao
	}
	if len(updates) == 0 {
		return proposal, nil
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(proposal).Updates(updates).Error; err != nil {
			return err
		}
		return createHistory(tx, ctx, ActionUpdate, "Manual update of proposal "+proposal.IdUnico)
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

func DeleteProposal(ctx context.Context, id int) (*Proposal, error) {
	proposal, err := utils.FetchSingleModel[Proposal](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(proposal).Error; err != nil {
		return nil, err
	}
	return proposal, nil
}
