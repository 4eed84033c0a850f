package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
	"bitbucket.org/mmdatafocus/esteira_backend/utils"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
)

// BatchResult summarises one ProcessBatch run.
type BatchResult struct {
	Total             int `json:"total"`
	Inserted          int `json:"inserted"`
	Updated           int `json:"updated"`
	Duplicates        int `json:"duplicates"`
	Errors            int `json:"errors"`
	ValidationsIssued int `json:"validations_issued"`
}

// ValidationStats summarises one ValidateBatch run.
type ValidationStats struct {
	Total      int `json:"total"`
	Validated  int `json:"validated"`
	NotFound   int `json:"not_found"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// ValidationRun carries the annotated rows for re-export plus the stats.
type ValidationRun struct {
	ValidatedRows []RawRow         `json:"validated_rows"`
	Stats         *ValidationStats `json:"stats"`
}

// acquireUploadLock serialises concurrent uploads of the same source
// type. Best effort: without redis the MySQL unique index on id_unico
// still keeps concurrent batches consistent.
func acquireUploadLock(ctx context.Context, sourceType SourceType) (*redislock.Lock, error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, nil
	}
	return locker.Obtain(ctx, "upload:"+string(sourceType), 5*time.Minute, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(500*time.Millisecond), 20),
	})
}

// ProcessBatch reconciles one uploaded spreadsheet against the store.
//
// Rows are processed sequentially in input order inside a single
// transaction. Row-level failures (missing identity fields, duplicate
// sightings) are counted and never abort the batch; any transaction-level
// failure rolls everything back, operator stats included, and is returned
// to the caller with the accumulated counts discarded.
func ProcessBatch(ctx context.Context, rows []RawRow, sourceType SourceType, operatorId int) (*BatchResult, error) {
	logger := config.GetLogger()

	if !sourceType.IsValid() {
		return nil, fmt.Errorf("invalid source type: %s", sourceType)
	}

	operator, err := GetOperator(ctx, operatorId)
	if err != nil {
		return nil, err
	}

	lock, err := acquireUploadLock(ctx, sourceType)
	if err != nil {
		return nil, fmt.Errorf("could not acquire upload lock: %w", err)
	}
	if lock != nil {
		defer lock.Release(context.Background())
	}

	result := &BatchResult{Total: len(rows)}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	// one DUPLICADO issue per natural key per batch
	issuedDuplicates := make(map[string]bool)

	// Row-level failures are counted and skipped; a batch only dies at
	// the transaction boundary. MySQL keeps the transaction usable after
	// a failed statement, and a lost connection surfaces at commit.
	for _, row := range rows {
		if err := processRow(tx, ctx, row, sourceType, operator, result, issuedDuplicates); err != nil {
			result.Errors++
			if !errors.Is(err, utils.ErrorRowExtraction) {
				config.LogError(logger, "reconcile.go", "ProcessBatch", "processRow", row, err)
			}
		}
	}

	processed := result.Inserted + result.Updated
	if err := applyBatchStats(tx, operatorId, processed, result.Errors); err != nil {
		tx.Rollback()
		return nil, err
	}

	summary := fmt.Sprintf("Uploaded %s with %d rows. Inserted: %d, Updated: %d, Duplicates: %d, Errors: %d",
		sourceType, result.Total, result.Inserted, result.Updated, result.Duplicates, result.Errors)
	if err := createHistory(tx, ctx, ActionUpload, summary); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	logger.WithField("sourceType", sourceType).WithField("operator", operator.Nome).Info(summary)
	return result, nil
}

func processRow(tx *gorm.DB, ctx context.Context, row RawRow, sourceType SourceType, operator *Operator, result *BatchResult, issuedDuplicates map[string]bool) error {

	fields, err := ExtractProposalFields(row)
	if err != nil {
		return err
	}

	idUnico := DeriveUniqueId(fields.Cpf, fields.Matricula)
	if idUnico == UniqueIdSentinel {
		return utils.ErrorRowExtraction
	}

	existing, err := findProposalByUniqueId(tx, idUnico)
	if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
		return err
	}

	if existing == nil {
		proposal := Proposal{
			IdUnico:        idUnico,
			Cpf:            fields.Cpf,
			Matricula:      fields.Matricula,
			Nome:           fields.Nome,
			Empregador:     fields.Empregador,
			Logo:           ResolveLogo(fields.Empregador),
			Proposta30:     fields.Proposta30,
			Digitado:       DigitizationStatusFor(fields.Proposta30),
			Situacao:       TextSentinel,
			Extrator:       TextSentinel,
			Utilizacao:     TextSentinel,
			ValorContrato:  fields.ValorContrato,
			ValorParcela:   fields.ValorParcela,
			Prazo:          fields.Prazo,
			DataImportacao: time.Now(),
			Operador:       operator.Nome,
			FonteDados:     sourceType,
		}
		if err := tx.Create(&proposal).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// lost an insert race against a concurrent batch
				return recordDuplicate(tx, idUnico, sourceType, result, issuedDuplicates)
			}
			return err
		}
		result.Inserted++
		return createHistory(tx, ctx, ActionInsert, fmt.Sprintf("Inserted proposal %s from %s", idUnico, sourceType))
	}

	if sourceType == SourceTypeProdProm {
		// the production feed refreshes the reference value and the
		// digitization status; situacao/extrator/utilizacao belong to
		// the operators and are never written here
		updates := map[string]interface{}{}
		if fields.Proposta30 != TextSentinel {
			updates["proposta30"] = fields.Proposta30
			updates["digitado"] = Digitado
		}
		if len(updates) > 0 {
			if err := tx.Model(existing).Updates(updates).Error; err != nil {
				return err
			}
		}
		result.Updated++
		return createHistory(tx, ctx, ActionUpdate, fmt.Sprintf("Updated proposal %s from %s", idUnico, sourceType))
	}

	return recordDuplicate(tx, idUnico, sourceType, result, issuedDuplicates)
}

func recordDuplicate(tx *gorm.DB, idUnico string, sourceType SourceType, result *BatchResult, issuedDuplicates map[string]bool) error {
	result.Duplicates++
	if issuedDuplicates[idUnico] {
		return nil
	}
	issuedDuplicates[idUnico] = true
	if _, err := createValidationTx(tx, idUnico, ValidationTypeDuplicado,
		fmt.Sprintf("Duplicate record found in %s", sourceType)); err != nil {
		return err
	}
	result.ValidationsIssued++
	return nil
}

// ValidateBatch checks uploaded rows against the store without
// inserting or updating proposals. Each row is annotated with its
// outcome and the proposal's current operator-facing fields; rows whose
// natural key repeats within the same batch are flagged DUPLICADO.
// NAO_ENCONTRADO rows create a validation issue (the read path still
// writes issues, matching the legacy behaviour).
func ValidateBatch(ctx context.Context, rows []RawRow, operatorId int) (*ValidationRun, error) {
	logger := config.GetLogger()

	operator, err := GetOperator(ctx, operatorId)
	if err != nil {
		return nil, err
	}

	stats := &ValidationStats{Total: len(rows)}
	validatedRows := make([]RawRow, 0, len(rows))
	seen := make(map[string]bool)

	for _, row := range rows {
		out := cloneRow(row)

		cpf := row.CellValue("cpf")
		matricula := row.CellValue("matricula")
		if cpf == "" || matricula == "" {
			out["PROPOSTA30"] = TextSentinel
			out["DIGITADO"] = string(DigitadoErro)
			out["VALIDACAO"] = string(RowOutcomeError)
			validatedRows = append(validatedRows, out)
			stats.Errors++
			continue
		}

		idUnico := DeriveUniqueId(cpf, matricula)

		if seen[idUnico] {
			out["DIGITADO"] = string(Duplicado)
			out["VALIDACAO"] = string(RowOutcomeDuplicate)
			validatedRows = append(validatedRows, out)
			stats.Duplicates++
			continue
		}
		seen[idUnico] = true

		proposal, err := GetProposalByUniqueId(ctx, idUnico)
		if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
			config.LogError(logger, "reconcile.go", "ValidateBatch", "GetProposalByUniqueId", idUnico, err)
			out["DIGITADO"] = string(DigitadoErro)
			out["VALIDACAO"] = string(RowOutcomeError)
			validatedRows = append(validatedRows, out)
			stats.Errors++
			continue
		}

		if proposal != nil {
			out["PROPOSTA30"] = proposal.Proposta30
			out["DIGITADO"] = string(proposal.Digitado)
			out["SITUACAO"] = proposal.Situacao
			out["EXTRATOR"] = proposal.Extrator
			out["UTILIZACAO"] = proposal.Utilizacao
			out["VALIDACAO"] = string(RowOutcomeValidated)
			stats.Validated++
		} else {
			out["PROPOSTA30"] = TextSentinel
			out["DIGITADO"] = string(NaoDigitado)
			out["SITUACAO"] = TextSentinel
			out["EXTRATOR"] = TextSentinel
			out["UTILIZACAO"] = TextSentinel
			out["VALIDACAO"] = string(RowOutcomeNotFound)
			stats.NotFound++

			if _, err := CreateValidation(ctx, idUnico, ValidationTypeNaoEncontrado, "Record not found in database"); err != nil {
				return nil, err
			}
		}

		if err := annotateOpenIssues(ctx, out, idUnico); err != nil {
			return nil, err
		}
		validatedRows = append(validatedRows, out)
	}

	// operator stats follow the legacy rule: found rows count as
	// processed, missing and broken rows as errors
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyBatchStats(tx, operatorId, stats.Validated, stats.NotFound+stats.Errors); err != nil {
			return err
		}
		summary := fmt.Sprintf("Validated spreadsheet with %d rows. Found: %d, Not Found: %d, Duplicates: %d, Errors: %d",
			stats.Total, stats.Validated, stats.NotFound, stats.Duplicates, stats.Errors)
		return createHistory(tx, ctx, ActionValidacao, summary)
	})
	if err != nil {
		return nil, err
	}

	logger.WithField("operator", operator.Nome).WithField("total", stats.Total).Info("validation run finished")
	return &ValidationRun{ValidatedRows: validatedRows, Stats: stats}, nil
}

func annotateOpenIssues(ctx context.Context, out RawRow, idUnico string) error {
	issues, err := OpenValidationsFor(ctx, idUnico)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		out["PROBLEMAS"] = TextSentinel
		return nil
	}
	problems := ""
	for i, issue := range issues {
		if i > 0 {
			problems += "; "
		}
		problems += fmt.Sprintf("%s: %s", issue.TipoValidacao, issue.Descricao)
	}
	out["PROBLEMAS"] = problems
	return nil
}

func cloneRow(row RawRow) RawRow {
	out := make(RawRow, len(row)+7)
	for k, v := range row {
		out[k] = v
	}
	return out
}
