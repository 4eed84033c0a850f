package reports

import (
	"context"

	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"github.com/xuri/excelize/v2"
)

var proposalHeaders = []string{
	"ID_UNICO", "CPF", "MATRICULA", "NOME", "EMPREGADOR", "LOGO",
	"PROPOSTA30", "DIGITADO", "SITUACAO", "EXTRATOR", "UTILIZACAO",
	"VALOR_CONTRATO", "VALOR_PARCELA", "PRAZO", "OPERADOR", "FONTE_DADOS",
}

// BuildProposalsWorkbook renders proposals into a single-sheet workbook
// for the reports download endpoint.
func BuildProposalsWorkbook(ctx context.Context, filter *models.ProposalFilter) (*excelize.File, error) {

	page, err := models.PaginateProposals(ctx, 1, 200, filter)
	if err != nil {
		return nil, err
	}
	records := page.Records
	// pull the remaining pages so the export is complete
	for p := 2; p <= page.TotalPages; p++ {
		next, err := models.PaginateProposals(ctx, p, 200, filter)
		if err != nil {
			return nil, err
		}
		records = append(records, next.Records...)
	}

	f := excelize.NewFile()
	sheet := "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}

	for col, header := range proposalHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheet, cell, header)
	}

	for i, r := range records {
		values := []interface{}{
			r.IdUnico, r.Cpf, r.Matricula, r.Nome, r.Empregador, r.Logo,
			r.Proposta30, string(r.Digitado), r.Situacao, r.Extrator, r.Utilizacao,
			r.ValorContrato.String(), r.ValorParcela.String(), r.Prazo, r.Operador, string(r.FonteDados),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			f.SetCellValue(sheet, cell, v)
		}
	}

	return f, nil
}

// BuildValidatedWorkbook re-exports the annotated rows of a validation
// run. Original columns come first in their spreadsheet order, then the
// annotation columns.
func BuildValidatedWorkbook(headers []string, rows []models.RawRow) (*excelize.File, error) {

	annotation := []string{"PROPOSTA30", "DIGITADO", "SITUACAO", "EXTRATOR", "UTILIZACAO", "VALIDACAO", "PROBLEMAS"}
	columns := make([]string, 0, len(headers)+len(annotation))
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		columns = append(columns, h)
		present[h] = true
	}
	for _, h := range annotation {
		if !present[h] {
			columns = append(columns, h)
		}
	}

	f := excelize.NewFile()
	sheet := "Validation Results"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for col, header := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheet, cell, header)
	}

	for i, row := range rows {
		for col, header := range columns {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			f.SetCellValue(sheet, cell, row[header])
		}
	}

	return f, nil
}
