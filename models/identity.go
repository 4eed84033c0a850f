package models

import (
	"strings"

	"bitbucket.org/mmdatafocus/esteira_backend/utils"
	"github.com/shopspring/decimal"
)

// RawRow is one parsed spreadsheet row: header name -> cell text.
// Callers (the upload handlers) build these from excelize sheets; the
// engine never touches the file format.
type RawRow map[string]string

// FieldKind selects the default a missing cell collapses to.
type FieldKind string

const (
	FieldKindText   FieldKind = "text"
	FieldKindNumber FieldKind = "number"
	FieldKindDate   FieldKind = "date"
)

const (
	TextSentinel = "-"
	DateSentinel = "1900-01-01"

	// UniqueIdSeparator joins cpf and matricula into id_unico.
	UniqueIdSeparator = "_"
)

// UniqueIdSentinel is what DeriveUniqueId yields when both identity
// fields are missing. Rows producing it are invalid input and must be
// counted as extraction errors, never reconciled against each other.
const UniqueIdSentinel = TextSentinel + UniqueIdSeparator + TextSentinel

// fieldAliases maps a logical field to the spreadsheet headers that may
// carry it. The legacy feeds are inconsistent about header casing, so
// both variants are accepted for every field.
var fieldAliases = map[string][]string{
	"cpf":            {"CPF", "cpf"},
	"matricula":      {"MATRICULA", "matricula"},
	"nome":           {"NOME", "nome"},
	"empregador":     {"EMPREGADOR", "empregador"},
	"proposta30":     {"PROPOSTA30", "proposta30"},
	"valor_contrato": {"VALOR_CONTRATO", "valor_contrato"},
	"valor_parcela":  {"VALOR_PARCELA", "valor_parcela"},
	"prazo":          {"PRAZO", "prazo"},
}

// CellValue resolves a logical field through the alias table.
func (r RawRow) CellValue(field string) string {
	for _, header := range fieldAliases[field] {
		if v, ok := r[header]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// CleanData coerces a possibly-missing cell into its typed default:
// number -> "0", text -> "-", date -> the 1900-01-01 sentinel.
// Present values pass through trimmed but otherwise unchanged.
func CleanData(value string, kind FieldKind) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	switch kind {
	case FieldKindNumber:
		return "0"
	case FieldKindDate:
		return DateSentinel
	default:
		return TextSentinel
	}
}

// DeriveUniqueId builds the natural key for a proposal from its raw
// identity fields. Deterministic and side-effect free: equal inputs
// always produce equal keys. The separator is not escaped, so a cpf
// that itself contains "_" can alias another pair; real feeds carry
// digit-only cpf/matricula values.
func DeriveUniqueId(rawCpf, rawMatricula string) string {
	return CleanData(rawCpf, FieldKindText) + UniqueIdSeparator + CleanData(rawMatricula, FieldKindText)
}

// ProposalFields is the normalized projection of one spreadsheet row.
type ProposalFields struct {
	Cpf           string
	Matricula     string
	Nome          string
	Empregador    string
	Proposta30    string
	ValorContrato decimal.Decimal
	ValorParcela  decimal.Decimal
	Prazo         int
}

// ExtractProposalFields normalizes every business field of a row.
// Returns ErrorRowExtraction when either identity field is absent; in
// that case nothing may be written for the row.
func ExtractProposalFields(row RawRow) (*ProposalFields, error) {
	cpf := row.CellValue("cpf")
	matricula := row.CellValue("matricula")
	if cpf == "" || matricula == "" {
		return nil, utils.ErrorRowExtraction
	}

	valorContrato, err := utils.ParseDecimal(CleanData(row.CellValue("valor_contrato"), FieldKindNumber))
	if err != nil {
		valorContrato = decimal.Zero
	}
	valorParcela, err := utils.ParseDecimal(CleanData(row.CellValue("valor_parcela"), FieldKindNumber))
	if err != nil {
		valorParcela = decimal.Zero
	}

	prazo := 0
	if d, err := utils.ParseDecimal(CleanData(row.CellValue("prazo"), FieldKindNumber)); err == nil {
		prazo = int(d.IntPart())
	}

	return &ProposalFields{
		Cpf:           CleanData(cpf, FieldKindText),
		Matricula:     CleanData(matricula, FieldKindText),
		Nome:          CleanData(row.CellValue("nome"), FieldKindText),
		Empregador:    CleanData(row.CellValue("empregador"), FieldKindText),
		Proposta30:    CleanData(row.CellValue("proposta30"), FieldKindText),
		ValorContrato: valorContrato,
		ValorParcela:  valorParcela,
		Prazo:         prazo,
	}, nil
}
