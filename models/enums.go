package models

// SourceType identifies which feed an uploaded spreadsheet came from.
// PROD_PROM is the production/promotion feed; it is the only source
// allowed to update records that already exist.
type SourceType string

const (
	SourceTypeProdProm     SourceType = "PROD_PROM"
	SourceTypeEsteira      SourceType = "ESTEIRA"
	SourceTypeOpRealizadas SourceType = "OP_REALIZADAS"
	SourceTypeSeguros      SourceType = "SEGUROS"
	SourceTypeFaceSheet    SourceType = "FACE_SHEET"
)

var sourceTypes = map[SourceType]bool{
	SourceTypeProdProm:     true,
	SourceTypeEsteira:      true,
	SourceTypeOpRealizadas: true,
	SourceTypeSeguros:      true,
	SourceTypeFaceSheet:    true,
}

func (s SourceType) IsValid() bool {
	return sourceTypes[s]
}

// DigitizationStatus is the unified closed enum for the "digitado" column.
// The legacy system mixed a string enum with a boolean; only these four
// values are persisted here.
type DigitizationStatus string

const (
	Digitado     DigitizationStatus = "DIGITADO"
	NaoDigitado  DigitizationStatus = "NAO_DIGITADO"
	DigitadoErro DigitizationStatus = "ERRO"
	Duplicado    DigitizationStatus = "DUPLICADO"
)

// DigitizationStatusFor derives the insert-time status from the presence
// of the source reference value (proposta30).
func DigitizationStatusFor(proposta30 string) DigitizationStatus {
	if proposta30 != "" && proposta30 != TextSentinel {
		return Digitado
	}
	return NaoDigitado
}

// ValidationType classifies a persisted validation issue.
type ValidationType string

const (
	ValidationTypeDuplicado        ValidationType = "DUPLICADO"
	ValidationTypeNaoEncontrado    ValidationType = "NAO_ENCONTRADO"
	ValidationTypeDadosIncompletos ValidationType = "DADOS_INCOMPLETOS"
	ValidationTypeErroSistema      ValidationType = "ERRO_SISTEMA"
)

// RowOutcome annotates one row of a standalone validation run.
type RowOutcome string

const (
	RowOutcomeValidated RowOutcome = "VALIDADO"
	RowOutcomeNotFound  RowOutcome = "NAO_ENCONTRADO"
	RowOutcomeDuplicate RowOutcome = "DUPLICADO"
	RowOutcomeError     RowOutcome = "ERRO"
)

// ActionType tags audit-log rows.
type ActionType string

const (
	ActionUpload    ActionType = "UPLOAD"
	ActionInsert    ActionType = "INSERT"
	ActionUpdate    ActionType = "UPDATE"
	ActionValidacao ActionType = "VALIDACAO"
	ActionResolve   ActionType = "RESOLVE"
	ActionLogin     ActionType = "LOGIN"
)

// Operator roles.
const (
	RoleAdmin    = "admin"
	RoleOperador = "operador"
)
