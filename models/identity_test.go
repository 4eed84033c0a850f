package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"bitbucket.org/mmdatafocus/esteira_backend/utils"
	"github.com/shopspring/decimal"
)

func TestCleanDataDefaults(t *testing.T) {
	cases := []struct {
		name  string
		value string
		kind  models.FieldKind
		want  string
	}{
		{"empty text", "", models.FieldKindText, "-"},
		{"blank text", "   ", models.FieldKindText, "-"},
		{"empty number", "", models.FieldKindNumber, "0"},
		{"empty date", "", models.FieldKindDate, "1900-01-01"},
		{"present text passes through", "JOAO", models.FieldKindText, "JOAO"},
		{"present value is trimmed", "  123  ", models.FieldKindNumber, "123"},
		{"present date passes through", "2024-05-01", models.FieldKindDate, "2024-05-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := models.CleanData(tc.value, tc.kind); got != tc.want {
				t.Fatalf("CleanData(%q, %s) = %q, want %q", tc.value, tc.kind, got, tc.want)
			}
		})
	}
}

func TestDeriveUniqueId(t *testing.T) {
	if got := models.DeriveUniqueId("12345678901", "555"); got != "12345678901_555" {
		t.Fatalf("DeriveUniqueId = %q, want 12345678901_555", got)
	}
	// deterministic
	a := models.DeriveUniqueId(" 12345678901 ", "555")
	b := models.DeriveUniqueId("12345678901", " 555")
	if a != b {
		t.Fatalf("trimming changed the key: %q vs %q", a, b)
	}
	// both fields missing collapses to the invalid sentinel
	if got := models.DeriveUniqueId("", ""); got != models.UniqueIdSentinel {
		t.Fatalf("DeriveUniqueId(\"\", \"\") = %q, want %q", got, models.UniqueIdSentinel)
	}
	// one missing field still yields a usable key
	if got := models.DeriveUniqueId("12345678901", ""); got != "12345678901_-" {
		t.Fatalf("DeriveUniqueId with missing matricula = %q", got)
	}
}

func TestExtractProposalFieldsRequiresIdentity(t *testing.T) {
	_, err := models.ExtractProposalFields(models.RawRow{"NOME": "JOAO"})
	if !errors.Is(err, utils.ErrorRowExtraction) {
		t.Fatalf("expected ErrorRowExtraction, got %v", err)
	}

	_, err = models.ExtractProposalFields(models.RawRow{"CPF": "12345678901"})
	if !errors.Is(err, utils.ErrorRowExtraction) {
		t.Fatalf("missing matricula: expected ErrorRowExtraction, got %v", err)
	}
}

func TestExtractProposalFieldsAcceptsBothHeaderCasings(t *testing.T) {
	upper := models.RawRow{
		"CPF":            "12345678901",
		"MATRICULA":      "555",
		"NOME":           "JOAO DA SILVA",
		"EMPREGADOR":     "SANEAGO",
		"PROPOSTA30":     "P-100",
		"VALOR_CONTRATO": "1,500.00",
		"VALOR_PARCELA":  "125.50",
		"PRAZO":          "12",
	}
	lower := models.RawRow{
		"cpf":            "12345678901",
		"matricula":      "555",
		"nome":           "JOAO DA SILVA",
		"empregador":     "SANEAGO",
		"proposta30":     "P-100",
		"valor_contrato": "1,500.00",
		"valor_parcela":  "125.50",
		"prazo":          "12",
	}

	fu, err := models.ExtractProposalFields(upper)
	if err != nil {
		t.Fatalf("upper headers: %v", err)
	}
	fl, err := models.ExtractProposalFields(lower)
	if err != nil {
		t.Fatalf("lower headers: %v", err)
	}

	if fu.Cpf != fl.Cpf || fu.Matricula != fl.Matricula || fu.Nome != fl.Nome {
		t.Fatalf("casing changed extraction: %+v vs %+v", fu, fl)
	}
	if fu.Prazo != 12 {
		t.Fatalf("Prazo = %d, want 12", fu.Prazo)
	}
	if !fu.ValorContrato.Equal(fl.ValorContrato) {
		t.Fatalf("ValorContrato differs: %s vs %s", fu.ValorContrato, fl.ValorContrato)
	}
	if !fu.ValorContrato.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("ValorContrato = %s, want 1500", fu.ValorContrato)
	}
}

func TestExtractProposalFieldsAppliesDefaults(t *testing.T) {
	fields, err := models.ExtractProposalFields(models.RawRow{
		"CPF":       "12345678901",
		"MATRICULA": "555",
	})
	if err != nil {
		t.Fatalf("ExtractProposalFields: %v", err)
	}
	if fields.Nome != "-" || fields.Empregador != "-" || fields.Proposta30 != "-" {
		t.Fatalf("text defaults not applied: %+v", fields)
	}
	if !fields.ValorContrato.IsZero() || !fields.ValorParcela.IsZero() || fields.Prazo != 0 {
		t.Fatalf("number defaults not applied: %+v", fields)
	}
}

func TestDigitizationStatusFor(t *testing.T) {
	if got := models.DigitizationStatusFor("P-100"); got != models.Digitado {
		t.Fatalf("present proposta30: got %s", got)
	}
	if got := models.DigitizationStatusFor("-"); got != models.NaoDigitado {
		t.Fatalf("sentinel proposta30: got %s", got)
	}
	if got := models.DigitizationStatusFor(""); got != models.NaoDigitado {
		t.Fatalf("empty proposta30: got %s", got)
	}
}
