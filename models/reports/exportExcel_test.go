package reports_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"bitbucket.org/mmdatafocus/esteira_backend/models/reports"
)

func TestBuildValidatedWorkbookColumnLayout(t *testing.T) {
	headers := []string{"CPF", "MATRICULA", "NOME", "PROPOSTA30"}
	rows := []models.RawRow{
		{
			"CPF":        "12345678901",
			"MATRICULA":  "555",
			"NOME":       "JOAO",
			"PROPOSTA30": "P-100",
			"DIGITADO":   "DIGITADO",
			"SITUACAO":   "APROVADO",
			"EXTRATOR":   "-",
			"UTILIZACAO": "-",
			"VALIDACAO":  "VALIDADO",
			"PROBLEMAS":  "-",
		},
	}

	f, err := reports.BuildValidatedWorkbook(headers, rows)
	if err != nil {
		t.Fatalf("BuildValidatedWorkbook: %v", err)
	}
	defer f.Close()

	sheet := "Validation Results"
	got, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected header + 1 data row, got %d rows", len(got))
	}

	// original headers keep their order; annotation columns follow,
	// without repeating PROPOSTA30 which the upload already carried
	wantHeaders := []string{"CPF", "MATRICULA", "NOME", "PROPOSTA30", "DIGITADO", "SITUACAO", "EXTRATOR", "UTILIZACAO", "VALIDACAO", "PROBLEMAS"}
	if len(got[0]) != len(wantHeaders) {
		t.Fatalf("header count = %d, want %d (%v)", len(got[0]), len(wantHeaders), got[0])
	}
	for i, h := range wantHeaders {
		if got[0][i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, got[0][i], h)
		}
	}

	if got[1][0] != "12345678901" {
		t.Fatalf("CPF cell = %q", got[1][0])
	}
	if got[1][8] != "VALIDADO" {
		t.Fatalf("VALIDACAO cell = %q", got[1][8])
	}
}

func TestBuildValidatedWorkbookEmptyRun(t *testing.T) {
	f, err := reports.BuildValidatedWorkbook([]string{"CPF", "MATRICULA"}, nil)
	if err != nil {
		t.Fatalf("BuildValidatedWorkbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetRows("Validation Results")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected header row only, got %d rows", len(got))
	}
}
