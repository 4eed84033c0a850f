package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"bitbucket.org/mmdatafocus/esteira_backend/utils"
)

func setupIntegrationEnv(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "esteira_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	return context.Background()
}

func createTestOperator(t *testing.T, ctx context.Context, usuario string) (*models.Operator, context.Context) {
	t.Helper()
	operator, err := models.CreateOperator(ctx, &models.NewOperator{
		Nome:    "Operador Teste",
		Usuario: usuario,
		Senha:   "senha-segura",
		Role:    models.RoleOperador,
	})
	if err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}
	ctx = utils.SetOperatorIdInContext(ctx, operator.ID)
	ctx = utils.SetOperatorNameInContext(ctx, operator.Nome)
	return operator, ctx
}

func proposalRow(cpf, matricula, nome, empregador, proposta30 string) models.RawRow {
	row := models.RawRow{
		"CPF":            cpf,
		"MATRICULA":      matricula,
		"NOME":           nome,
		"EMPREGADOR":     empregador,
		"VALOR_CONTRATO": "1500.00",
		"VALOR_PARCELA":  "125.50",
		"PRAZO":          "12",
	}
	if proposta30 != "" {
		row["PROPOSTA30"] = proposta30
	}
	return row
}

func strPtr(s string) *string { return &s }

func TestProcessBatchReconciliationLifecycle(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	operator, ctx := createTestOperator(t, ctx, "lifecycle@test")

	// 1) initial PROD_PROM load inserts everything
	batch1 := []models.RawRow{
		proposalRow("11111111111", "100", "ANA", "GOV GOIAS", "P-100"),
		proposalRow("22222222222", "200", "BRUNO", "SANEAGO", ""),
		proposalRow("33333333333", "300", "CARLA", "EMPRESA DESCONHECIDA", "P-300"),
	}
	result, err := models.ProcessBatch(ctx, batch1, models.SourceTypeProdProm, operator.ID)
	if err != nil {
		t.Fatalf("ProcessBatch #1: %v", err)
	}
	if result.Inserted != 3 || result.Updated != 0 || result.Duplicates != 0 || result.Errors != 0 {
		t.Fatalf("batch #1 counts: %+v", result)
	}

	ana, err := models.GetProposalByUniqueId(ctx, "11111111111_100")
	if err != nil {
		t.Fatalf("fetch ana: %v", err)
	}
	if ana.Digitado != models.Digitado {
		t.Fatalf("ana digitado = %s, want DIGITADO", ana.Digitado)
	}
	if ana.Logo != 3 {
		t.Fatalf("ana logo = %d, want 3", ana.Logo)
	}
	if ana.Situacao != "-" || ana.Extrator != "-" || ana.Utilizacao != "-" {
		t.Fatalf("new row should carry sentinel manual fields: %+v", ana)
	}

	bruno, err := models.GetProposalByUniqueId(ctx, "22222222222_200")
	if err != nil {
		t.Fatalf("fetch bruno: %v", err)
	}
	if bruno.Digitado != models.NaoDigitado {
		t.Fatalf("bruno digitado = %s, want NAO_DIGITADO", bruno.Digitado)
	}

	op, err := models.GetOperator(ctx, operator.ID)
	if err != nil {
		t.Fatalf("GetOperator after batch #1: %v", err)
	}
	if op.PropostasValidadas != 3 || op.PropostasComErro != 0 || op.Score != 100 {
		t.Fatalf("operator stats after batch #1: %+v", op)
	}

	// 2) operators fill in their fields by hand
	if _, err := models.UpdateProposalManualFields(ctx, ana.ID, &models.UpdateProposalInput{
		Situacao:   strPtr("APROVADO"),
		Extrator:   strPtr("LOTE-7"),
		Utilizacao: strPtr("SIM"),
	}); err != nil {
		t.Fatalf("UpdateProposalManualFields: %v", err)
	}

	// 3) a fresh PROD_PROM load refreshes proposta30/digitado but must
	// never touch the manual fields; the broken row is counted, not fatal
	batch2 := []models.RawRow{
		proposalRow("11111111111", "100", "ANA", "GOV GOIAS", "P-101"),
		proposalRow("22222222222", "200", "BRUNO", "SANEAGO", "P-200"),
		{"NOME": "SEM IDENTIDADE"},
	}
	result, err = models.ProcessBatch(ctx, batch2, models.SourceTypeProdProm, operator.ID)
	if err != nil {
		t.Fatalf("ProcessBatch #2: %v", err)
	}
	if result.Inserted != 0 || result.Updated != 2 || result.Errors != 1 {
		t.Fatalf("batch #2 counts: %+v", result)
	}

	ana, err = models.GetProposalByUniqueId(ctx, "11111111111_100")
	if err != nil {
		t.Fatalf("refetch ana: %v", err)
	}
	if ana.Proposta30 != "P-101" || ana.Digitado != models.Digitado {
		t.Fatalf("ana not refreshed: proposta30=%s digitado=%s", ana.Proposta30, ana.Digitado)
	}
	if ana.Situacao != "APROVADO" || ana.Extrator != "LOTE-7" || ana.Utilizacao != "SIM" {
		t.Fatalf("manual fields were overwritten: %+v", ana)
	}

	bruno, err = models.GetProposalByUniqueId(ctx, "22222222222_200")
	if err != nil {
		t.Fatalf("refetch bruno: %v", err)
	}
	if bruno.Proposta30 != "P-200" || bruno.Digitado != models.Digitado {
		t.Fatalf("bruno not refreshed: %+v", bruno)
	}

	op, err = models.GetOperator(ctx, operator.ID)
	if err != nil {
		t.Fatalf("GetOperator after batch #2: %v", err)
	}
	if op.PropostasValidadas != 5 || op.PropostasComErro != 1 {
		t.Fatalf("operator counters after batch #2: %+v", op)
	}
	if op.Score != 50 {
		t.Fatalf("score reflects the last batch: got %d, want 50", op.Score)
	}

	// 4) a non-PROD_PROM feed never updates existing rows; repeats of the
	// same key raise one DUPLICADO issue per batch
	batch3 := []models.RawRow{
		proposalRow("11111111111", "100", "ANA", "GOV GOIAS", "P-999"),
		proposalRow("44444444444", "400", "DANIEL", "INSS", ""),
		proposalRow("11111111111", "100", "ANA", "GOV GOIAS", "P-999"),
	}
	result, err = models.ProcessBatch(ctx, batch3, models.SourceTypeEsteira, operator.ID)
	if err != nil {
		t.Fatalf("ProcessBatch #3: %v", err)
	}
	if result.Inserted != 1 || result.Updated != 0 || result.Duplicates != 2 || result.ValidationsIssued != 1 {
		t.Fatalf("batch #3 counts: %+v", result)
	}

	ana, err = models.GetProposalByUniqueId(ctx, "11111111111_100")
	if err != nil {
		t.Fatalf("refetch ana after duplicate feed: %v", err)
	}
	if ana.Proposta30 != "P-101" || ana.Situacao != "APROVADO" || string(ana.FonteDados) != "PROD_PROM" {
		t.Fatalf("duplicate feed mutated the record: %+v", ana)
	}

	tipo := models.ValidationTypeDuplicado
	page, err := models.PaginateValidations(ctx, 1, 50, &models.ValidationFilter{
		IdUnico:       strPtr("11111111111_100"),
		TipoValidacao: &tipo,
	})
	if err != nil {
		t.Fatalf("PaginateValidations: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected exactly one DUPLICADO issue for the key, got %d", page.Total)
	}

	// 5) unknown source types are rejected before any work happens
	if _, err := models.ProcessBatch(ctx, batch3, models.SourceType("WRONG"), operator.ID); err == nil {
		t.Fatalf("expected error for invalid source type")
	}

	// 6) an unknown operator is rejected before any work happens
	before, err := models.PaginateProposals(ctx, 1, 1, nil)
	if err != nil {
		t.Fatalf("count proposals: %v", err)
	}
	batch4 := []models.RawRow{
		proposalRow("55555555555", "500", "EVA", "SANEAGO", ""),
	}
	if _, err := models.ProcessBatch(ctx, batch4, models.SourceTypeEsteira, operator.ID+9999); err == nil {
		t.Fatalf("expected error for unknown operator")
	}
	after, err := models.PaginateProposals(ctx, 1, 1, nil)
	if err != nil {
		t.Fatalf("recount proposals: %v", err)
	}
	if after.Total != before.Total {
		t.Fatalf("failed batch wrote rows: %d -> %d", before.Total, after.Total)
	}
}

func TestProcessBatchRollsBackPartialInserts(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	operator, ctx := createTestOperator(t, ctx, "rollback@test")

	db := config.GetDB()

	// make the operator-stats update fail after the row loop has already
	// written its inserts, so the whole transaction must unwind
	if err := db.Exec(`CREATE TRIGGER block_operator_stats BEFORE UPDATE ON operators FOR EACH ROW
SIGNAL SQLSTATE '45000' SET MESSAGE_TEXT = 'stats update blocked'`).Error; err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Exec(`DROP TRIGGER IF EXISTS block_operator_stats`).Error
	})

	batch := []models.RawRow{
		proposalRow("66666666666", "600", "FABIO", "GOV GOIAS", "P-600"),
		proposalRow("77777777777", "700", "GISELE", "SANEAGO", ""),
	}
	if _, err := models.ProcessBatch(ctx, batch, models.SourceTypeProdProm, operator.ID); err == nil {
		t.Fatalf("expected batch failure from blocked stats update")
	}

	// no proposal row from the batch may be visible afterwards
	for _, idUnico := range []string{"66666666666_600", "77777777777_700"} {
		_, err := models.GetProposalByUniqueId(ctx, idUnico)
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			t.Fatalf("proposal %s survived the rollback (err=%v)", idUnico, err)
		}
	}

	// no audit rows from the failed batch either
	histories, err := models.PaginateHistories(ctx, 1, 50, &operator.ID)
	if err != nil {
		t.Fatalf("PaginateHistories: %v", err)
	}
	if histories.Total != 0 {
		t.Fatalf("failed batch left %d history rows", histories.Total)
	}

	// counters and score are untouched
	if err := db.Exec(`DROP TRIGGER IF EXISTS block_operator_stats`).Error; err != nil {
		t.Fatalf("drop trigger: %v", err)
	}
	fresh, err := models.GetOperator(ctx, operator.ID)
	if err != nil {
		t.Fatalf("GetOperator: %v", err)
	}
	if fresh.PropostasValidadas != 0 || fresh.PropostasComErro != 0 {
		t.Fatalf("failed batch mutated operator counters: %+v", fresh)
	}

	// the same rows reconcile cleanly once the failure is gone
	result, err := models.ProcessBatch(ctx, batch, models.SourceTypeProdProm, operator.ID)
	if err != nil {
		t.Fatalf("ProcessBatch after recovery: %v", err)
	}
	if result.Inserted != 2 || result.Errors != 0 {
		t.Fatalf("recovery batch counts: %+v", result)
	}
}

func TestValidateBatchAndResolveValidation(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	operator, ctx := createTestOperator(t, ctx, "validate@test")

	seed := []models.RawRow{
		proposalRow("11111111111", "100", "ANA", "GOV GOIAS", "P-100"),
	}
	if _, err := models.ProcessBatch(ctx, seed, models.SourceTypeProdProm, operator.ID); err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	ana, err := models.GetProposalByUniqueId(ctx, "11111111111_100")
	if err != nil {
		t.Fatalf("fetch seeded proposal: %v", err)
	}
	if _, err := models.UpdateProposalManualFields(ctx, ana.ID, &models.UpdateProposalInput{
		Situacao: strPtr("EM ANALISE"),
	}); err != nil {
		t.Fatalf("UpdateProposalManualFields: %v", err)
	}

	rows := []models.RawRow{
		proposalRow("11111111111", "100", "ANA", "GOV GOIAS", ""),
		proposalRow("99999999999", "900", "EDUARDA", "SANEAGO", ""),
		proposalRow("11111111111", "100", "ANA", "GOV GOIAS", ""),
		{"NOME": "SEM IDENTIDADE"},
	}
	run, err := models.ValidateBatch(ctx, rows, operator.ID)
	if err != nil {
		t.Fatalf("ValidateBatch: %v", err)
	}
	stats := run.Stats
	if stats.Total != 4 || stats.Validated != 1 || stats.NotFound != 1 || stats.Duplicates != 1 || stats.Errors != 1 {
		t.Fatalf("validation stats: %+v", stats)
	}
	if len(run.ValidatedRows) != 4 {
		t.Fatalf("expected 4 annotated rows, got %d", len(run.ValidatedRows))
	}

	found := run.ValidatedRows[0]
	if found["VALIDACAO"] != "VALIDADO" {
		t.Fatalf("row 0 outcome = %q", found["VALIDACAO"])
	}
	if found["PROPOSTA30"] != "P-100" || found["SITUACAO"] != "EM ANALISE" {
		t.Fatalf("row 0 missing stored values: %+v", found)
	}

	missing := run.ValidatedRows[1]
	if missing["VALIDACAO"] != "NAO_ENCONTRADO" || missing["DIGITADO"] != "NAO_DIGITADO" {
		t.Fatalf("row 1 annotations: %+v", missing)
	}

	dup := run.ValidatedRows[2]
	if dup["VALIDACAO"] != "DUPLICADO" {
		t.Fatalf("row 2 outcome = %q", dup["VALIDACAO"])
	}

	broken := run.ValidatedRows[3]
	if broken["VALIDACAO"] != "ERRO" {
		t.Fatalf("row 3 outcome = %q", broken["VALIDACAO"])
	}

	// the read path still records the NAO_ENCONTRADO issue
	tipo := models.ValidationTypeNaoEncontrado
	page, err := models.PaginateValidations(ctx, 1, 50, &models.ValidationFilter{
		IdUnico:       strPtr("99999999999_900"),
		TipoValidacao: &tipo,
	})
	if err != nil {
		t.Fatalf("PaginateValidations: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected one NAO_ENCONTRADO issue, got %d", page.Total)
	}
	issue := page.Records[0]

	// resolving works exactly once
	if _, err := models.ResolveValidation(ctx, issue.ID, operator.ID); err != nil {
		t.Fatalf("ResolveValidation: %v", err)
	}
	resolved, err := models.GetValidation(ctx, issue.ID)
	if err != nil {
		t.Fatalf("GetValidation: %v", err)
	}
	if resolved.Resolvido == nil || !*resolved.Resolvido {
		t.Fatalf("issue not marked resolved: %+v", resolved)
	}
	if resolved.ResolvidoEm == nil || resolved.ResolvidoPor != operator.ID {
		t.Fatalf("audit fields not set: %+v", resolved)
	}
	firstResolvedAt := *resolved.ResolvidoEm

	_, err = models.ResolveValidation(ctx, issue.ID, operator.ID+1)
	if !errors.Is(err, utils.ErrorAlreadyResolved) {
		t.Fatalf("second resolve: expected ErrorAlreadyResolved, got %v", err)
	}
	after, err := models.GetValidation(ctx, issue.ID)
	if err != nil {
		t.Fatalf("GetValidation after rejected resolve: %v", err)
	}
	if after.ResolvidoEm == nil || !after.ResolvidoEm.Equal(firstResolvedAt) || after.ResolvidoPor != operator.ID {
		t.Fatalf("rejected resolve mutated audit fields: %+v", after)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("esteira-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("esteira-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=esteira_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
