package reports

import (
	"context"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
)

type DigitizationSummaryResponse struct {
	Digitado string `json:"digitado"`
	Count    int    `json:"count"`
}

type SourceSummaryResponse struct {
	FonteDados string `json:"fonte_dados"`
	Count      int    `json:"count"`
}

type EmployerSummaryResponse struct {
	Empregador string `json:"empregador"`
	Logo       int    `json:"logo"`
	Count      int    `json:"count"`
}

type OperatorSummaryResponse struct {
	OperatorId         int    `json:"operator_id"`
	Nome               string `json:"nome"`
	PropostasValidadas int    `json:"propostas_validadas"`
	PropostasComErro   int    `json:"propostas_com_erro"`
	Score              int    `json:"score"`
}

type DashboardResponse struct {
	TotalProposals    int                            `json:"total_proposals"`
	OpenValidations   int                            `json:"open_validations"`
	ByDigitization    []*DigitizationSummaryResponse `json:"by_digitization"`
	BySource          []*SourceSummaryResponse       `json:"by_source"`
	TopEmployers      []*EmployerSummaryResponse     `json:"top_employers"`
	OperatorRanking   []*OperatorSummaryResponse     `json:"operator_ranking"`
}

func GetDashboard(ctx context.Context) (*DashboardResponse, error) {
	db := config.GetDB()
	out := &DashboardResponse{}

	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM proposals`).Scan(&out.TotalProposals).Error; err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM validations WHERE resolvido = FALSE`).Scan(&out.OpenValidations).Error; err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Raw(`
SELECT digitado, COUNT(*) AS count
FROM proposals
GROUP BY digitado
`).Scan(&out.ByDigitization).Error; err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Raw(`
SELECT fonte_dados, COUNT(*) AS count
FROM proposals
GROUP BY fonte_dados
`).Scan(&out.BySource).Error; err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Raw(`
SELECT empregador, logo, COUNT(*) AS count
FROM proposals
GROUP BY empregador, logo
ORDER BY count DESC
LIMIT 10
`).Scan(&out.TopEmployers).Error; err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Raw(`
SELECT id AS operator_id, nome, propostas_validadas, propostas_com_erro, score
FROM operators
WHERE is_active = TRUE
ORDER BY score DESC, propostas_validadas DESC
`).Scan(&out.OperatorRanking).Error; err != nil {
		return nil, err
	}

	return out, nil
}
