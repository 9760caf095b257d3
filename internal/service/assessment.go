package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"TenderGuard/internal/config"
	"TenderGuard/internal/model"
	"TenderGuard/internal/repository"

	"github.com/sirupsen/logrus"
)

// CheckStatus 单项检查状态
const (
	StatusClear   = "clear"   // 无发现
	StatusWarning = "warning" // 弱相关发现
	StatusDanger  = "danger"  // 与本招标高度相关的发现
	StatusError   = "error"   // 检查本身失败（存储不可达等），绝不降级为clear
)

// 审批建议文案（整体状态的纯函数）
const (
	RecommendationDanger  = "High risk — review carefully before approval"
	RecommendationWarning = "Some concerns — manual review recommended"
	RecommendationClear   = "Low risk — safe to approve"
)

// 五项子检查名称
const (
	CheckAddress   = "address"
	CheckIP        = "ip"
	CheckOwnership = "ownership"
	CheckFinancial = "financial"
	CheckClauses   = "clauses"
)

// CheckResult 单项检查结果
type CheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Count  int    `json:"count"`
	Detail string `json:"detail"`
}

// TenderAssessment 单个招标的风险评估结果。始终包含全部5项子检查，
// 失败项以 error 状态呈现，永远不会缺席。
type TenderAssessment struct {
	TenderID       string        `json:"tenderId"`
	Checks         []CheckResult `json:"checks"`
	Overall        string        `json:"overall"`
	Recommendation string        `json:"recommendation"`
}

// FraudSummary 监管看板汇总
type FraudSummary struct {
	AddressCollusionCount int       `json:"addressCollusionCount"`
	IPCollusionCount      int       `json:"ipCollusionCount"`
	SharedOwnershipCount  int       `json:"sharedOwnershipCount"`
	FinancialTiesCount    int       `json:"financialTiesCount"`
	HighRiskClauseCount   int64     `json:"highRiskClauseCount"`
	LastUpdated           time.Time `json:"lastUpdated"`
}

// FlaggedClause 高风险条款
type FlaggedClause struct {
	ClauseID        string  `json:"clauseId"`
	RequirementText string  `json:"requirementText"`
	Score           float64 `json:"score"`
	IsMandatory     bool    `json:"isMandatory"`
}

// HighRiskTender 按招标聚合的高风险条款组
type HighRiskTender struct {
	TenderID       string          `json:"tenderId"`
	RiskScore      float64         `json:"riskScore"`
	FlaggedClauses []FlaggedClause `json:"flaggedClauses"`
}

// ClauseEnqueuer 后台评分任务入口（fire-and-forget，绝不阻塞评估请求）
type ClauseEnqueuer interface {
	Enqueue(tenderID string)
}

// AssessmentService 风险聚合器：把四个图检测与条款限制性分数折叠为
// 单个招标的审批辅助结论。结论仅供人工审批参考，本服务不做任何审批决定。
type AssessmentService struct {
	detector *DetectorService
	tenders  repository.TenderRepository
	enqueuer ClauseEnqueuer
	risk     config.RiskConfig
	logger   *logrus.Logger
}

// NewAssessmentService 创建风险聚合服务
func NewAssessmentService(
	detector *DetectorService,
	tenders repository.TenderRepository,
	enqueuer ClauseEnqueuer,
	risk config.RiskConfig,
	logger *logrus.Logger,
) *AssessmentService {
	return &AssessmentService{
		detector: detector,
		tenders:  tenders,
		enqueuer: enqueuer,
		risk:     risk,
		logger:   logger,
	}
}

// AssessTender 对单个招标产出完整的五项检查评估。
// 四个图检测并发执行且错误互相隔离：单个检测失败只把该项标为 error，
// 不取消其余检测，也不中断整体评估（隐藏检查故障是最危险的失败模式）。
func (s *AssessmentService) AssessTender(ctx context.Context, tenderID string) (*TenderAssessment, error) {
	tender, err := s.tenders.GetByTenderID(ctx, tenderID)
	if err != nil {
		return nil, err
	}

	// 1. 四个检测器并发跑在全局投影上（共谋信号是系统级事实，不限于本招标）
	var (
		wg            sync.WaitGroup
		addrFindings  []AddressFinding
		ipFindings    []IPFinding
		ownFindings   []OwnershipFinding
		finReport     *FinancialTiesReport
		addrErr       error
		ipErr, ownErr error
		finErr        error
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		addrFindings, addrErr = s.detector.DetectAddressCollusion(ctx)
	}()
	go func() {
		defer wg.Done()
		ipFindings, ipErr = s.detector.DetectSubmissionNetworkCollusion(ctx)
	}()
	go func() {
		defer wg.Done()
		ownFindings, ownErr = s.detector.DetectSharedOwnership(ctx)
	}()
	go func() {
		defer wg.Done()
		finReport, finErr = s.detector.DetectFinancialTies(ctx)
	}()
	wg.Wait()

	checks := make([]CheckResult, 0, 5)
	checks = append(checks, s.addressCheck(tender, addrFindings, addrErr))
	checks = append(checks, s.countCheck(CheckIP, len(ipFindings), ipErr, "共享提交来源"))
	checks = append(checks, s.countCheck(CheckOwnership, len(ownFindings), ownErr, "共享持股"))
	finCount := 0
	if finReport != nil {
		finCount = len(finReport.BankAccounts) + len(finReport.Notaries) + len(finReport.EscrowAccounts)
	}
	checks = append(checks, s.countCheck(CheckFinancial, finCount, finErr, "共享金融工具"))

	// 2. 条款检查独立于图检测；未评分条款异步入队并按0计
	checks = append(checks, s.clauseCheck(ctx, tenderID))

	overall := foldOverall(checks)
	return &TenderAssessment{
		TenderID:       tenderID,
		Checks:         checks,
		Overall:        overall,
		Recommendation: recommendationFor(overall),
	}, nil
}

// addressCheck 地址检查的升级规则：发现与本招标地点相关（pincode 出现在共享地址中，
// 或地址与 location 任一方向子串匹配）→ danger；仅有全局发现 → warning；无发现 → clear。
func (s *AssessmentService) addressCheck(tender *model.Tender, findings []AddressFinding, err error) CheckResult {
	if err != nil {
		s.logger.WithError(err).Error("地址检查执行失败")
		return CheckResult{Name: CheckAddress, Status: StatusError, Detail: err.Error()}
	}
	if len(findings) == 0 {
		return CheckResult{Name: CheckAddress, Status: StatusClear}
	}
	locNorm := model.NormalizeSignal(tender.Location)
	for _, f := range findings {
		addrNorm := model.NormalizeSignal(f.Address)
		pincodeHit := tender.Pincode != "" && strings.Contains(addrNorm, tender.Pincode)
		locationHit := locNorm != "" &&
			(strings.Contains(addrNorm, locNorm) || strings.Contains(locNorm, addrNorm))
		if pincodeHit || locationHit {
			return CheckResult{
				Name:   CheckAddress,
				Status: StatusDanger,
				Count:  f.Count,
				Detail: fmt.Sprintf("%d家公司共享地址 %q，与招标地点相关", f.Count, f.Address),
			}
		}
	}
	return CheckResult{
		Name:   CheckAddress,
		Status: StatusWarning,
		Count:  len(findings),
		Detail: fmt.Sprintf("存在%d处共享地址（与本招标地点无直接匹配）", len(findings)),
	}
}

// countCheck IP/持股/金融三项的升级规则：任何发现即 danger（系统级信号），无发现 clear
func (s *AssessmentService) countCheck(name string, count int, err error, label string) CheckResult {
	if err != nil {
		s.logger.WithError(err).Errorf("%s检查执行失败", label)
		return CheckResult{Name: name, Status: StatusError, Detail: err.Error()}
	}
	if count == 0 {
		return CheckResult{Name: name, Status: StatusClear}
	}
	return CheckResult{
		Name:   name,
		Status: StatusDanger,
		Count:  count,
		Detail: fmt.Sprintf("检测到%d处%s", count, label),
	}
}

// clauseCheck 条款限制性检查。未评分条款按0计并异步触发外部评分，不阻塞本次评估。
func (s *AssessmentService) clauseCheck(ctx context.Context, tenderID string) CheckResult {
	clauses, err := s.tenders.ListClauses(ctx, tenderID)
	if err != nil {
		s.logger.WithError(err).Error("条款检查执行失败")
		return CheckResult{Name: CheckClauses, Status: StatusError, Detail: err.Error()}
	}

	maxScore := 0.0
	flagged := 0
	unscored := 0
	for _, c := range clauses {
		if c.RestrictivenessScore == nil {
			unscored++
			continue // 未评分按0计
		}
		if *c.RestrictivenessScore > maxScore {
			maxScore = *c.RestrictivenessScore
		}
		if *c.RestrictivenessScore >= s.risk.ClauseWarningThreshold {
			flagged++
		}
	}
	if unscored > 0 && s.enqueuer != nil {
		s.enqueuer.Enqueue(tenderID)
	}

	status := StatusClear
	switch {
	case maxScore >= s.risk.ClauseDangerThreshold:
		status = StatusDanger
	case maxScore >= s.risk.ClauseWarningThreshold:
		status = StatusWarning
	}
	return CheckResult{
		Name:   CheckClauses,
		Status: status,
		Count:  flagged,
		Detail: fmt.Sprintf("最高限制性分数%.2f，%d条待评分", maxScore, unscored),
	}
}

// foldOverall 整体状态折叠：danger > warning > clear；
// 存在 error 项时至少为 warning，检查故障绝不能呈现为全清。
func foldOverall(checks []CheckResult) string {
	overall := StatusClear
	for _, c := range checks {
		switch c.Status {
		case StatusDanger:
			return StatusDanger
		case StatusWarning, StatusError:
			overall = StatusWarning
		}
	}
	return overall
}

// recommendationFor 审批建议文案（整体状态的纯函数）
func recommendationFor(overall string) string {
	switch overall {
	case StatusDanger:
		return RecommendationDanger
	case StatusWarning:
		return RecommendationWarning
	default:
		return RecommendationClear
	}
}

// Summary 监管看板汇总：四类发现数量 + 高风险条款数
func (s *AssessmentService) Summary(ctx context.Context) (*FraudSummary, error) {
	addr, err := s.detector.DetectAddressCollusion(ctx)
	if err != nil {
		return nil, err
	}
	ip, err := s.detector.DetectSubmissionNetworkCollusion(ctx)
	if err != nil {
		return nil, err
	}
	own, err := s.detector.DetectSharedOwnership(ctx)
	if err != nil {
		return nil, err
	}
	fin, err := s.detector.DetectFinancialTies(ctx)
	if err != nil {
		return nil, err
	}
	highRisk, err := s.tenders.CountClausesAboveScore(ctx, s.risk.ClauseDangerThreshold)
	if err != nil {
		return nil, err
	}
	return &FraudSummary{
		AddressCollusionCount: len(addr),
		IPCollusionCount:      len(ip),
		SharedOwnershipCount:  len(own),
		FinancialTiesCount:    len(fin.BankAccounts) + len(fin.Notaries) + len(fin.EscrowAccounts),
		HighRiskClauseCount:   highRisk,
		LastUpdated:           time.Now(),
	}, nil
}

// HighRiskClauses 按招标聚合分数≥threshold的条款，组内按分数降序
func (s *AssessmentService) HighRiskClauses(ctx context.Context, threshold float64) ([]*HighRiskTender, error) {
	if threshold <= 0 {
		threshold = s.risk.ClauseWarningThreshold
	}
	clauses, err := s.tenders.ListClausesAboveScore(ctx, threshold)
	if err != nil {
		return nil, err
	}

	byTender := make(map[string]*HighRiskTender)
	var order []string
	for _, c := range clauses {
		group, ok := byTender[c.TenderID]
		if !ok {
			group = &HighRiskTender{TenderID: c.TenderID}
			byTender[c.TenderID] = group
			order = append(order, c.TenderID)
		}
		score := 0.0
		if c.RestrictivenessScore != nil {
			score = *c.RestrictivenessScore
		}
		if score > group.RiskScore {
			group.RiskScore = score
		}
		group.FlaggedClauses = append(group.FlaggedClauses, FlaggedClause{
			ClauseID:        c.ClauseID,
			RequirementText: c.RequirementText,
			Score:           score,
			IsMandatory:     c.IsMandatory,
		})
	}

	// 输入按分数降序，首次出现顺序即最高分顺序
	result := make([]*HighRiskTender, 0, len(order))
	for _, id := range order {
		result = append(result, byTender[id])
	}
	return result, nil
}
