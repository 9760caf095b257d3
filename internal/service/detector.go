package service

import (
	"context"
	"fmt"
	"sort"

	"TenderGuard/internal/model"
	"TenderGuard/internal/repository"

	"github.com/sirupsen/logrus"
)

// CompanyRef 检测结果中的公司引用
type CompanyRef struct {
	CompanyID   string `json:"companyId"`
	CompanyName string `json:"companyName"`
}

// AddressFinding 共享地址发现：一个地址对应≥2家公司
type AddressFinding struct {
	Address   string       `json:"address"`
	Companies []CompanyRef `json:"companies"`
	Count     int          `json:"count"`
}

// IPBidRef 共享来源发现中的单笔投标引用
type IPBidRef struct {
	CompanyID   string `json:"companyId"`
	CompanyName string `json:"companyName"`
	TenderID    string `json:"tenderId"`
	BidID       string `json:"bidId"`
}

// IPFinding 共享提交来源发现：一个来源指纹对应≥2笔投标
type IPFinding struct {
	IPAddress string     `json:"ipAddress"`
	Count     int        `json:"count"`
	Bids      []IPBidRef `json:"bids"`
}

// OwnedCompanyRef 共享持股发现中的持股记录
type OwnedCompanyRef struct {
	CompanyID    string  `json:"companyId"`
	CompanyName  string  `json:"companyName"`
	Designation  string  `json:"designation"`
	SharePercent float64 `json:"sharePercent"`
}

// OwnershipFinding 共享持股发现：一人持股≥2家公司
type OwnershipFinding struct {
	PersonID   string            `json:"personId"`
	PersonName string            `json:"personName"`
	Count      int               `json:"count"`
	Companies  []OwnedCompanyRef `json:"companies"`
}

// InstrumentFinding 共享金融工具发现：一个工具（账户/公证人/保证金账户）对应≥2家公司
type InstrumentFinding struct {
	InstrumentID string       `json:"instrumentId"`
	Companies    []CompanyRef `json:"companies"`
	Count        int          `json:"count"`
}

// FinancialTiesReport 金融关联检测结果。三类工具分列，调用方能区分关联原因。
type FinancialTiesReport struct {
	BankAccounts   []InstrumentFinding `json:"bankAccounts"`
	Notaries       []InstrumentFinding `json:"notaries"`
	EscrowAccounts []InstrumentFinding `json:"escrowAccounts"`
}

// DetectorService 共谋模式检测器集合。四个检测均为图投影上的只读查询，
// 互不依赖、可并发执行；任何写操作都不属于检测器。
type DetectorService struct {
	graph  repository.GraphRepository
	logger *logrus.Logger
}

// NewDetectorService 创建检测服务
func NewDetectorService(graph repository.GraphRepository, logger *logrus.Logger) *DetectorService {
	return &DetectorService{graph: graph, logger: logger}
}

// companyIndex 拉取公司节点并解析属性，供各检测器做名称/地址映射
func (s *DetectorService) companyIndex(ctx context.Context) (map[string]model.CompanyNodeProps, error) {
	nodes, err := s.graph.ListNodes(ctx, model.NodeCompany)
	if err != nil {
		return nil, err
	}
	index := make(map[string]model.CompanyNodeProps, len(nodes))
	for _, n := range nodes {
		var props model.CompanyNodeProps
		if err := model.DecodeProps(n.Props, &props); err != nil {
			s.logger.WithError(err).WithField("company_id", n.Key).Warn("公司节点属性解析失败，跳过")
			continue
		}
		index[n.Key] = props
	}
	return index, nil
}

// DetectAddressCollusion 共享地址检测。
// 归一化地址相同且公司数≥2时产出一条发现；按公司数降序、地址字典序升序排序。
func (s *DetectorService) DetectAddressCollusion(ctx context.Context) ([]AddressFinding, error) {
	index, err := s.companyIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("共享地址检测失败: %w", err)
	}

	type group struct {
		repID     string
		display   string
		companies []CompanyRef
	}
	groups := make(map[string]*group)
	for companyID, props := range index {
		if props.AddressNorm == "" {
			continue
		}
		// 展示地址固定取公司ID最小者的原始拼写，与遍历顺序无关
		g, ok := groups[props.AddressNorm]
		if !ok {
			g = &group{repID: companyID, display: props.Address}
			groups[props.AddressNorm] = g
		} else if companyID < g.repID {
			g.repID = companyID
			g.display = props.Address
		}
		g.companies = append(g.companies, CompanyRef{CompanyID: companyID, CompanyName: props.Name})
	}

	findings := make([]AddressFinding, 0, len(groups))
	for _, g := range groups {
		if len(g.companies) < 2 {
			continue // 单一公司不构成共谋信号
		}
		sort.Slice(g.companies, func(i, j int) bool { return g.companies[i].CompanyID < g.companies[j].CompanyID })
		findings = append(findings, AddressFinding{
			Address:   g.display,
			Companies: g.companies,
			Count:     len(g.companies),
		})
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Count != findings[j].Count {
			return findings[i].Count > findings[j].Count
		}
		return findings[i].Address < findings[j].Address
	})
	return findings, nil
}

// DetectSubmissionNetworkCollusion 共享提交来源检测。
// 指纹为空的投标完全排除（缺失不构成证据）；按投标数降序、指纹升序排序。
func (s *DetectorService) DetectSubmissionNetworkCollusion(ctx context.Context) ([]IPFinding, error) {
	index, err := s.companyIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("共享来源检测失败: %w", err)
	}
	edges, err := s.graph.ListEdges(ctx, model.EdgeBidOn)
	if err != nil {
		return nil, fmt.Errorf("共享来源检测失败: %w", err)
	}

	groups := make(map[string][]IPBidRef)
	for _, e := range edges {
		var props model.BidOnEdgeProps
		if err := model.DecodeProps(e.Props, &props); err != nil {
			s.logger.WithError(err).WithField("bid_edge", e.FromKey+"→"+e.ToKey).Warn("BID_ON边属性解析失败，跳过")
			continue
		}
		if props.IP == "" {
			continue
		}
		groups[props.IP] = append(groups[props.IP], IPBidRef{
			CompanyID:   e.FromKey,
			CompanyName: index[e.FromKey].Name,
			TenderID:    e.ToKey,
			BidID:       props.BidID,
		})
	}

	findings := make([]IPFinding, 0, len(groups))
	for ip, bids := range groups {
		if len(bids) < 2 {
			continue
		}
		sort.Slice(bids, func(i, j int) bool {
			if bids[i].CompanyID != bids[j].CompanyID {
				return bids[i].CompanyID < bids[j].CompanyID
			}
			return bids[i].TenderID < bids[j].TenderID
		})
		findings = append(findings, IPFinding{IPAddress: ip, Count: len(bids), Bids: bids})
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Count != findings[j].Count {
			return findings[i].Count > findings[j].Count
		}
		return findings[i].IPAddress < findings[j].IPAddress
	})
	return findings, nil
}

// DetectSharedOwnership 共享持股检测。一人持股≥2家公司产出一条发现；
// 按持股公司数降序、人员ID升序排序。
func (s *DetectorService) DetectSharedOwnership(ctx context.Context) ([]OwnershipFinding, error) {
	index, err := s.companyIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("共享持股检测失败: %w", err)
	}
	persons, err := s.graph.ListNodes(ctx, model.NodePerson)
	if err != nil {
		return nil, fmt.Errorf("共享持股检测失败: %w", err)
	}
	edges, err := s.graph.ListEdges(ctx, model.EdgeOwns)
	if err != nil {
		return nil, fmt.Errorf("共享持股检测失败: %w", err)
	}

	personName := make(map[string]string, len(persons))
	for _, p := range persons {
		personName[p.Key] = p.Label
	}

	groups := make(map[string][]OwnedCompanyRef)
	for _, e := range edges {
		var props model.OwnsEdgeProps
		if err := model.DecodeProps(e.Props, &props); err != nil {
			s.logger.WithError(err).WithField("owns_edge", e.FromKey+"→"+e.ToKey).Warn("OWNS边属性解析失败，跳过")
			continue
		}
		groups[e.FromKey] = append(groups[e.FromKey], OwnedCompanyRef{
			CompanyID:    e.ToKey,
			CompanyName:  index[e.ToKey].Name,
			Designation:  props.Designation,
			SharePercent: props.SharePercent,
		})
	}

	findings := make([]OwnershipFinding, 0, len(groups))
	for personID, owned := range groups {
		if len(owned) < 2 {
			continue
		}
		sort.Slice(owned, func(i, j int) bool { return owned[i].CompanyID < owned[j].CompanyID })
		findings = append(findings, OwnershipFinding{
			PersonID:   personID,
			PersonName: personName[personID],
			Count:      len(owned),
			Companies:  owned,
		})
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Count != findings[j].Count {
			return findings[i].Count > findings[j].Count
		}
		return findings[i].PersonID < findings[j].PersonID
	})
	return findings, nil
}

// DetectFinancialTies 共享金融工具检测。三个子检测遵循同一"≥2家公司共享一个工具"
// 规则，结果按工具类型分列而非合并，调用方可区分关联原因。
func (s *DetectorService) DetectFinancialTies(ctx context.Context) (*FinancialTiesReport, error) {
	index, err := s.companyIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("金融关联检测失败: %w", err)
	}

	report := &FinancialTiesReport{}
	kinds := []struct {
		edgeKind string
		out      *[]InstrumentFinding
	}{
		{model.EdgeHasBankAccount, &report.BankAccounts},
		{model.EdgeUsesNotary, &report.Notaries},
		{model.EdgeHasEscrowAccount, &report.EscrowAccounts},
	}
	for _, k := range kinds {
		findings, err := s.detectSharedInstrument(ctx, k.edgeKind, index)
		if err != nil {
			return nil, fmt.Errorf("金融关联检测失败: %w", err)
		}
		*k.out = findings
	}
	return report, nil
}

func (s *DetectorService) detectSharedInstrument(ctx context.Context, edgeKind string, index map[string]model.CompanyNodeProps) ([]InstrumentFinding, error) {
	edges, err := s.graph.ListEdges(ctx, edgeKind)
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]CompanyRef)
	for _, e := range edges {
		groups[e.ToKey] = append(groups[e.ToKey], CompanyRef{
			CompanyID:   e.FromKey,
			CompanyName: index[e.FromKey].Name,
		})
	}
	findings := make([]InstrumentFinding, 0, len(groups))
	for instrumentID, companies := range groups {
		if len(companies) < 2 {
			continue
		}
		sort.Slice(companies, func(i, j int) bool { return companies[i].CompanyID < companies[j].CompanyID })
		findings = append(findings, InstrumentFinding{
			InstrumentID: instrumentID,
			Companies:    companies,
			Count:        len(companies),
		})
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Count != findings[j].Count {
			return findings[i].Count > findings[j].Count
		}
		return findings[i].InstrumentID < findings[j].InstrumentID
	})
	return findings, nil
}
