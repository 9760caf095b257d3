package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"TenderGuard/internal/model"
	"TenderGuard/internal/repository"

	"github.com/sirupsen/logrus"
)

// SyncResult 单次同步的结果汇总。记录级失败只累计不抛出（部分失败可容忍）。
type SyncResult struct {
	Companies      int      `json:"companies"`      // 入图公司数
	Tenders        int      `json:"tenders"`        // 入图招标数
	Bids           int      `json:"bids"`           // 入图投标数
	Persons        int      `json:"persons"`        // 入图人员数
	FinancialTies  int      `json:"financialTies"`  // 入图金融关联数
	EqualityEdges  int      `json:"equalityEdges"`  // 重算的等值边数
	SkippedRecords []string `json:"skippedRecords"` // 因缺字段被跳过的记录ID
	UpsertFailures int      `json:"upsertFailures"` // 单条upsert失败数（已记日志）
}

// GraphSyncService 图投影同步服务。
// 投影是同步时刻主库的纯函数：按固定依赖顺序全量 upsert，随时可重建。
// 同一进程内并发调用由互斥锁串行化；幂等 upsert 保证重试安全。
type GraphSyncService struct {
	mu       sync.Mutex
	registry repository.RegistryRepository
	tenders  repository.TenderRepository
	bids     repository.BidRepository
	graph    repository.GraphRepository
	logger   *logrus.Logger
}

// NewGraphSyncService 创建图投影同步服务
func NewGraphSyncService(
	registry repository.RegistryRepository,
	tenders repository.TenderRepository,
	bids repository.BidRepository,
	graph repository.GraphRepository,
	logger *logrus.Logger,
) *GraphSyncService {
	return &GraphSyncService{
		registry: registry,
		tenders:  tenders,
		bids:     bids,
		graph:    graph,
		logger:   logger,
	}
}

// Sync 全量同步主库到图投影。
// 阶段顺序：公司 → 招标 → 投标 → 人员 → 金融关联 → 等值边重算，
// 每个阶段只依赖之前阶段创建的节点类型。图库连通性失败对整次调用致命；
// 单条记录缺字段跳过并记录，单条upsert失败记日志后继续。
func (s *GraphSyncService) Sync(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. 连通性探测：图库整体不可达时直接失败
	if err := s.graph.Ping(ctx); err != nil {
		return nil, fmt.Errorf("图投影同步中止: %w", err)
	}

	result := &SyncResult{SkippedRecords: []string{}}

	// 2. 公司阶段（含 Address 节点）
	companies, err := s.registry.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取公司列表失败: %w", err)
	}
	valid := s.syncCompanies(ctx, companies, result)

	// 3. 招标阶段（全量读取：投影是主库的纯函数，不允许截断）
	tenders, err := s.tenders.ListAllForSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取招标列表失败: %w", err)
	}
	s.syncTenders(ctx, tenders, result)

	// 4. 投标阶段（BID_ON 边 + SubmissionOrigin 节点）
	bids, err := s.bids.ListAllForSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取投标列表失败: %w", err)
	}
	s.syncBids(ctx, bids, result)

	// 5. 人员阶段（OWNS 边）
	persons, err := s.registry.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取人员列表失败: %w", err)
	}
	s.syncPersons(ctx, persons, result)

	// 6. 金融关联阶段（BankAccount/Notary/EscrowAccount 节点及边）
	ties, err := s.registry.ListFinancialTies(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取金融关联列表失败: %w", err)
	}
	s.syncFinancialTies(ctx, ties, result)

	// 7. 等值边重算（SAME_ADDRESS / SAME_DIRECTOR，全量公司集合上成对生成）
	if err := s.rebuildEqualityEdges(ctx, valid, result); err != nil {
		return nil, err
	}

	s.logger.Infof("图投影同步完成：公司%d 招标%d 投标%d 人员%d 金融关联%d 等值边%d，跳过%d，失败%d",
		result.Companies, result.Tenders, result.Bids, result.Persons,
		result.FinancialTies, result.EqualityEdges, len(result.SkippedRecords), result.UpsertFailures)
	return result, nil
}

// syncCompanies 公司节点与地址节点。缺 id/name/address/director 的记录整体跳过，绝不写半个节点。
func (s *GraphSyncService) syncCompanies(ctx context.Context, companies []*model.Company, result *SyncResult) []*model.Company {
	valid := make([]*model.Company, 0, len(companies))
	seenAddr := make(map[string]bool)
	for _, c := range companies {
		if c.CompanyID == "" || c.Name == "" || c.Address == "" || c.Director == "" {
			s.logger.WithField("company_id", c.CompanyID).Warn("公司记录缺必填字段，跳过入图")
			result.SkippedRecords = append(result.SkippedRecords, "company:"+c.CompanyID)
			continue
		}
		addrNorm := model.NormalizeSignal(c.Address)
		node := &model.GraphNode{
			Kind:  model.NodeCompany,
			Key:   c.CompanyID,
			Label: c.Name,
			Props: model.EncodeProps(model.CompanyNodeProps{
				Name:         c.Name,
				Address:      c.Address,
				Director:     c.Director,
				AddressNorm:  addrNorm,
				DirectorNorm: model.NormalizeSignal(c.Director),
			}),
		}
		if err := s.graph.UpsertNode(ctx, node); err != nil {
			s.logger.WithError(err).Warn("公司节点upsert失败，继续")
			result.UpsertFailures++
			continue
		}
		if !seenAddr[addrNorm] {
			seenAddr[addrNorm] = true
			if err := s.graph.UpsertNode(ctx, &model.GraphNode{
				Kind:  model.NodeAddress,
				Key:   addrNorm,
				Label: c.Address,
			}); err != nil {
				s.logger.WithError(err).Warn("地址节点upsert失败，继续")
				result.UpsertFailures++
			}
		}
		valid = append(valid, c)
		result.Companies++
	}
	return valid
}

func (s *GraphSyncService) syncTenders(ctx context.Context, tenders []*model.Tender, result *SyncResult) {
	for _, t := range tenders {
		if t.TenderID == "" {
			result.SkippedRecords = append(result.SkippedRecords, "tender:(空ID)")
			continue
		}
		node := &model.GraphNode{
			Kind:  model.NodeTender,
			Key:   t.TenderID,
			Label: t.Title,
			Props: model.EncodeProps(model.TenderNodeProps{
				DeptName: t.DeptName,
				Location: t.Location,
				Pincode:  t.Pincode,
				Status:   t.Status,
			}),
		}
		if err := s.graph.UpsertNode(ctx, node); err != nil {
			s.logger.WithError(err).Warn("招标节点upsert失败，继续")
			result.UpsertFailures++
			continue
		}
		result.Tenders++
	}
}

// syncBids BID_ON 边引用前两阶段的公司/招标节点；来源指纹非空时另建 SUBMITTED_FROM
func (s *GraphSyncService) syncBids(ctx context.Context, bids []*model.Bid, result *SyncResult) {
	for _, b := range bids {
		if b.CompanyID == "" || b.TenderID == "" || b.BidAmount <= 0 {
			s.logger.WithField("bid_id", b.BidID).Warn("投标记录缺必填字段，跳过入图")
			result.SkippedRecords = append(result.SkippedRecords, "bid:"+b.BidID)
			continue
		}
		edge := &model.GraphEdge{
			Kind:     model.EdgeBidOn,
			FromKind: model.NodeCompany,
			FromKey:  b.CompanyID,
			ToKind:   model.NodeTender,
			ToKey:    b.TenderID,
			Props: model.EncodeProps(model.BidOnEdgeProps{
				BidID:   b.BidID,
				Amount:  b.BidAmount,
				BidDate: b.BidDate.Format(time.RFC3339),
				IP:      b.IPAddress,
			}),
		}
		if err := s.graph.UpsertEdge(ctx, edge); err != nil {
			s.logger.WithError(err).Warn("BID_ON边upsert失败，继续")
			result.UpsertFailures++
			continue
		}
		if b.IPAddress != "" {
			if err := s.graph.UpsertNode(ctx, &model.GraphNode{
				Kind:  model.NodeSubmissionOrigin,
				Key:   b.IPAddress,
				Label: b.IPAddress,
			}); err != nil {
				s.logger.WithError(err).Warn("来源节点upsert失败，继续")
				result.UpsertFailures++
			} else if err := s.graph.UpsertEdge(ctx, &model.GraphEdge{
				Kind:     model.EdgeSubmittedFrom,
				FromKind: model.NodeCompany,
				FromKey:  b.CompanyID,
				ToKind:   model.NodeSubmissionOrigin,
				ToKey:    b.IPAddress,
			}); err != nil {
				s.logger.WithError(err).Warn("SUBMITTED_FROM边upsert失败，继续")
				result.UpsertFailures++
			}
		}
		result.Bids++
	}
}

func (s *GraphSyncService) syncPersons(ctx context.Context, persons []*model.Person, result *SyncResult) {
	for _, p := range persons {
		if p.PersonID == "" || p.PersonName == "" {
			s.logger.WithField("person_id", p.PersonID).Warn("人员记录缺必填字段，跳过入图")
			result.SkippedRecords = append(result.SkippedRecords, "person:"+p.PersonID)
			continue
		}
		if err := s.graph.UpsertNode(ctx, &model.GraphNode{
			Kind:  model.NodePerson,
			Key:   p.PersonID,
			Label: p.PersonName,
		}); err != nil {
			s.logger.WithError(err).Warn("人员节点upsert失败，继续")
			result.UpsertFailures++
			continue
		}
		for _, own := range p.Companies {
			if own.CompanyID == "" {
				continue
			}
			if err := s.graph.UpsertEdge(ctx, &model.GraphEdge{
				Kind:     model.EdgeOwns,
				FromKind: model.NodePerson,
				FromKey:  p.PersonID,
				ToKind:   model.NodeCompany,
				ToKey:    own.CompanyID,
				Props: model.EncodeProps(model.OwnsEdgeProps{
					Designation:  own.Designation,
					SharePercent: own.SharePercent,
				}),
			}); err != nil {
				s.logger.WithError(err).Warn("OWNS边upsert失败，继续")
				result.UpsertFailures++
			}
		}
		result.Persons++
	}
}

// syncFinancialTies 仅投影公司实体的指纹；税号指纹无对应节点类型，不入图
func (s *GraphSyncService) syncFinancialTies(ctx context.Context, ties []*model.FinancialTie, result *SyncResult) {
	type instrument struct {
		nodeKind string
		edgeKind string
		key      string
	}
	for _, t := range ties {
		if t.EntityID == "" {
			result.SkippedRecords = append(result.SkippedRecords, "financial_tie:(空ID)")
			continue
		}
		if t.EntityType != "" && t.EntityType != "company" {
			continue
		}
		instruments := []instrument{
			{model.NodeBankAccount, model.EdgeHasBankAccount, t.BankAccHash},
			{model.NodeNotary, model.EdgeUsesNotary, t.NotaryID},
			{model.NodeEscrowAccount, model.EdgeHasEscrowAccount, t.EMDAccountHash},
		}
		linked := false
		for _, ins := range instruments {
			if ins.key == "" {
				continue
			}
			if err := s.graph.UpsertNode(ctx, &model.GraphNode{
				Kind:  ins.nodeKind,
				Key:   ins.key,
				Label: ins.key,
			}); err != nil {
				s.logger.WithError(err).Warn("金融工具节点upsert失败，继续")
				result.UpsertFailures++
				continue
			}
			if err := s.graph.UpsertEdge(ctx, &model.GraphEdge{
				Kind:     ins.edgeKind,
				FromKind: model.NodeCompany,
				FromKey:  t.EntityID,
				ToKind:   ins.nodeKind,
				ToKey:    ins.key,
			}); err != nil {
				s.logger.WithError(err).Warn("金融关联边upsert失败，继续")
				result.UpsertFailures++
				continue
			}
			linked = true
		}
		if linked {
			result.FinancialTies++
		}
	}
}

// rebuildEqualityEdges 先删旧边再成对生成，使等值边集严格等于当前公司集合的派生结果。
// 无序对按公司ID字典序定向，保证幂等且不产生反向重复边。
func (s *GraphSyncService) rebuildEqualityEdges(ctx context.Context, companies []*model.Company, result *SyncResult) error {
	if err := s.graph.DeleteEdgesByKind(ctx, model.EdgeSameAddress, model.EdgeSameDirector); err != nil {
		return fmt.Errorf("清除旧等值边失败: %w", err)
	}

	byAddress := make(map[string][]*model.Company)
	byDirector := make(map[string][]*model.Company)
	for _, c := range companies {
		if k := model.NormalizeSignal(c.Address); k != "" {
			byAddress[k] = append(byAddress[k], c)
		}
		if k := model.NormalizeSignal(c.Director); k != "" {
			byDirector[k] = append(byDirector[k], c)
		}
	}

	result.EqualityEdges += s.upsertPairEdges(ctx, model.EdgeSameAddress, byAddress, result)
	result.EqualityEdges += s.upsertPairEdges(ctx, model.EdgeSameDirector, byDirector, result)
	return nil
}

func (s *GraphSyncService) upsertPairEdges(ctx context.Context, kind string, groups map[string][]*model.Company, result *SyncResult) int {
	created := 0
	for value, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].CompanyID < group[j].CompanyID })
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if err := s.graph.UpsertEdge(ctx, &model.GraphEdge{
					Kind:     kind,
					FromKind: model.NodeCompany,
					FromKey:  group[i].CompanyID,
					ToKind:   model.NodeCompany,
					ToKey:    group[j].CompanyID,
					Props:    model.EncodeProps(model.PairEdgeProps{Value: value}),
				}); err != nil {
					s.logger.WithError(err).Warnf("%s边upsert失败，继续", kind)
					result.UpsertFailures++
					continue
				}
				created++
			}
		}
	}
	return created
}
