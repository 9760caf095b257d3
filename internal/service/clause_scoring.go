package service

import (
	"context"

	"TenderGuard/internal/nlp"
	"TenderGuard/internal/repository"

	"github.com/sirupsen/logrus"
)

// ScorerClient 条款评分客户端抽象（生产实现为 nlp.Client，便于测试注入）
type ScorerClient interface {
	ScoreClauses(ctx context.Context, clauses []nlp.ClauseInput) ([]nlp.ClauseScore, error)
}

// ScoreWorker 后台条款评分任务。入队只投递招标编号，
// 处理时重查未评分条款，重复入队天然幂等。
type ScoreWorker struct {
	tenders repository.TenderRepository
	scorer  ScorerClient
	queue   chan string
	logger  *logrus.Logger
}

// NewScoreWorker 创建评分任务，queueSize 为待处理队列长度
func NewScoreWorker(tenders repository.TenderRepository, scorer ScorerClient, queueSize int, logger *logrus.Logger) *ScoreWorker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &ScoreWorker{
		tenders: tenders,
		scorer:  scorer,
		queue:   make(chan string, queueSize),
		logger:  logger,
	}
}

// Enqueue 非阻塞入队。队列满时丢弃并告警，评分可延后由下次入队补偿，
// 绝不反压调用方（创建招标不能被评分队列卡住）。
func (w *ScoreWorker) Enqueue(tenderID string) {
	select {
	case w.queue <- tenderID:
	default:
		w.logger.WithField("tender_id", tenderID).Warn("评分队列已满，本次入队丢弃")
	}
}

// Run 后台消费评分队列，ctx 取消时退出
func (w *ScoreWorker) Run(ctx context.Context) error {
	w.logger.Info("条款评分任务启动")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("条款评分任务退出")
			return nil
		case tenderID := <-w.queue:
			if err := w.process(ctx, tenderID); err != nil {
				w.logger.WithError(err).WithField("tender_id", tenderID).Warn("条款评分处理失败")
			}
		}
	}
}

// process 拉取该招标下所有未评分条款，批量送评后逐条回写。
// 部分成功是常态：服务端漏评的条款保持未评分，等待下次触发。
func (w *ScoreWorker) process(ctx context.Context, tenderID string) error {
	clauses, err := w.tenders.ListUnscoredClauses(ctx, tenderID)
	if err != nil {
		return err
	}
	if len(clauses) == 0 {
		return nil
	}

	inputs := make([]nlp.ClauseInput, 0, len(clauses))
	for _, c := range clauses {
		inputs = append(inputs, nlp.ClauseInput{
			ClauseID:        c.ClauseID,
			SectionType:     c.SectionType,
			RequirementText: c.RequirementText,
		})
	}

	scores, err := w.scorer.ScoreClauses(ctx, inputs)
	if err != nil {
		return err
	}

	written := 0
	for _, sc := range scores {
		if sc.Score < 0 || sc.Score > 1 {
			w.logger.WithField("clause_id", sc.ClauseID).WithField("score", sc.Score).Warn("评分超出[0,1]区间，丢弃")
			continue
		}
		if err := w.tenders.UpdateClauseScore(ctx, tenderID, sc.ClauseID, sc.Score); err != nil {
			w.logger.WithError(err).WithField("clause_id", sc.ClauseID).Warn("条款分数回写失败")
			continue
		}
		written++
	}
	w.logger.WithField("tender_id", tenderID).
		WithField("clauses", len(clauses)).
		WithField("scored", written).
		Info("条款评分回写完成")
	return nil
}
