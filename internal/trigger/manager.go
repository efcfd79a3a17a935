package trigger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/vox/backend/internal/assign"
	"github.com/wonny/vox/backend/internal/classify"
	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/logger"
)

// handler normalizes one trigger's input shape into canonical topics.
// Per-item failures go into errs; surviving topics still flow on.
type handler func(ctx context.Context, cfg contracts.TriggerConfig) (topics []contracts.Topic, errs []string)

// Manager routes trigger events to their handlers and drives the
// intake pipeline: normalize, classify, assign.
// ⭐ SSOT: 트리거 라우팅은 여기서만
type Manager struct {
	classifier *classify.Classifier
	engine     *assign.Engine
	market     contracts.MarketData
	logger     *logger.Logger

	handlers map[contracts.TriggerKind]handler
	now      func() time.Time
}

// NewManager wires the trigger handler table
func NewManager(classifier *classify.Classifier, engine *assign.Engine, market contracts.MarketData, log *logger.Logger) *Manager {
	m := &Manager{
		classifier: classifier,
		engine:     engine,
		market:     market,
		logger:     log.WithField("module", "trigger"),
		now:        time.Now,
	}
	m.handlers = map[contracts.TriggerKind]handler{
		contracts.TriggerTrendingTopic:  m.handleTrendingTopic,
		contracts.TriggerLimitUp:        m.handleLimitUp,
		contracts.TriggerStockList:      m.handleStockList,
		contracts.TriggerNewsEvent:      m.handleNewsEvent,
		contracts.TriggerEarningsReport: m.handleEarningsReport,
	}
	return m
}

// Execute runs one trigger event end to end. An unknown kind is a
// configuration error and has no side effects.
func (m *Manager) Execute(ctx context.Context, cfg contracts.TriggerConfig) (*contracts.TriggerResult, error) {
	h, ok := m.handlers[cfg.Kind]
	if !ok {
		return nil, &contracts.ConfigurationError{
			Field:  "kind",
			Reason: fmt.Sprintf("unknown trigger kind %q", cfg.Kind),
		}
	}

	topics, errs := h(ctx, cfg)
	result := &contracts.TriggerResult{Processed: len(topics), Errors: errs}

	for i := range topics {
		cls := m.classifier.Classify(ctx, topics[i])
		classify.Apply(&topics[i], cls)
	}

	processed, err := m.engine.Process(ctx, topics)
	if err != nil {
		return nil, fmt.Errorf("assignment failed: %w", err)
	}
	for _, p := range processed {
		result.Generated += len(p.Created)
		result.Errors = append(result.Errors, p.Errors...)
	}

	m.logger.WithFields(map[string]interface{}{
		"kind":      string(cfg.Kind),
		"processed": result.Processed,
		"generated": result.Generated,
		"errors":    len(result.Errors),
	}).Info("Trigger executed")

	return result, nil
}

// handleTrendingTopic turns free-text keywords into one topic each
func (m *Manager) handleTrendingTopic(ctx context.Context, cfg contracts.TriggerConfig) ([]contracts.Topic, []string) {
	var topics []contracts.Topic
	var errs []string
	day := m.now().Format("20060102")

	for _, keyword := range cfg.Keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			errs = append(errs, "empty trending keyword skipped")
			continue
		}
		topics = append(topics, contracts.Topic{
			ID:        fmt.Sprintf("trend-%s-%s", day, slug(keyword)),
			Title:     keyword,
			CreatedAt: m.now(),
		})
	}
	return topics, errs
}

// handleLimitUp fetches today's limit-up stocks and makes one topic
// per stock
func (m *Manager) handleLimitUp(ctx context.Context, cfg contracts.TriggerConfig) ([]contracts.Topic, []string) {
	stocks, err := m.market.LimitUpStocks(ctx)
	if err != nil {
		return nil, []string{fmt.Sprintf("limit-up lookup failed: %v", err)}
	}

	var topics []contracts.Topic
	day := m.now().Format("20060102")
	for _, stock := range stocks {
		topics = append(topics, contracts.Topic{
			ID:         fmt.Sprintf("limitup-%s-%s", day, stock.Code),
			Title:      fmt.Sprintf("%s 상한가", stock.Name),
			RawContent: fmt.Sprintf("%s(%s) 상한가 도달", stock.Name, stock.Code),
			Tags:       contracts.CategoryTags{Stock: []string{stock.Name}},
			CreatedAt:  m.now(),
		})
	}
	return topics, nil
}

// handleStockList turns an explicit ticker list into topics
func (m *Manager) handleStockList(ctx context.Context, cfg contracts.TriggerConfig) ([]contracts.Topic, []string) {
	var topics []contracts.Topic
	var errs []string
	day := m.now().Format("20060102")

	for _, code := range cfg.StockCodes {
		code = strings.TrimSpace(code)
		if len(code) != 6 {
			errs = append(errs, fmt.Sprintf("invalid stock code %q skipped", code))
			continue
		}
		topics = append(topics, contracts.Topic{
			ID:        fmt.Sprintf("stock-%s-%s", day, code),
			Title:     fmt.Sprintf("종목 분석 %s", code),
			Tags:      contracts.CategoryTags{Stock: []string{code}},
			CreatedAt: m.now(),
		})
	}
	return topics, errs
}

// handleNewsEvent normalizes one structured news payload into a topic
func (m *Manager) handleNewsEvent(ctx context.Context, cfg contracts.TriggerConfig) ([]contracts.Topic, []string) {
	title := strings.TrimSpace(cfg.Payload["title"])
	if title == "" {
		return nil, []string{"news event missing title"}
	}

	id := cfg.Payload["id"]
	if id == "" {
		id = slug(title)
	}

	return []contracts.Topic{{
		ID:         fmt.Sprintf("news-%s", id),
		Title:      title,
		RawContent: cfg.Payload["body"],
		CreatedAt:  m.now(),
	}}, nil
}

// handleEarningsReport makes one topic per reporting stock
func (m *Manager) handleEarningsReport(ctx context.Context, cfg contracts.TriggerConfig) ([]contracts.Topic, []string) {
	period := cfg.Payload["period"]
	if period == "" {
		now := m.now()
		period = fmt.Sprintf("%dQ%d", now.Year(), (int(now.Month())-1)/3+1)
	}

	var topics []contracts.Topic
	var errs []string
	for _, code := range cfg.StockCodes {
		code = strings.TrimSpace(code)
		if len(code) != 6 {
			errs = append(errs, fmt.Sprintf("invalid stock code %q skipped", code))
			continue
		}
		topics = append(topics, contracts.Topic{
			ID:        fmt.Sprintf("earnings-%s-%s", period, code),
			Title:     fmt.Sprintf("%s 실적 발표", code),
			Tags:      contracts.CategoryTags{Event: []string{"earnings"}, Stock: []string{code}},
			CreatedAt: m.now(),
		})
	}
	return topics, errs
}

// slug collapses free text into an identifier-safe fragment
func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		default:
			return r // keep hangul and other letters as-is
		}
	}, s)
}
