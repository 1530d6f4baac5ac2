package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"shop-recommender/config"
	"shop-recommender/metrics"
	"shop-recommender/models"
	"shop-recommender/prompts"
	"shop-recommender/utils"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Fallback causes reported in RankResult.Cause
const (
	CauseNoCandidates   = "no_candidates"
	CauseInvalidProfile = "invalid_profile"
	CauseDisabled       = "llm_disabled"
	CauseBreakerOpen    = "breaker_open"
	CauseTimeout        = "timeout"
	CauseEmptyResponse  = "empty_response"
	CauseUnparsable     = "unparsable_response"
	CauseLLMError       = "llm_error"
)

// Score bounds for model-assigned scores
const (
	MinPickScore     = 1
	MaxPickScore     = 10
	DefaultPickScore = 5
)

// DefaultPickReason is used when the model names a product without a reason
const DefaultPickReason = "이 상품을 추천드립니다."

// FallbackReasons are cycled through when the model cannot be used
var FallbackReasons = []string{
	"고객님의 구매 패턴을 분석한 결과 이 상품을 추천드립니다.",
	"비슷한 취향의 고객들이 많이 선택한 인기 상품입니다.",
	"고객님이 관심있어 하신 카테고리의 우수한 상품입니다.",
	"최근 리뷰 평점이 높고 많은 고객들이 만족한 상품입니다.",
	"고객님의 평소 가격대에 맞는 추천 상품입니다.",
}

// RankOption adjusts a single GenerateRecommendations call
type RankOption func(*rankOptions)

type rankOptions struct {
	mediaBaseURL string
}

// WithMediaBaseURL resolves relative product images against base
func WithMediaBaseURL(base string) RankOption {
	return func(o *rankOptions) {
		if base != "" {
			o.mediaBaseURL = base
		}
	}
}

// RankerService asks the language model to pick and explain recommendations,
// falling back to a deterministic list when the model cannot be used
type RankerService struct {
	llm          Completer
	cfg          config.RankerConfig
	mediaBaseURL string
	log          zerolog.Logger
	metrics      *metrics.Recorder
}

// NewRankerService creates a new ranker. mediaBaseURL may be empty, in which
// case callers pass WithMediaBaseURL per request.
func NewRankerService(llm Completer, cfg config.RankerConfig, mediaBaseURL string, log zerolog.Logger, rec *metrics.Recorder) *RankerService {
	return &RankerService{
		llm:          llm,
		cfg:          cfg,
		mediaBaseURL: mediaBaseURL,
		log:          log.With().Str("component", "ranker").Logger(),
		metrics:      rec,
	}
}

// GenerateRecommendations returns at most count recommendations drawn from
// candidates. It never fails: model problems produce a fallback result.
func (s *RankerService) GenerateRecommendations(ctx context.Context, profile *models.UserProfile, candidates []models.Product, count int, opts ...RankOption) models.RankResult {
	options := rankOptions{mediaBaseURL: s.mediaBaseURL}
	for _, opt := range opts {
		opt(&options)
	}
	if count <= 0 {
		count = s.cfg.DefaultCount
	}

	if len(candidates) == 0 {
		return s.fallback(nil, count, CauseNoCandidates, options)
	}
	if profile == nil {
		return s.fallback(candidates, count, CauseInvalidProfile, options)
	}

	top := utils.Take(candidates, count*s.cfg.Headroom)
	prompt := prompts.BuildRecommendationPrompt(profile, top, count, s.cfg.DescriptionLen)

	text, err := s.llm.Complete(ctx, prompts.RecommendationSystemPrompt, prompt)
	if err != nil {
		return s.fallback(candidates, count, fallbackCause(err), options)
	}

	picks := ParseRecommendations(text)
	recs := utils.Take(s.reconcile(picks, top, options), count)
	if len(recs) == 0 {
		s.log.Warn().Int("picks", len(picks)).Str("response", prompts.Truncate(text, 200)).Msg("no usable picks in model response")
		return s.fallback(candidates, count, CauseUnparsable, options)
	}

	s.metrics.ObserveRecommendation(string(models.SourceLLM))
	s.log.Debug().Uint("user_id", profile.UserID).Int("picks", len(picks)).Int("recommendations", len(recs)).Msg("model ranking used")
	return models.RankResult{Recommendations: recs, Source: models.SourceLLM}
}

// reconcile maps 1-based picks onto the candidates the model was shown,
// dropping out-of-range indices and repeated products
func (s *RankerService) reconcile(picks []ParsedPick, shown []models.Product, options rankOptions) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(picks))
	used := make(map[uint]struct{}, len(picks))
	for _, pick := range picks {
		idx := pick.Index - 1
		if idx < 0 || idx >= len(shown) {
			continue
		}
		product := shown[idx]
		if _, dup := used[product.ID]; dup {
			continue
		}
		used[product.ID] = struct{}{}

		reason := pick.Reason
		if reason == "" {
			reason = DefaultPickReason
		}
		recs = append(recs, models.Recommendation{
			Product: product.ToSnapshot(ResolveImageURL(options.mediaBaseURL, product.Image)),
			Reason:  reason,
			Score:   pick.Score,
		})
	}
	return recs
}

// fallback takes the leading candidates in order with a fixed score
func (s *RankerService) fallback(candidates []models.Product, count int, cause string, options rankOptions) models.RankResult {
	picked := utils.Take(utils.DedupeByID(candidates), count)
	recs := make([]models.Recommendation, 0, len(picked))
	for i, product := range picked {
		recs = append(recs, models.Recommendation{
			Product: product.ToSnapshot(ResolveImageURL(options.mediaBaseURL, product.Image)),
			Reason:  FallbackReasons[i%len(FallbackReasons)],
			Score:   s.cfg.FallbackScore,
		})
	}

	s.metrics.ObserveRecommendation(string(models.SourceFallback))
	s.metrics.ObserveFallback(cause)
	s.log.Warn().Str("cause", cause).Int("recommendations", len(recs)).Msg("using fallback ranking")

	return models.RankResult{Recommendations: recs, Source: models.SourceFallback, Cause: cause}
}

func fallbackCause(err error) string {
	switch {
	case errors.Is(err, ErrLLMDisabled):
		return CauseDisabled
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return CauseBreakerOpen
	case errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	case errors.Is(err, ErrEmptyCompletion):
		return CauseEmptyResponse
	default:
		return CauseLLMError
	}
}

// =============================================================================
// Response Parsing
// =============================================================================

// ParsedPick is one recommendation block read from the model's text
type ParsedPick struct {
	Index  int
	Name   string
	Reason string
	Score  int
}

// ParseRecommendations reads "[n: name]" headers followed by reason and
// score lines. Malformed blocks are skipped, never fatal.
func ParseRecommendations(text string) []ParsedPick {
	var picks []ParsedPick
	var current *ParsedPick

	flush := func() {
		if current != nil {
			picks = append(picks, *current)
		}
		current = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := normalizeLine(raw)
		if line == "" {
			continue
		}

		switch {
		case isPickHeader(line):
			flush()
			current = parsePickHeader(line)
		case strings.HasPrefix(line, prompts.ReasonPrefix):
			if current != nil {
				current.Reason = strings.TrimSpace(strings.TrimPrefix(line, prompts.ReasonPrefix))
			}
		case strings.HasPrefix(line, prompts.ScorePrefix):
			if current != nil {
				current.Score = parseScore(strings.TrimPrefix(line, prompts.ScorePrefix))
			}
		}
	}
	flush()
	return picks
}

// normalizeLine drops markdown emphasis and list bullets the model may add
func normalizeLine(line string) string {
	line = strings.TrimSpace(line)
	line = strings.ReplaceAll(line, "**", "")
	line = strings.TrimPrefix(line, "- ")
	return strings.TrimSpace(line)
}

func isPickHeader(line string) bool {
	return strings.HasPrefix(line, "[") && strings.Contains(line, ":") && strings.Contains(line, "]")
}

// parsePickHeader returns nil when the bracket does not hold "n: name"
func parsePickHeader(line string) *ParsedPick {
	content := line[1:strings.Index(line, "]")]
	num, name, ok := strings.Cut(content, ":")
	if !ok {
		return nil
	}
	index, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return nil
	}
	return &ParsedPick{
		Index: index,
		Name:  strings.TrimSpace(name),
		Score: DefaultPickScore,
	}
}

// parseScore reads the leading digits of the first field, e.g. "8", "8점", "8/10"
func parseScore(text string) int {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return DefaultPickScore
	}
	digits := fields[0]
	if end := strings.IndexFunc(digits, func(r rune) bool { return !unicode.IsDigit(r) }); end >= 0 {
		digits = digits[:end]
	}
	score, err := strconv.Atoi(digits)
	if err != nil {
		return DefaultPickScore
	}
	return min(max(score, MinPickScore), MaxPickScore)
}

// ResolveImageURL joins a relative image path onto base. Absolute URLs and
// empty paths are returned unchanged, as is everything when base is empty.
func ResolveImageURL(base, image string) string {
	if image == "" || base == "" {
		return image
	}
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(image, "/")
}
