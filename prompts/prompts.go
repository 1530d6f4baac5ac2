package prompts

import (
	"fmt"
	"math"
	"strings"

	"shop-recommender/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RecommendationSystemPrompt is the system instruction for the ranking model
const RecommendationSystemPrompt = `당신은 전문적인 상품 추천 시스템입니다. 사용자의 구매 패턴과 관심사를 분석하여 개인화된 상품을 추천하고, 각 추천에 대한 구체적이고 설득력 있는 이유를 제공해주세요.`

// Response block markers the model is asked to emit and the parser reads back
const (
	ReasonPrefix = "추천이유:"
	ScorePrefix  = "추천점수:"
)

// recommendationInstructions is appended after the candidate list.
// %d placeholders are the requested number of picks.
const recommendationInstructions = `위 사용자 프로필을 바탕으로, 후보 상품 중에서 %d개를 선택하여 추천해주세요.
각 추천에 대해 다음 형식으로 응답해주세요:

[상품번호: 상품명]
추천이유: (사용자의 구매 패턴, 관심사, 선호도를 근거로 한 구체적인 추천 이유를 2-3문장으로 작성)
추천점수: (1-10점)

예시:
[3: 아이폰 15 Pro]
추천이유: 전자제품을 60%% 선호하시고 애플 브랜드를 자주 구매하시는 패턴을 보면, 최신 아이폰이 적합합니다. 평균 구매가격대인 50만원대에 맞고, 최근 스마트워치에 관심을 보이신 것으로 보아 애플 생태계 확장에 관심이 있으실 것 같습니다.
추천점수: 9

%d개 추천 상품을 위 형식으로 작성해주세요.`

// summaryItems is how many categories, brands and recent products the profile summary lists
const summaryItems = 3

var wonPrinter = message.NewPrinter(language.Korean)

// FormatWon renders an amount as a grouped, whole-won string, e.g. 1,745원
func FormatWon(amount float64) string {
	return wonPrinter.Sprintf("%d원", int64(math.Round(amount)))
}

// Truncate shortens s to at most n runes, appending "..." when cut
func Truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// BuildProfileSummary renders the profile block of the ranking prompt
func BuildProfileSummary(profile *models.UserProfile) string {
	categories := make([]string, 0, summaryItems)
	for _, c := range profile.TopCategories(summaryItems) {
		categories = append(categories, fmt.Sprintf("%s(%.1f%%)", c.Key, c.Value))
	}

	brands := make([]string, 0, summaryItems)
	for _, b := range profile.TopBrands(summaryItems) {
		brands = append(brands, b.Key)
	}

	recent := make([]string, 0, summaryItems)
	for i, item := range profile.RecentInterests {
		if i == summaryItems {
			break
		}
		recent = append(recent, item.ProductName)
	}

	username := profile.Username
	if username == "" {
		username = "Unknown"
	}

	var b strings.Builder
	b.WriteString("사용자 프로필:\n")
	fmt.Fprintf(&b, "- 이름: %s\n", username)
	fmt.Fprintf(&b, "- 선호 카테고리: %s\n", strings.Join(categories, ", "))
	fmt.Fprintf(&b, "- 선호 브랜드: %s\n", strings.Join(brands, ", "))
	fmt.Fprintf(&b, "- 평균 구매 가격대: %s\n", FormatWon(profile.PriceRange.Avg))
	fmt.Fprintf(&b, "- 구매 주기: %s\n", profile.PurchaseFrequency.Frequency)
	fmt.Fprintf(&b, "- 총 구매 횟수: %d회\n", profile.TotalPurchases)
	fmt.Fprintf(&b, "- 최근 관심 상품: %s\n", strings.Join(recent, ", "))
	return b.String()
}

// BuildCandidateList renders the numbered candidate block, numbering from 1
func BuildCandidateList(candidates []models.Product, descriptionLen int) string {
	var b strings.Builder
	for i, p := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Name)
		fmt.Fprintf(&b, "- 카테고리: %s\n", p.Category)
		fmt.Fprintf(&b, "- 브랜드: %s\n", p.Brand)
		fmt.Fprintf(&b, "- 가격: %s\n", FormatWon(p.PriceValue()))
		fmt.Fprintf(&b, "- 평점: %s/5.0 (%d개 리뷰)\n", p.Rating.StringFixed(1), p.NumReviews)
		fmt.Fprintf(&b, "- 설명: %s\n\n", Truncate(p.Description, descriptionLen))
	}
	return b.String()
}

// BuildRecommendationPrompt assembles the user prompt asking for count picks
func BuildRecommendationPrompt(profile *models.UserProfile, candidates []models.Product, count, descriptionLen int) string {
	var b strings.Builder
	b.WriteString(BuildProfileSummary(profile))
	b.WriteString("\n추천 후보 상품들:\n")
	b.WriteString(BuildCandidateList(candidates, descriptionLen))
	fmt.Fprintf(&b, recommendationInstructions, count, count)
	return b.String()
}
