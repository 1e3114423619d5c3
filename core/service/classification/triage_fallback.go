package classification

import (
	"fmt"
	"regexp"
	"strings"

	"assistant_server/core/domain"
)

// Keyword scoring for the deterministic fallback. Strong keywords are verbs
// and nouns that rarely appear outside scheduling talk; weak ones show up in
// other contexts too, so they count half.
var (
	strongKeywords = []string{
		"meeting", "call", "lunch", "coffee", "sync", "appointment",
		"schedule a", "set up a time", "get together", "catch up",
	}
	weakKeywords = []string{
		"calendar", "availability", "available", "free", "slot", "time works",
	}

	timeIndicatorPattern = regexp.MustCompile(
		`(?i)\b(\d{1,2}(:\d{2})?\s*(am|pm)|tomorrow|today|tonight|next week|` +
			`monday|tuesday|wednesday|thursday|friday|saturday|sunday|` +
			`morning|afternoon|evening|noon)\b`)
)

const (
	strongKeywordPoints = 1
	weakKeywordDivisor  = 2

	// fallbackThresholdScore is the minimum keyword score for a positive
	// verdict; confidence must also clear fallbackThresholdConfidence. With
	// 25 points per score unit, two keywords alone stay below the confidence
	// bar and need a time indicator to tip over.
	fallbackThresholdScore      = 2
	fallbackThresholdConfidence = 60
	pointsPerScoreUnit          = 25

	timeIndicatorBonus    = 15
	fallbackConfidenceCap = 75
)

// ClassifyByKeywords is the deterministic fallback classifier. It scores the
// subject and body against scheduling vocabulary and never calls out anywhere,
// so it cannot fail. Results are always marked UsedFallback and capped at
// confidence 75: a keyword match is never as trustworthy as a model verdict.
func ClassifyByKeywords(msg *domain.InboundMessage) *domain.ClassificationResult {
	text := strings.ToLower(msg.Subject + " " + msg.Body)

	score := 0
	var matched []string
	for _, kw := range strongKeywords {
		if strings.Contains(text, kw) {
			score += strongKeywordPoints
			matched = append(matched, kw)
		}
	}
	weak := 0
	for _, kw := range weakKeywords {
		if strings.Contains(text, kw) {
			weak++
			matched = append(matched, kw)
		}
	}
	score += weak / weakKeywordDivisor

	confidence := score * pointsPerScoreUnit
	mentions := timeIndicatorPattern.FindAllString(msg.Subject+" "+msg.Body, -1)
	if len(mentions) > 0 {
		confidence += timeIndicatorBonus
	}
	if confidence > fallbackConfidenceCap {
		confidence = fallbackConfidenceCap
	}

	isScheduling := score >= fallbackThresholdScore && confidence >= fallbackThresholdConfidence

	result := &domain.ClassificationResult{
		IsSchedulingRequest: isScheduling,
		Confidence:          domain.ClampConfidence(confidence),
		Reasoning:           fallbackReasoning(score, matched),
		UsedFallback:        true,
	}
	if isScheduling {
		result.ExtractedTimeMentions = mentions
		mt := domain.MeetingUnknown
		result.MeetingType = &mt
	}
	result.Normalize()
	return result
}

func fallbackReasoning(score int, matched []string) string {
	if len(matched) == 0 {
		return "keyword fallback: no scheduling vocabulary found"
	}
	return fmt.Sprintf("keyword fallback: score %d from %s", score, strings.Join(matched, ", "))
}
