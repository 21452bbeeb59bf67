package meeting

import (
	"github.com/run-bigpig/tribunal/internal/agent"
	"github.com/run-bigpig/tribunal/internal/models"
	"github.com/run-bigpig/tribunal/internal/signal"
	"github.com/run-bigpig/tribunal/internal/textclean"
	"github.com/run-bigpig/tribunal/internal/verdict"
)

// SignalExtractor 从发言中提取要点与情绪
type SignalExtractor interface {
	KeyPoints(text string) []string
	Sentiment(stance models.Stance) models.Sentiment
}

// VerdictParser 从裁决文本中提取结构化裁决
type VerdictParser interface {
	Parse(text string) models.Verdict
}

var (
	_ SignalExtractor = (*signal.Heuristic)(nil)
	_ VerdictParser   = (*verdict.Parser)(nil)
)

// AssembleTranscript 由事件日志推导发言记录
//
// 只保留发言者能在名单中解析到的 message 事件。轮次按轮转参与者的发言序号计算：
// 第 i 次轮转发言属于第 ceil(i/轮转人数) 轮；裁决方发言不推进轮次，沿用最近一轮
// （在任何轮转发言之前为 0）。同一日志总是得到同一结果。
func AssembleTranscript(events []models.SessionEvent, roster *agent.Roster, signals SignalExtractor) []models.TranscriptEntry {
	entries := make([]models.TranscriptEntry, 0)
	if roster == nil {
		return entries
	}
	if signals == nil {
		signals = signal.Default()
	}

	rotationSize := len(roster.Rotation())
	turns, round := 0, 0
	for i, ev := range events {
		if ev.Kind != models.KindMessage {
			continue
		}
		p, ok := roster.Resolve(ev.Speaker)
		if !ok {
			continue
		}
		if p.InRotation() && rotationSize > 0 {
			turns++
			round = (turns + rotationSize - 1) / rotationSize
		}

		text := textclean.Clean(ev.Content)
		entries = append(entries, models.TranscriptEntry{
			Seq:           len(entries) + 1,
			EventIndex:    i,
			ParticipantID: p.ID,
			Round:         round,
			Text:          text,
			KeyPoints:     signals.KeyPoints(text),
			Sentiment:     signals.Sentiment(p.Stance),
		})
	}
	return entries
}

// LatestVerdict 取最后一条 verdict 事件推导裁决，没有时返回 false
//
// 帧内携带的合法置信度优先于文本中的标记。
func LatestVerdict(events []models.SessionEvent, parser VerdictParser) (models.Verdict, bool) {
	if parser == nil {
		parser = verdict.NewParser()
	}
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Kind != models.KindVerdict {
			continue
		}
		v := parser.Parse(ev.Content)
		if ev.Confidence != nil && verdict.ValidConfidence(*ev.Confidence) {
			v.Confidence = *ev.Confidence
		}
		return v, true
	}
	return models.Verdict{}, false
}
