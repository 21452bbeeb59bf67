package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/run-bigpig/tribunal/internal/meeting"
	"github.com/run-bigpig/tribunal/internal/models"
)

// printer 增量打印会话快照
type printer struct {
	mu       sync.Mutex
	out      io.Writer
	printed  map[string]int  // sessionID -> 已打印条目数
	verdicts map[string]bool // sessionID -> 已打印裁决
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:      out,
		printed:  make(map[string]int),
		verdicts: make(map[string]bool),
	}
}

// printf 与回调输出串行
func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// update 作为会话的更新回调
func (p *printer) update(snap meeting.Snapshot) {
	if snap.SessionID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	participants := make(map[string]models.Participant, len(snap.Roster))
	for _, part := range snap.Roster {
		participants[part.ID] = part
	}

	for _, e := range snap.Transcript[min(p.printed[snap.SessionID], len(snap.Transcript)):] {
		part := participants[e.ParticipantID]
		fmt.Fprintf(p.out, "[%s] R%d %s %s (%s): %s\n", snap.Subject, e.Round, part.Glyph, part.Name, e.Sentiment, e.Text)
		if len(e.KeyPoints) > 0 {
			fmt.Fprintf(p.out, "    key points: %s\n", strings.Join(e.KeyPoints, "; "))
		}
	}
	p.printed[snap.SessionID] = len(snap.Transcript)

	if snap.Verdict != nil && !p.verdicts[snap.SessionID] {
		p.verdicts[snap.SessionID] = true
		v := snap.Verdict
		fmt.Fprintf(p.out, "[%s] VERDICT %s (confidence %.0f%%)\n", snap.Subject, v.Decision, v.Confidence*100)
		if v.Reasoning != "" {
			fmt.Fprintf(p.out, "    reasoning: %s\n", v.Reasoning)
		}
		if v.Recommendation != "" {
			fmt.Fprintf(p.out, "    recommendation: %s\n", v.Recommendation)
		}
	}

	if snap.State == meeting.StateConcluded {
		log.Info("%s concluded: %d events", snap.Subject, snap.EventCount)
	}
}
