package proposer

import (
	"fmt"
	"strings"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
	"github.com/arlebowski/Tiny-Time-sub002/internal/schedule"
)

// BuildPrompt summarizes the detected patterns for the model.
func BuildPrompt(req schedule.ProposalRequest) string {
	a := req.Analysis
	var b strings.Builder

	fmt.Fprintf(&b, "Current time: %s\n", req.Now.Format("15:04"))
	fmt.Fprintf(&b, "Baby age: %.1f months\n", req.AgeMonths)
	fmt.Fprintf(&b, "Typical time between feeds: %.1f hours (never closer than %.1f hours)\n",
		a.FeedIntervalHours, a.MinFeedGapHours)
	if a.OverallMedianSessionOz > 0 {
		fmt.Fprintf(&b, "Typical feed volume: %.1f oz\n", a.OverallMedianSessionOz)
	}

	writePatterns(&b, "Feed patterns", a.FeedPatterns)
	writePatterns(&b, "Sleep patterns", a.SleepPatterns)

	b.WriteString("\nPropose the feeds and naps for the rest of today as a JSON array.\n")
	return b.String()
}

func writePatterns(b *strings.Builder, title string, patterns []models.Pattern) {
	fmt.Fprintf(b, "\n%s:\n", title)
	if len(patterns) == 0 {
		b.WriteString("- none detected\n")
		return
	}
	for _, p := range patterns {
		fmt.Fprintf(b, "- around %02d:%02d (usually %s-%s), seen %d times",
			p.Hour, p.Minute, clockText(p.WindowStartMinutes), clockText(p.WindowEndMinutes), p.OccurrenceCount)
		switch {
		case p.Type == models.PatternFeed && p.MedianOz > 0:
			fmt.Fprintf(b, ", about %.1f oz", p.MedianOz)
		case p.Type == models.PatternSleep && p.AvgDurationHours > 0:
			fmt.Fprintf(b, ", lasting about %.1f h", p.AvgDurationHours)
		}
		b.WriteString("\n")
	}
}

func clockText(minuteOfDay int) string {
	return fmt.Sprintf("%02d:%02d", minuteOfDay/60, minuteOfDay%60)
}
