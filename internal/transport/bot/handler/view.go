package handler

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
)

const (
	reviewsPerPage      = 10
	reviewsFetchLimit   = 200
	reviewsPagePrefix   = "reviews_page"
	reviewsPageCallback = reviewsPagePrefix + ":%d"
	noopCallback        = "noop"

	startMessage = "<b>Card market pipeline</b>\n\n" +
		"/status &lt;stage&gt; last run of a stage\n" +
		"/run &lt;stage&gt; [category] queue a run\n" +
		"/reviews pending review queue\n\n" +
		"Stages: keys, ingest, match, aggregate"
	stageUsage       = "Usage: /%s &lt;keys|ingest|match|aggregate&gt;"
	noSummaryMessage = "No run of <b>%s</b> has been recorded yet."
	runQueuedMessage = "Run of <b>%s</b> queued, task <code>%s</code>."
	runBusyMessage   = "A run of <b>%s</b> is already queued."
	noReviewsMessage = "The review queue is empty."
	failedMessage    = "Request failed, see the service logs."
)

// parseStageArg reads the stage and the optional category following a command.
func parseStageArg(text string) (value.Stage, string, error) {
	args := strings.Fields(text)
	if len(args) < 2 {
		return "", "", errors.New("missing stage")
	}

	stage, err := value.ParseStage(args[1])
	if err != nil {
		return "", "", err
	}

	var category string
	if len(args) > 2 {
		category = args[2]
	}
	return stage, category, nil
}

func summaryText(s *entity.RunSummary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>%s</b> run <code>%s</code>\n", s.Stage, html.EscapeString(s.RunID))
	fmt.Fprintf(&sb, "started %s\n", s.StartedAt.UTC().Format(time.DateTime))
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, "took %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	}
	if s.Options.Category != "" {
		fmt.Fprintf(&sb, "category %s\n", html.EscapeString(s.Options.Category))
	}
	sb.WriteString("\n")

	counters := []struct {
		name  string
		value int
	}{
		{"processed", s.Processed},
		{"mapped", s.Mapped},
		{"queued", s.Queued},
		{"unmatched", s.Unmatched},
		{"inserted", s.Inserted},
		{"duplicates", s.Duplicates},
		{"excluded", s.Excluded},
		{"updated", s.Updated},
		{"applied", s.Applied},
		{"gated", s.Gated},
		{"skipped", s.Skipped},
		{"errors", s.Errors},
	}
	for _, c := range counters {
		if c.value == 0 && c.name != "processed" && c.name != "errors" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %d\n", c.name, c.value)
	}

	codes := make([]string, 0, len(s.ErrorsByCode))
	for code := range s.ErrorsByCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(&sb, "  %s: %d\n", html.EscapeString(code), s.ErrorsByCode[code])
	}

	return sb.String()
}

func totalPages(count int) int {
	if count == 0 {
		return 1
	}
	return (count + reviewsPerPage - 1) / reviewsPerPage
}

// reviewsPage clamps page into range and returns the entries shown on it.
func reviewsPage(entries []entity.ReviewEntry, page int) ([]entity.ReviewEntry, int) {
	pages := totalPages(len(entries))
	page = max(1, min(page, pages))

	start := (page - 1) * reviewsPerPage
	end := min(start+reviewsPerPage, len(entries))
	if start >= len(entries) {
		return nil, page
	}
	return entries[start:end], page
}

func reviewsText(entries []entity.ReviewEntry, page, pages int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>Pending reviews</b> (%d/%d)\n\n", page, pages)
	for _, e := range entries {
		sb.WriteString(reviewLine(e))
		sb.WriteString("\n")
	}
	return sb.String()
}

func reviewLine(e entity.ReviewEntry) string {
	switch e.Kind {
	case value.ReviewKindVolatilityGate:
		return fmt.Sprintf("#%d gate item %s %s → %s (%s%%)",
			e.ID, optionalID(e.MarketItemID), optionalNumber(e.PreviousPrice),
			optionalNumber(e.ProposedPrice), optionalNumber(e.ChangePercent))
	case value.ReviewKindAmbiguousMatch:
		return fmt.Sprintf("#%d match card %s, %d candidates",
			e.ID, optionalID(e.CatalogCardID), len(e.Candidates))
	default:
		return fmt.Sprintf("#%d %s %s", e.ID, e.Kind, html.EscapeString(e.Reason))
	}
}

func optionalID(v *int64) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *v)
}

func optionalNumber(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
