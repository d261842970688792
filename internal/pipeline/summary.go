package pipeline

import (
	"fmt"
	"io"
	"strconv"

	"musicosa/internal/composite"
	"musicosa/internal/fulfillment"
	"musicosa/internal/render"
	"musicosa/internal/store"
	"musicosa/internal/submissions"
	"musicosa/internal/textutil"
	"musicosa/internal/videoclips"
)

func printBanner(w io.Writer, metadata map[string]string) {
	title := "[MUSICOSA]"
	if edition := metadata[store.MetadataEdition]; edition != "" {
		title = fmt.Sprintf("[MUSICOSA %sº EDITION]", edition)
	}
	fmt.Fprintln(w, title)
	labels := map[string]string{
		store.MetadataTopic:     "Topic",
		store.MetadataOrganiser: "Organiser",
		store.MetadataStartDate: "Start date",
	}
	for _, field := range store.MetadataFields {
		label, ok := labels[field]
		if !ok {
			continue
		}
		if value := metadata[field]; value != "" {
			fmt.Fprintf(w, "  %s: %s\n", label, value)
		}
	}
}

func printStageHeader(w io.Writer, stage int) {
	fmt.Fprintf(w, "\n[STAGE %d | %s]\n\n", stage, stageTitles[stage])
}

func printSummaryHeader(w io.Writer, stage int) {
	fmt.Fprintf(w, "\n[STAGE %d SUMMARY | %s]\n", stage, stageTitles[stage])
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", label)
	for _, item := range items {
		fmt.Fprintf(w, "    - %s\n", item)
	}
}

func submissionsSummary(w io.Writer, in submissionsInput, out submissions.Output) {
	printSummaryHeader(w, StageSubmissions)
	fmt.Fprintf(w, "  # Award forms: %d\n", len(in.Forms))
	fmt.Fprintf(w, "  # Catalog rows: %d\n", len(in.Catalog))
	fmt.Fprintf(w, "  # Members: %d\n", len(out.Members))
	fmt.Fprintf(w, "  # Entries: %d\n", len(out.Entries))
	fmt.Fprintf(w, "  # Scores: %d\n", len(out.Scores))
	if out.Valid() {
		fmt.Fprintln(w, "  Validation OK ✔")
	} else {
		fmt.Fprintf(w, "  (!) %d validation errors\n", len(out.Errors))
	}
}

func rankingSummary(w io.Writer, s *State, out rankingOutcome) {
	printSummaryHeader(w, StageRanking)
	fmt.Fprintf(w, "  Tie-break: %s", out.Policy)
	if out.Policy == "random" {
		fmt.Fprintf(w, " (seed %d)", out.Seed)
	}
	fmt.Fprintf(w, "\n  Sequence scope: %s\n", out.Scope)
	printList(w, "Warnings", out.Warnings)

	names := make(map[string]string, len(s.Members))
	for _, m := range s.Members {
		names[m.ID] = m.Name
	}
	rows := make([][]string, 0, len(out.Members))
	for _, ms := range out.Members {
		received := "-"
		if ms.AvgReceived != nil {
			received = formatScore(*ms.AvgReceived)
		}
		rows = append(rows, []string{names[ms.MemberID], formatScore(ms.AvgGiven), received})
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, textutil.Indent(textutil.RenderTable([]string{"Member", "Avg given", "Avg received"}, rows, 1, 2), "  "))
	}

	entries := make(map[string]store.Entry, len(s.Entries))
	for _, e := range s.Entries {
		entries[e.ID] = e
	}
	rows = rows[:0]
	for _, st := range out.Entries {
		e := entries[st.EntryID]
		rows = append(rows, []string{e.Award, strconv.Itoa(st.RankingPlace), strconv.Itoa(st.RankingSequence), formatScore(st.AvgScore), entryLabel(e)})
	}
	fmt.Fprintln(w, textutil.Indent(textutil.RenderTable([]string{"Award", "Place", "Seq", "Avg", "Entry"}, rows, 1, 2, 3), "  "))
	fmt.Fprintf(w, "  # Ranked entries: %d\n", len(out.Entries))
}

func fulfillmentSummary(w io.Writer, out fulfillment.Output) {
	printSummaryHeader(w, StageFulfillment)
	if out.Empty() {
		fmt.Fprintln(w, "  Nothing to fulfill ✔")
		return
	}
	fmt.Fprintf(w, "  # Settings: %d\n", len(out.Settings))
	fmt.Fprintf(w, "  # New avatars: %d\n", len(out.Avatars))
	fmt.Fprintf(w, "  # Avatar pairings: %d\n", len(out.Members))
	fmt.Fprintf(w, "  # Templates: %d\n", len(out.Templates))
	fmt.Fprintf(w, "  # Video options: %d\n", len(out.VideoOptions))
}

func renderSummary(w io.Writer, presentations bool, res render.Result) {
	printSummaryHeader(w, StageRender)
	rows := [][]string{tallyRow("Templates", res.Entries)}
	if presentations {
		rows = append(rows, tallyRow("Presentations", res.Presentations))
	}
	fmt.Fprintln(w, textutil.Indent(textutil.RenderTable([]string{"Kind", "Generated", "Skipped", "Failed"}, rows, 1, 2, 3), "  "))
	var failed []string
	for _, f := range append(append([]render.Failure(nil), res.Entries.Failed...), res.Presentations.Failed...) {
		failed = append(failed, fmt.Sprintf("%s (%s): %s", f.Title, f.EntryID, f.Reason))
	}
	printList(w, "Failed", failed)
}

func tallyRow(kind string, t render.Tally) []string {
	return []string{kind, strconv.Itoa(len(t.Generated)), strconv.Itoa(len(t.Skipped)), strconv.Itoa(len(t.Failed))}
}

func clipsSummary(w io.Writer, res videoclips.Result) {
	printSummaryHeader(w, StageVideoclips)
	fmt.Fprintf(w, "  # Downloaded: %d\n", len(res.Downloaded))
	fmt.Fprintf(w, "  # Skipped: %d\n", len(res.Skipped))
	fmt.Fprintf(w, "  # Failed: %d\n", len(res.Failed))
	var failed []string
	for _, f := range res.Failed {
		failed = append(failed, fmt.Sprintf("%s (%s): %s", f.Title, f.EntryID, f.Reason))
	}
	printList(w, "Failed", failed)
}

func compositeSummary(w io.Writer, res composite.Result) {
	printSummaryHeader(w, StageComposite)
	fmt.Fprintf(w, "  # Video bits generated: %d\n", len(res.Generated))
	fmt.Fprintf(w, "  # Video bits skipped: %d\n", len(res.Skipped))
	var missing []string
	for _, m := range res.Missing {
		missing = append(missing, fmt.Sprintf("%s (%s): %s", m.Title, m.EntryID, m.What))
	}
	printList(w, "Missing", missing)
	var failed []string
	for _, f := range res.Failed {
		failed = append(failed, fmt.Sprintf("%s: %s", f.Subject, f.Reason))
	}
	printList(w, "Failed", failed)
	printList(w, "Warnings", res.Warnings)
	printList(w, "Final videos", res.FinalVideos)
	var skipped []string
	for _, f := range res.SkippedAwards {
		skipped = append(skipped, fmt.Sprintf("%s: %s", f.Subject, f.Reason))
	}
	printList(w, "Final videos not stitched", skipped)
}

func entryLabel(e store.Entry) string {
	if e.Nominee != "" {
		return fmt.Sprintf("%s [%s]", e.Title, e.Nominee)
	}
	return e.Title
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
