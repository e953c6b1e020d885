package enrich

import (
	"reflect"
	"strings"
	"testing"

	"github.com/lumera-labs/cascade-memory/internal/model"
)

func TestTitleFromFirstSentence(t *testing.T) {
	s := &model.Session{
		SessionID: "sess-1",
		Summary:   "Fixed the auth bug. Rolled back to v2 afterwards.",
	}
	card := GenerateMemoryCard(s)
	if card.Title != "Fixed the auth bug" {
		t.Errorf("title = %q", card.Title)
	}
}

func TestTitleTruncatesLongSummary(t *testing.T) {
	s := &model.Session{
		SessionID: "sess-1",
		Summary:   "Investigated the intermittent connection resets affecting the payment gateway under sustained load",
	}
	card := GenerateMemoryCard(s)
	if !strings.HasSuffix(card.Title, "...") {
		t.Errorf("expected ellipsis suffix, got %q", card.Title)
	}
	if len(card.Title) > 63 {
		t.Errorf("title too long (%d): %q", len(card.Title), card.Title)
	}
}

func TestTitleFallbackWithoutSummary(t *testing.T) {
	card := GenerateMemoryCard(&model.Session{SessionID: "sess-9", ToolName: "deploy"})
	if card.Title != "deploy: sess-9" {
		t.Errorf("title = %q", card.Title)
	}

	card = GenerateMemoryCard(&model.Session{SessionID: "sess-9"})
	if card.Title != "Session sess-9" {
		t.Errorf("title = %q", card.Title)
	}
}

func TestSummaryBullets(t *testing.T) {
	s := &model.Session{
		SessionID: "sess-1",
		ToolName:  "debugger",
		Success:   true,
		Summary:   "Fixed the JWT validation bug. Root cause was clock skew on the auth host.",
		Tags:      []string{"auth", "bug"},
	}
	card := GenerateMemoryCard(s)

	if card.SummaryBullets[0] != "Tool: debugger (succeeded)" {
		t.Errorf("first bullet = %q", card.SummaryBullets[0])
	}
	last := card.SummaryBullets[len(card.SummaryBullets)-1]
	if last != "Tags: auth, bug" {
		t.Errorf("last bullet = %q", last)
	}
	if len(card.SummaryBullets) > 7 {
		t.Errorf("too many bullets: %d", len(card.SummaryBullets))
	}
}

func TestFailedToolStatus(t *testing.T) {
	card := GenerateMemoryCard(&model.Session{SessionID: "s", ToolName: "sync", Success: false})
	if card.SummaryBullets[0] != "Tool: sync (failed)" {
		t.Errorf("first bullet = %q", card.SummaryBullets[0])
	}
}

func TestKeywordsFrequencyOrder(t *testing.T) {
	s := &model.Session{
		SessionID: "s",
		Summary:   "redis redis redis cache cache deploy and the with",
	}
	card := GenerateMemoryCard(s)
	if len(card.Keywords) < 3 {
		t.Fatalf("keywords = %v", card.Keywords)
	}
	if card.Keywords[0] != "redis" || card.Keywords[1] != "cache" {
		t.Errorf("expected frequency order, got %v", card.Keywords)
	}
	for _, k := range card.Keywords {
		if k == "and" || k == "the" || k == "with" {
			t.Errorf("stopword %q leaked into keywords", k)
		}
	}
}

func TestDecisionsAndTodos(t *testing.T) {
	s := &model.Session{
		SessionID: "s",
		Summary:   "We decided to migrate the database to Postgres next quarter. TODO: update the runbook diagrams",
	}
	card := GenerateMemoryCard(s)

	if len(card.Decisions) == 0 {
		t.Fatal("expected a decision")
	}
	if !strings.Contains(card.Decisions[0], "migrate the database") {
		t.Errorf("decision = %q", card.Decisions[0])
	}
	if len(card.Todos) == 0 {
		t.Fatal("expected a todo")
	}
	if !strings.Contains(card.Todos[0], "update the runbook") {
		t.Errorf("todo = %q", card.Todos[0])
	}
}

func TestEntitiesAndQuotes(t *testing.T) {
	s := &model.Session{
		SessionID: "s",
		Summary:   `Acme Corp migrated to Kubernetes. The lead said 'rollback was the safest option' during review.`,
	}
	card := GenerateMemoryCard(s)

	found := false
	for _, e := range card.Entities {
		if e == "Acme Corp" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Acme Corp in entities: %v", card.Entities)
	}

	if len(card.NotableQuotes) != 1 || card.NotableQuotes[0] != "rollback was the safest option" {
		t.Errorf("quotes = %v", card.NotableQuotes)
	}
}

func TestDeterministic(t *testing.T) {
	s := &model.Session{
		SessionID: "sess-1",
		ToolName:  "forecaster",
		Success:   true,
		Summary:   "Ran M4 baseline forecast with AutoETS and AutoTheta models. Results uploaded to BigQuery for review.",
		Tags:      []string{"baseline", "m4"},
	}
	a := GenerateMemoryCard(s)
	b := GenerateMemoryCard(s)
	if !reflect.DeepEqual(a, b) {
		t.Error("same session produced different cards")
	}
}
