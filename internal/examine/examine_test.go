// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package examine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/recog-engine/internal/llm"
	"github.com/pdiddy/recog-engine/internal/metrics"
)

type fakeInvoker struct {
	content string
	err     error
	got     []llm.Message
}

func (f *fakeInvoker) Invoke(_ context.Context, messages []llm.Message) (llm.Response, error) {
	f.got = messages
	return llm.Response{Content: f.content}, f.err
}

func TestRubric(t *testing.T) {
	rubric, err := New(&fakeInvoker{}).Rubric()
	require.NoError(t, err)

	for _, want := range []string{
		"Lernziele", "ECTS-Punkte/Credits", "Arbeitsaufwand", "Bildungsniveau", "Prüfungsform",
		"Vollständige Anerkennung, wenn mindestens 80 Prozent der Lernziele übereinstimmen",
		"Teilweise Anerkennung, wenn mindestens 50 Prozent der Lernziele übereinstimmen",
		"Keine Anerkennung, wenn nur wenige oder keine Lernziele übereinstimmen",
		"etwa 10 Prozent",
		"gemma-3-27b-it",
		"[KISSKI](https://kisski.gwdg.de)",
	} {
		assert.Contains(t, rubric, want)
	}
}

func TestRubricAttribution(t *testing.T) {
	rubric, err := New(&fakeInvoker{}, WithAttribution("llama-3.3-70b", "Rechenzentrum X")).Rubric()
	require.NoError(t, err)
	assert.Contains(t, rubric, "namens llama-3.3-70b generiert")
	assert.Contains(t, rubric, "von Rechenzentrum X bereitgestellt")
	assert.NotContains(t, rubric, "gemma")
}

func TestExamineOrdersExternalFirst(t *testing.T) {
	inv := &fakeInvoker{content: "## Ergebnis\n\nEs wird eine **Teilweise Anerkennung** empfohlen."}
	rec := metrics.New()
	j := New(inv, WithMetrics(rec))

	html, err := j.Examine(context.Background(), `{"title":"Intern"}`, `{"title":"Extern"}`)
	require.NoError(t, err)

	require.Len(t, inv.got, 2)
	assert.Equal(t, llm.RoleSystem, inv.got[0].Role)
	human := inv.got[1].Content
	assert.Equal(t, llm.RoleHuman, inv.got[1].Role)
	ext := strings.Index(human, "## Externes Modul")
	extBody := strings.Index(human, `{"title":"Extern"}`)
	intern := strings.Index(human, "## Internes Modul:")
	internBody := strings.Index(human, `{"title":"Intern"}`)
	assert.True(t, ext >= 0 && ext < extBody && extBody < intern && intern < internBody, human)

	assert.Contains(t, html, "<h2>Ergebnis</h2>")
	assert.Contains(t, html, "<strong>Teilweise Anerkennung</strong>")
}

func TestExamineFailureIsReturned(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("chat unavailable")}
	_, err := New(inv).Examine(context.Background(), "{}", "{}")
	require.Error(t, err)
	assert.ErrorContains(t, err, "chat unavailable")
}

func TestRenderSanitizes(t *testing.T) {
	j := New(&fakeInvoker{})
	html, err := j.Render("Text <script>alert(1)</script>\n\n[Link](javascript:alert(1)) und [KISSKI](https://kisski.gwdg.de)")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "javascript:")
	assert.Contains(t, html, `href="https://kisski.gwdg.de"`)
}

func TestRenderTable(t *testing.T) {
	html, err := New(&fakeInvoker{}).Render("| Kriterium | Bewertung |\n|---|---|\n| Credits | erfüllt |\n")
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>Credits</td>")
}
