// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package examine asks a chat model whether an external module can be
// recognized for an internal one and renders the model's markdown answer
// as sanitized HTML. The verdict thresholds live in the rubric text; this
// package does not parse the verdict.
package examine

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/internal/llm"
	"github.com/pdiddy/recog-engine/internal/logging"
	"github.com/pdiddy/recog-engine/internal/metrics"
)

// Verdicts the rubric allows.
const (
	VerdictFull    = "Vollständige Anerkennung"
	VerdictPartial = "Teilweise Anerkennung"
	VerdictNone    = "Keine Anerkennung"
)

var rubricTmpl = template.Must(template.New("rubric").Parse(`Ich bin als KI-Assistent*in im Prüfungsamt einer Hochschule tätig. Meine Hauptaufgaben umfassen die Beantwortung von Fragen zu Modulen und die Überprüfung, ob ein externes Modul auf ein internes Modul anerkannt werden kann.

Folgende Kriterien werden bei der Prüfung der Anerkennbarkeit berücksichtigt:
- Lernziele
- ECTS-Punkte/Credits
- Arbeitsaufwand
- Bildungsniveau
- Prüfungsform

Bei der Bewertung werden diese Kriterien gleichwertig berücksichtigt.
Eine Ausnahme ist der Arbeitsaufwand. Dieser sollte nicht in die Bewertung einfließen, wenn die Informationen dazu nicht gut vergleichbar sind.
Beide Module sollten möglichst demselben Bildungsniveau (Bachelor oder Master) entsprechen.
Wenn das externe Modul mehr Credits aufweist als das interne Modul oder die Diskrepanz etwa 10 Prozent beträgt, ist dies kein Grund für eine Nichtanerkennung. Wenn das interne Modul jedoch signifikant mehr Credits hat als das externe Modul, kann höchstens eine teilweise Anerkennung erfolgen.
Das Kriterium der Prüfungsform sollte nicht berücksichtigt werden, wenn diese Informationen nicht für beide Module vorliegen und nicht vergleichbar sind.

Es gibt drei mögliche Ergebnisse für die Prüfung:
- {{.Full}}, wenn mindestens 80 Prozent der Lernziele übereinstimmen
- {{.Partial}}, wenn mindestens 50 Prozent der Lernziele übereinstimmen
- {{.None}}, wenn nur wenige oder keine Lernziele übereinstimmen

Die Abschnitte und Inhalte meiner Antworten strukturiere ich mit Markdown. Kriterien werden einzeln bewertet. Lernziele müssen nur bei Unterschieden aufgelistet werden.
Am Schluss der Prüfung folgt eine prägnante, hervorgehobene Zusammenfassung des Prüfungsergebnisses mit dem Ergebnis: "Es wird auf Basis des Vergleichs der Module eine *{{.Full}}*, *{{.Partial}}* oder *{{.None}}* empfohlen."
Gib an dieser Stelle zusätzlich den Hinweis, dass das Ergebnis auf Basis eines generativen Open-Source-Sprachmodells namens {{.Model}} generiert wurde. Das Open-Source-Modell wird von {{.Provider}} bereitgestellt.`))

// Judge compares two module records through an llm.Invoker.
type Judge struct {
	llm      llm.Invoker
	model    string
	provider string
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	logger   *zap.Logger
	metrics  *metrics.Recorder
}

// Option configures a Judge.
type Option func(*Judge)

// WithAttribution names the model and its provider in the closing note
// the rubric asks for.
func WithAttribution(model, provider string) Option {
	return func(j *Judge) {
		if model != "" {
			j.model = model
		}
		if provider != "" {
			j.provider = provider
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(j *Judge) { j.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(j *Judge) { j.metrics = m }
}

// New creates a Judge. The invoker should carry the judgment model and
// output budget.
func New(invoker llm.Invoker, opts ...Option) *Judge {
	j := &Judge{
		llm:      invoker,
		model:    "gemma-3-27b-it",
		provider: "[KISSKI](https://kisski.gwdg.de)",
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   bluemonday.UGCPolicy(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Rubric returns the system instruction sent with every examination.
func (j *Judge) Rubric() (string, error) {
	var b strings.Builder
	err := rubricTmpl.Execute(&b, map[string]string{
		"Full":     VerdictFull,
		"Partial":  VerdictPartial,
		"None":     VerdictNone,
		"Model":    j.model,
		"Provider": j.provider,
	})
	if err != nil {
		return "", fmt.Errorf("rendering rubric: %w", err)
	}
	return b.String(), nil
}

// HumanMessage lays out the two modules, external first.
func HumanMessage(internalJSON, externalJSON string) string {
	return "## Externes Modul\n\n" + externalJSON + "\n\n\n## Internes Modul:\n\n" + internalJSON + "\n"
}

// Examine judges whether the external module can be recognized for the
// internal one and returns the model's answer as HTML. Every failure is
// returned; there is no fallback verdict.
func (j *Judge) Examine(ctx context.Context, internalJSON, externalJSON string) (string, error) {
	html, err := j.examine(ctx, internalJSON, externalJSON)
	j.metrics.Examination(err)
	if err != nil {
		j.logger.Error("examination failed", zap.Error(err))
		return "", err
	}
	j.logger.Info("generated examination result", zap.Int("html_bytes", len(html)))
	return html, nil
}

func (j *Judge) examine(ctx context.Context, internalJSON, externalJSON string) (string, error) {
	rubric, err := j.Rubric()
	if err != nil {
		return "", err
	}
	resp, err := j.llm.Invoke(ctx, []llm.Message{
		llm.System(rubric),
		llm.Human(HumanMessage(internalJSON, externalJSON)),
	})
	if err != nil {
		return "", fmt.Errorf("invoking judgment model: %w", err)
	}
	return j.Render(resp.Content)
}

// Render converts markdown to sanitized HTML.
func (j *Judge) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := j.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return j.policy.Sanitize(buf.String()), nil
}
