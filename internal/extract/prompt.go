// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/recog-engine/internal/llm"
)

// moduleSchema describes the JSON object the model must answer with.
// Descriptions are German because the module catalogs are.
var moduleSchema = map[string]any{
	"title":           map[string]any{"type": "string", "description": "Titel des Moduls"},
	"credits":         map[string]any{"type": "number", "minimum": 0, "description": "ECTS-Punkte"},
	"workload":        map[string]any{"type": []string{"string", "null"}, "description": "Arbeitsaufwand"},
	"learning_goals":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Lernziele"},
	"assessment_type": map[string]any{"type": []string{"string", "null"}, "description": "Prüfungsform"},
	"level":           map[string]any{"type": []string{"string", "null"}, "description": "Bildungsniveau"},
	"program":         map[string]any{"type": []string{"string", "null"}, "description": "Studiengänge"},
	"institution":     map[string]any{"type": []string{"string", "null"}, "description": "Institution"},
}

// schemaJSON is moduleSchema rendered with sorted keys.
var schemaJSON = func() string {
	data, err := json.MarshalIndent(moduleSchema, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(data)
}()

var systemPromptTmpl = template.Must(template.New("system").Parse(`Du bekommst eine akademische Modulbeschreibung. Extrahiere alle relevanten Metadaten und gib sie als JSON-Objekt aus.

Die Antwort muss ausschließlich gültiges JSON sein, das mit dem folgenden Schema übereinstimmt:
{{.Schema}}
Nutze deutsche Feldbeschreibungen und vermeide zusätzlichen Fließtext.
Wenn du Informationen nicht hast, verwende leere Strings oder leere Listen.`))

var humanPromptTmpl = template.Must(template.New("human").Parse(`Folgendes Dokument ist gegeben:
{{.Document}}

Achte auf Titel, Credits, Lernziele, Bildungsniveau, Arbeitsaufwand und Prüfungsform.`))

// renderPrompt builds the system and human messages for one document.
// The document is inserted verbatim; braces in it need no escaping.
func renderPrompt(doc string) ([]llm.Message, error) {
	var sys, human strings.Builder
	if err := systemPromptTmpl.Execute(&sys, struct{ Schema string }{schemaJSON}); err != nil {
		return nil, fmt.Errorf("rendering system prompt: %w", err)
	}
	if err := humanPromptTmpl.Execute(&human, struct{ Document string }{doc}); err != nil {
		return nil, fmt.Errorf("rendering human prompt: %w", err)
	}
	return []llm.Message{llm.System(sys.String()), llm.Human(human.String())}, nil
}
