package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	draftsync "github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/config"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
)

func TestFormatValue(t *testing.T) {
	testCases := []struct {
		name     string
		value    any
		expected string
	}{
		{name: "text", value: "North Star", expected: "North Star"},
		{name: "string list", value: []string{"a", "b"}, expected: "• a\n• b"},
		{name: "decoded list", value: []any{"a", 2}, expected: "• a\n• 2"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := formatValue(testCase.value); got != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, got)
			}
		})
	}
}

func newTestModel(t *testing.T) (model, *draftsync.Session) {
	t.Helper()
	cfg = config.Default()
	session := draftsync.New("http://127.0.0.1:0/sync", draftsync.WithSchema(cfg.Schema), draftsync.WithoutAutoSync())
	t.Cleanup(func() { session.Close(context.Background()) })
	return newModel(session, make(chan tea.Msg)), session
}

func TestTypingUpdatesDraftTurn(t *testing.T) {
	m, session := newTestModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	m = updated.(model)

	turnID, ok := session.Gateway().ActiveTurnID("typing")
	if !ok || turnID == "" {
		t.Fatalf("expected keystrokes to open a typing turn")
	}
	if turns := session.Store().Turns(); len(turns) != 1 || turns[0].Events[0].Content != "hi" {
		t.Fatalf("expected a draft event with the typed text, got %+v", turns)
	}
}

func TestCtrlPTogglesPolicy(t *testing.T) {
	m, session := newTestModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	if got := session.Store().Policy(); got != syncstore.PolicyMixed {
		t.Fatalf("expected mixed policy, got %q", got)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	if got := session.Store().Policy(); got != syncstore.PolicyExclusive {
		t.Fatalf("expected exclusive policy, got %q", got)
	}
}

func TestViewListsVisibleFields(t *testing.T) {
	m, session := newTestModel(t)
	session.Store().ApplyPatch(syncstore.DocumentPatch{Fields: map[string]any{"title": "North Star"}}, syncstore.ApplyOptions{})

	view := m.View()
	if !strings.Contains(view, "North Star") || !strings.Contains(view, "Sponsor") {
		t.Fatalf("expected fields in the view, got:\n%s", view)
	}
	if strings.Contains(view, "template_version") {
		t.Fatalf("expected hidden fields to stay hidden")
	}
}

func TestSchemaCommand(t *testing.T) {
	cfg = config.Default()
	var out bytes.Buffer
	schemaCmd.SetOut(&out)
	defer schemaCmd.SetOut(nil)

	schemaPart = "chunk"
	if err := schemaCmd.RunE(schemaCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "turnId") {
		t.Fatalf("expected the chunk schema, got %s", out.String())
	}

	out.Reset()
	schemaPart = "fields"
	if err := schemaCmd.RunE(schemaCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "id: title") {
		t.Fatalf("expected the field schema, got %s", out.String())
	}

	schemaPart = "bogus"
	if err := schemaCmd.RunE(schemaCmd, nil); err == nil {
		t.Fatalf("expected an error for an unknown part")
	}
	schemaPart = "request"
}
