package devbackend

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/validation"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/wire"
)

var testSchema = validation.Schema{
	{ID: "title", Label: "Project title", Type: validation.FieldText},
	{ID: "sponsor", Label: "Sponsor", Type: validation.FieldText},
	{ID: "secret", Type: validation.FieldText, Hidden: true},
}

func finalTurn(content string, metadata events.Metadata, at time.Time) syncstore.AgentTurn {
	return syncstore.AgentTurn{
		ID:      "typing-1",
		Channel: events.ChannelTyping,
		Status:  syncstore.TurnFinalized,
		Events: []events.NormalizedInputEvent{
			{ID: "e1", TurnID: "typing-1", Stage: events.StageDraft, Content: "draft", CreatedAt: at},
			{ID: "e2", TurnID: "typing-1", Stage: events.StageFinal, Content: content, CreatedAt: at, Metadata: metadata},
		},
	}
}

func TestExtract(t *testing.T) {
	at := time.Unix(1700000000, 0)
	testCases := []struct {
		name     string
		turns    []syncstore.AgentTurn
		schema   validation.Schema
		expected []FieldValue
	}{
		{
			name:     "field id metadata",
			turns:    []syncstore.AgentTurn{finalTurn("North Star", events.Metadata{"fieldId": "title"}, at)},
			schema:   testSchema,
			expected: []FieldValue{{ID: "title", Value: "North Star"}},
		},
		{
			name:     "labelled lines",
			turns:    []syncstore.AgentTurn{finalTurn("Project title: North Star\nsponsor: Dana\nsecret: x\nnoise", nil, at)},
			schema:   testSchema,
			expected: []FieldValue{{ID: "title", Value: "North Star"}, {ID: "sponsor", Value: "Dana"}},
		},
		{
			name:     "later line wins",
			turns:    []syncstore.AgentTurn{finalTurn("title: A\ntitle: B", nil, at)},
			expected: []FieldValue{{ID: "title", Value: "B"}},
		},
		{
			name: "newest final utterance",
			turns: []syncstore.AgentTurn{
				finalTurn("title: Old", nil, at),
				finalTurn("title: New", nil, at.Add(time.Second)),
			},
			expected: []FieldValue{{ID: "title", Value: "New"}},
		},
		{
			name:  "no final input",
			turns: []syncstore.AgentTurn{{ID: "voice-1", Events: []events.NormalizedInputEvent{{Stage: events.StageDraft, Content: "title: x"}}}},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := Extract(testCase.turns, testCase.schema)
			if !reflect.DeepEqual(got, testCase.expected) {
				t.Fatalf("expected %+v, got %+v", testCase.expected, got)
			}
		})
	}
}

func TestSyncStreamsChunksThenDone(t *testing.T) {
	server := httptest.NewServer(New(WithSchema(testSchema), WithIDGenerator(func() string { return "1" })).Handler())
	defer server.Close()

	body, _ := json.Marshal(wire.Request{
		Policy: syncstore.PolicyExclusive,
		Turns:  []syncstore.AgentTurn{finalTurn("title: North Star\nsponsor: Dana", nil, time.Now())},
	})
	resp, err := http.Post(server.URL+"/sync", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != wire.ContentType {
		t.Fatalf("expected %q, got %q", wire.ContentType, got)
	}

	decoder := wire.NewDecoder(resp.Body, 0)
	var chunks []wire.Chunk
	for {
		chunk, err := decoder.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) != 3 || !chunks[2].Sentinel {
		t.Fatalf("expected two patches and the sentinel, got %+v", chunks)
	}
	for i, chunk := range chunks[:2] {
		if chunk.TurnID != "srv-1" || chunk.Seq == nil || *chunk.Seq != i {
			t.Fatalf("unexpected chunk %d: %+v", i, chunk)
		}
	}
	if chunks[0].Patch.Fields["title"] != "North Star" || chunks[1].Patch.Fields["sponsor"] != "Dana" {
		t.Fatalf("unexpected patches %+v, %+v", chunks[0].Patch, chunks[1].Patch)
	}
}

func TestSyncRejectsInvalidBody(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader("{"))
	New().Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestHealthAndSchema(t *testing.T) {
	handler := New().Handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/schema", nil))
	var schemas map[string]json.RawMessage
	if err := json.Unmarshal(recorder.Body.Bytes(), &schemas); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := schemas["request"]; !ok {
		t.Fatalf("expected request schema, got %s", recorder.Body.String())
	}
}
