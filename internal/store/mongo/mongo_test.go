package mongostore

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/microscanai/microscan/internal/conversation"
)

func TestMessageDocsKeepStructuredContent(t *testing.T) {
	t.Parallel()

	msgs := []conversation.Message{
		{Role: "user", Content: conversation.TextContent(`{"not":"json object"}`), FileURLs: []string{"https://cdn.example.com/a.jpg"}},
		{Role: "assistant", Content: conversation.StructuredContent(json.RawMessage(`{"summary":"ok"}`))},
	}
	doc := conversationDoc{ID: "c1", UserID: "u1", Messages: toMessageDocs(msgs)}
	if doc.Messages[0].Structured || !doc.Messages[1].Structured {
		t.Fatalf("unexpected structured flags: %+v", doc.Messages)
	}

	got := doc.conversation()
	if got.Messages[0].Content.IsStructured() {
		t.Fatalf("text content that looks like json must stay text")
	}
	if got.Messages[0].Content.Text() != `{"not":"json object"}` || len(got.Messages[0].FileURLs) != 1 {
		t.Fatalf("unexpected user message: %+v", got.Messages[0])
	}
	if !got.Messages[1].Content.IsStructured() || got.Messages[1].Content.Text() != `{"summary":"ok"}` {
		t.Fatalf("unexpected assistant message: %+v", got.Messages[1])
	}
}

func TestConversationDocDecodesLegacyDocuments(t *testing.T) {
	t.Parallel()

	raw, err := bson.Marshal(bson.M{
		"_id":              "c1",
		"userId":           "u1",
		"openaiResponseId": "resp_prev",
		"messages": bson.A{
			bson.M{"role": "user", "content": "what does this show?"},
			bson.M{"role": "assistant", "content": bson.M{"summary": "ok"}},
			bson.M{"role": "assistant", "content": bson.A{"a", "b"}},
			bson.M{"role": "user"},
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc conversationDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := doc.conversation()
	if got.Revision != 0 || got.ContinuationToken != "resp_prev" || len(got.Messages) != 4 {
		t.Fatalf("unexpected conversation: %+v", got)
	}
	if got.Messages[0].Content.IsStructured() || got.Messages[0].Content.Text() != "what does this show?" {
		t.Fatalf("unexpected text message: %+v", got.Messages[0])
	}
	if !got.Messages[1].Content.IsStructured() || got.Messages[1].Content.Text() != `{"summary":"ok"}` {
		t.Fatalf("embedded document content: %q", got.Messages[1].Content.Text())
	}
	if !got.Messages[2].Content.IsStructured() || got.Messages[2].Content.Text() != `["a","b"]` {
		t.Fatalf("array content: %q", got.Messages[2].Content.Text())
	}
	if got.Messages[3].Content.Text() != "" {
		t.Fatalf("missing content should decode as empty text: %+v", got.Messages[3])
	}
}
