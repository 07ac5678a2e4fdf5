package chat

import (
	"encoding/json"
	"testing"

	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/media"
)

func sampleHistory() []conversation.Message {
	return []conversation.Message{
		{Role: "user", Content: conversation.TextContent("Hi")},
		{Role: "assistant", Content: conversation.StructuredContent(json.RawMessage(`{"findings": ["none"]}`))},
		{Role: "system", Content: conversation.TextContent("odd role")},
	}
}

func TestBuildInputReplaysHistory(t *testing.T) {
	t.Parallel()

	blocks := BuildInput(sampleHistory(), true, "What is a CT scan?", nil)
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(blocks))
	}
	wantRoles := []string{"user", "assistant", "user", "user"}
	for i, b := range blocks {
		if b.Role != wantRoles[i] {
			t.Fatalf("block %d: role %q", i, b.Role)
		}
	}
	if blocks[1].Parts[0].Text != `{"findings":["none"]}` {
		t.Fatalf("structured content not serialized: %q", blocks[1].Parts[0].Text)
	}
	if !blocks[0].Replayed || blocks[3].Replayed {
		t.Fatalf("unexpected replay markers")
	}
	if blocks[3].Parts[0].Text != "What is a CT scan?" {
		t.Fatalf("unexpected current turn: %+v", blocks[3])
	}
}

func TestBuildInputWithoutReplayHasOnlyCurrentTurn(t *testing.T) {
	t.Parallel()

	inlined := []media.InlinedMedium{
		{Locator: "a", DataURL: "data:image/png;base64,AA==", Detail: media.DetailAuto},
		{Locator: "b", DataURL: "data:image/jpeg;base64,BB==", Detail: media.DetailAuto},
	}
	blocks := BuildInput(sampleHistory(), false, "compare", inlined)
	if len(blocks) != 1 {
		t.Fatalf("expected only the current turn, got %d blocks", len(blocks))
	}
	parts := blocks[0].Parts
	if len(parts) != 3 || parts[0].Text != "compare" {
		t.Fatalf("unexpected parts: %+v", parts)
	}
	if parts[1].ImageURL != inlined[0].DataURL || parts[2].ImageURL != inlined[1].DataURL {
		t.Fatalf("media not in locator order: %+v", parts)
	}
}
