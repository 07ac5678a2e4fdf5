package chat

import (
	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/media"
)

// BuildInput assembles the provider input. When replay is true every history
// message becomes a block with its role normalized and content in text form.
// The current turn is always the last block: the user text followed by the
// inlined media in locator order.
func BuildInput(history []conversation.Message, replay bool, text string, inlined []media.InlinedMedium) []Block {
	blocks := make([]Block, 0, len(history)+1)
	if replay {
		for _, msg := range history {
			blocks = append(blocks, Block{
				Role:     conversation.NormalizeRole(msg.Role),
				Parts:    []Part{{Text: msg.Content.Text()}},
				Replayed: true,
			})
		}
	}
	current := Block{Role: conversation.RoleUser, Parts: make([]Part, 0, len(inlined)+1)}
	current.Parts = append(current.Parts, Part{Text: text})
	for _, m := range inlined {
		current.Parts = append(current.Parts, Part{ImageURL: m.DataURL, Detail: m.Detail})
	}
	return append(blocks, current)
}
