package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) progress(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	streak, err := h.ds.Streak(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := h.ds.Cards(ctx)
	if err != nil {
		return nil, err
	}
	weekly, err := h.ds.Weekly(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(map[string]any{
		"streak": streak,
		"cards":  cards,
		"weekly": weekly,
	})
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
