package api

import (
	"context"

	"gatelog/internal/model"
)

// Notice is the toast a client shows after an action.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
}

const variantDestructive = "destructive"

// Connectivity tells whether the remote store is reachable.
type Connectivity interface {
	Online(ctx context.Context) bool
}

type alwaysOnline struct{}

func (alwaysOnline) Online(context.Context) bool { return true }

func (h *Handler) offline(ctx context.Context) string {
	if h.conn.Online(ctx) {
		return ""
	}
	return " (offline)"
}

func recordedNotice(e model.Entry, how string) Notice {
	return Notice{Title: e.Type.Label() + " Recorded", Description: e.PersonName + " has been recorded" + how}
}

func errorNotice(msg string) Notice {
	return Notice{Title: "Error", Description: msg, Variant: variantDestructive}
}
