// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/enterprise-rag/chatqna-cli/pkg/qna"
)

func newTestStore(t *testing.T, handler http.Handler) Store {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewClient(Config{BaseURL: server.URL, Token: qna.StaticToken("tok")})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return store
}

func TestSaveNewChat(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(Chat{ID: "chat-1", Name: "what is RAG?"})
	}))

	turns := []qna.ChatTurn{{ID: "t1", Question: "what is RAG?", Answer: "retrieval augmented generation"}}
	saved, err := store.Save(context.Background(), "", turns)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v1/chat_history/save" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotBody["id"] != nil {
		t.Errorf("new chat should send null id, got %v", gotBody["id"])
	}
	if saved.ID != "chat-1" || saved.Name != "what is RAG?" {
		t.Errorf("unexpected saved chat: %+v", saved)
	}
}

func TestSaveExistingChatSendsID(t *testing.T) {
	var gotBody map[string]any
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(Chat{ID: "chat-1", Name: "n"})
	}))

	if _, err := store.Save(context.Background(), "chat-1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody["id"] != "chat-1" {
		t.Errorf("expected id chat-1, got %v", gotBody["id"])
	}
}

func TestListChats(t *testing.T) {
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat_history/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", auth)
		}
		_ = json.NewEncoder(w).Encode([]Chat{{ID: "a", Name: "first"}, {ID: "b", Name: "second"}})
	}))

	chats, err := store.List(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chats) != 2 || chats[0].ID != "a" || chats[1].Name != "second" {
		t.Errorf("unexpected chats: %+v", chats)
	}
}

func TestGetChatByID(t *testing.T) {
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("history_id"); got != "chat-1" {
			t.Errorf("expected history_id query, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(ChatDetail{
			ID:    "chat-1",
			Name:  "n",
			Turns: []qna.ChatTurn{{ID: "t1", Question: "q", Answer: "a"}},
		})
	}))

	detail, err := store.Get(context.Background(), "chat-1")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(detail.Turns) != 1 || detail.Turns[0].Answer != "a" {
		t.Errorf("unexpected detail: %+v", detail)
	}
}

func TestGetRequiresID(t *testing.T) {
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	if _, err := store.Get(context.Background(), ""); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestRenameChat(t *testing.T) {
	var gotBody map[string]any
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat_history/change_name" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
	}))

	if err := store.Rename(context.Background(), "chat-1", "better name"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody["history_name"] != "better name" {
		t.Errorf("expected new name in body, got %v", gotBody)
	}
}

func TestDeleteChat(t *testing.T) {
	var gotMethod, gotID string
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotID = r.URL.Query().Get("history_id")
	}))

	if err := store.Delete(context.Background(), "chat-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotID != "chat-1" {
		t.Errorf("unexpected request: %s %s", gotMethod, gotID)
	}
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not yours", http.StatusForbidden)
	}))

	_, err := store.List(context.Background())

	if err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestExportAll(t *testing.T) {
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.URL.Query().Get("history_id"); id != "" {
			_ = json.NewEncoder(w).Encode(ChatDetail{
				ID:    id,
				Name:  "chat " + id,
				Turns: []qna.ChatTurn{{ID: "t", Question: "q-" + id}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode([]Chat{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	}))

	all, err := store.ExportAll(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 chats, got %d", len(all))
	}
	if all["b"].Turns[0].Question != "q-b" {
		t.Errorf("unexpected detail for b: %+v", all["b"])
	}
}
