package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/deployhub/internal/apperror"
	"github.com/sakif/deployhub/internal/auth"
)

const testSealKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestUserDirectory_UpsertTwiceKeepsOneUser(t *testing.T) {
	repo := newFakeUserRepo()
	dir := NewUserDirectory(repo, nil, discardLogger())
	ctx := context.Background()
	identity := json.RawMessage(`{"id": 583231, "login": "octocat"}`)

	first, err := dir.Upsert(ctx, identity, "gho_first")
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	second, err := dir.Upsert(ctx, identity, "gho_second")
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("ids differ: %d vs %d", first.ID, second.ID)
	}
	if len(repo.users) != 1 {
		t.Errorf("got %d users, want 1", len(repo.users))
	}
	token, err := dir.AccessToken(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if token != "gho_second" {
		t.Errorf("token = %q, want the refreshed one", token)
	}
}

func TestUserDirectory_StringIDAccepted(t *testing.T) {
	dir := NewUserDirectory(newFakeUserRepo(), nil, discardLogger())

	u, err := dir.Upsert(context.Background(), json.RawMessage(`{"id": "7"}`), "gho_x")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if u.ExternalID != 7 {
		t.Errorf("external id = %d", u.ExternalID)
	}
}

func TestUserDirectory_BadIdentity(t *testing.T) {
	dir := NewUserDirectory(newFakeUserRepo(), nil, discardLogger())

	for _, payload := range []string{`[]`, `"octocat"`, `{}`, `{"id": 0}`, `{"id": 1.5}`} {
		_, err := dir.Upsert(context.Background(), json.RawMessage(payload), "gho_x")
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", payload, err)
		}
	}
}

func TestUserDirectory_SealsStoredToken(t *testing.T) {
	repo := newFakeUserRepo()
	sealer, err := auth.NewSecretboxSealer(testSealKey)
	if err != nil {
		t.Fatal(err)
	}
	dir := NewUserDirectory(repo, sealer, discardLogger())
	ctx := context.Background()

	u, err := dir.Upsert(ctx, json.RawMessage(`{"id": 1}`), "gho_secret")
	if err != nil {
		t.Fatal(err)
	}

	stored := *repo.users[u.ID].AccessToken
	if strings.Contains(stored, "gho_secret") {
		t.Errorf("token stored in the clear: %q", stored)
	}
	plain, err := dir.AccessToken(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if plain != "gho_secret" {
		t.Errorf("AccessToken = %q", plain)
	}
}

func TestUserDirectory_RepositoryFailure(t *testing.T) {
	repo := newFakeUserRepo()
	repo.upsertErr = errors.New("database is locked")
	dir := NewUserDirectory(repo, nil, discardLogger())

	_, err := dir.Upsert(context.Background(), json.RawMessage(`{"id": 1}`), "gho_x")
	if err == nil || !strings.Contains(err.Error(), "database is locked") {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

func TestUserDirectory_GetByIDNotFound(t *testing.T) {
	dir := NewUserDirectory(newFakeUserRepo(), nil, discardLogger())

	_, err := dir.GetByID(context.Background(), 404)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
