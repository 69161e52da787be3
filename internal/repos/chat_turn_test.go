package repos

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/yungbote/studypilot-backend/internal/repos/testutil"
	"github.com/yungbote/studypilot-backend/internal/types"
)

func TestChatTurnRepoRecent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	users := NewUserRepo(db, testutil.Logger(t))
	repo := NewChatTurnRepo(db, testutil.Logger(t))
	ctx := context.Background()

	user, err := users.GetOrCreateByIdentifier(ctx, tx, "turns@example.com")
	if err != nil {
		t.Fatalf("GetOrCreateByIdentifier: %v", err)
	}

	for i := 1; i <= 3; i++ {
		if _, err := repo.Append(ctx, tx, user.ID, "Algebra I", types.RoleUser, fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("Append user turn %d: %v", i, err)
		}
		if _, err := repo.Append(ctx, tx, user.ID, "Algebra I", types.RoleAssistant, fmt.Sprintf("answer %d", i)); err != nil {
			t.Fatalf("Append assistant turn %d: %v", i, err)
		}
	}
	// Another course must not bleed into the window.
	if _, err := repo.Append(ctx, tx, user.ID, "Chemistry", types.RoleUser, "what is a mole"); err != nil {
		t.Fatalf("Append other-course turn: %v", err)
	}

	turns, err := repo.Recent(ctx, tx, user.ID, "Algebra I", 4)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("Recent: expected 4 turns, got %d", len(turns))
	}
	wantContents := []string{"question 2", "answer 2", "question 3", "answer 3"}
	for i, want := range wantContents {
		if turns[i].Content != want {
			t.Fatalf("Recent[%d]: got %q, want %q", i, turns[i].Content, want)
		}
	}

	all, err := repo.Recent(ctx, tx, user.ID, "Algebra I", 100)
	if err != nil {
		t.Fatalf("Recent (all): %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("Recent (all): expected 6 turns, got %d", len(all))
	}
	if all[0].Content != "question 1" || all[5].Content != "answer 3" {
		t.Fatalf("Recent (all): not chronological: first=%q last=%q", all[0].Content, all[5].Content)
	}
}

func TestChatTurnRepoRecentUserQuestions(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	users := NewUserRepo(db, testutil.Logger(t))
	repo := NewChatTurnRepo(db, testutil.Logger(t))
	ctx := context.Background()

	user, err := users.GetOrCreateByIdentifier(ctx, tx, "questions@example.com")
	if err != nil {
		t.Fatalf("GetOrCreateByIdentifier: %v", err)
	}

	for i := 1; i <= 3; i++ {
		if _, err := repo.Append(ctx, tx, user.ID, "Calculus", types.RoleUser, fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("Append user turn %d: %v", i, err)
		}
		if _, err := repo.Append(ctx, tx, user.ID, "Calculus", types.RoleAssistant, fmt.Sprintf("answer %d", i)); err != nil {
			t.Fatalf("Append assistant turn %d: %v", i, err)
		}
	}

	questions, err := repo.RecentUserQuestions(ctx, tx, user.ID, "Calculus", 2)
	if err != nil {
		t.Fatalf("RecentUserQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("RecentUserQuestions: expected 2, got %d", len(questions))
	}
	// Newest first, assistant turns excluded.
	if questions[0] != "question 3" || questions[1] != "question 2" {
		t.Fatalf("RecentUserQuestions: got %v", questions)
	}
}

func TestChatTurnRepoAppendCapsContent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	users := NewUserRepo(db, testutil.Logger(t))
	repo := NewChatTurnRepo(db, testutil.Logger(t))
	ctx := context.Background()

	user, err := users.GetOrCreateByIdentifier(ctx, tx, "caps@example.com")
	if err != nil {
		t.Fatalf("GetOrCreateByIdentifier: %v", err)
	}

	oversized := strings.Repeat("x", types.MaxTurnContentLen+50)
	turn, err := repo.Append(ctx, tx, user.ID, "Algebra I", types.RoleUser, oversized)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(turn.Content) != types.MaxTurnContentLen {
		t.Fatalf("Append: content not capped: len=%d", len(turn.Content))
	}

	// Three-byte runes put the cap mid-rune; the stored row must still be
	// valid UTF-8.
	multiByte := strings.Repeat("∫", types.MaxTurnContentLen)
	turn, err = repo.Append(ctx, tx, user.ID, "Algebra I", types.RoleUser, multiByte)
	if err != nil {
		t.Fatalf("Append (multi-byte): %v", err)
	}
	if len(turn.Content) > types.MaxTurnContentLen {
		t.Fatalf("Append (multi-byte): content not capped: len=%d", len(turn.Content))
	}
	if !utf8.ValidString(turn.Content) {
		t.Fatalf("Append (multi-byte): content is not valid UTF-8 after capping")
	}
}
