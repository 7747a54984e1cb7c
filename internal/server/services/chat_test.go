package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/m00n5h075/serenya-sub003/internal/common"
	"github.com/m00n5h075/serenya-sub003/internal/logging"
	"github.com/m00n5h075/serenya-sub003/internal/server/models"
)

// newChatEnv builds a chat service sharing the job-service fakes, with
// processing running inline instead of in a goroutine.
func newChatEnv(t *testing.T) (*testEnv, *ChatService) {
	t.Helper()

	env := newTestEnv(t)
	env.llm.answer = &models.ChatAnswer{
		Answer:    "Your hemoglobin is slightly low, which is often benign.",
		FollowUps: []string{"Should I repeat the test?"},
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	rm := &fakeRepoManager{jobRepo: env.repo, auditRepo: env.audit}

	cs := NewChatService(nil, rm, env.store, env.cipher, env.llm, logger, []byte("test-salt"))
	cs.now = func() time.Time { return env.now }
	cs.spawn = func(f func()) { f() }
	return env, cs
}

// completedJob submits and processes one document job for u1.
func completedJob(t *testing.T, env *testEnv) string {
	t.Helper()
	ctx := context.Background()

	resp, err := env.svc.SubmitDocument(ctx, "u1", DocumentUpload{FileName: "a.pdf", Content: []byte("x")})
	if err != nil {
		t.Fatalf("SubmitDocument error: %v", err)
	}
	if err := env.svc.ProcessJob(ctx, resp.JobID); err != nil {
		t.Fatalf("ProcessJob error: %v", err)
	}
	return resp.JobID
}

func TestChatSubmit_Validation(t *testing.T) {
	env, cs := newChatEnv(t)
	ctx := context.Background()
	sourceID := completedJob(t, env)

	_, err := cs.Submit(ctx, "u1", sourceID, "   ")
	wantCode(t, err, CodeValidationError)

	_, err = cs.Submit(ctx, "u1", sourceID, strings.Repeat("a", 1001))
	wantCode(t, err, CodeValidationError)
}

func TestChatSubmit_SourceChecks(t *testing.T) {
	env, cs := newChatEnv(t)
	ctx := context.Background()

	// unknown source job
	_, err := cs.Submit(ctx, "u1", "no-such-job", "question")
	wantCode(t, err, CodeNotFound)

	// source not yet completed
	resp, err := env.svc.SubmitDocument(ctx, "u1", DocumentUpload{FileName: "a.pdf", Content: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}
	_, err = cs.Submit(ctx, "u1", resp.JobID, "question")
	wantCode(t, err, CodeResultNotReady)

	// someone else's job reads as not-found
	sourceID := completedJob(t, env)
	_, err = cs.Submit(ctx, "u2", sourceID, "question")
	wantCode(t, err, CodeNotFound)
}

func TestChatFlow_SingleConsumption(t *testing.T) {
	env, cs := newChatEnv(t)
	ctx := context.Background()
	sourceID := completedJob(t, env)

	ack, err := cs.Submit(ctx, "u1", sourceID, "What does this mean?")
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if ack.Status != "accepted" || ack.JobID == "" {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	// the model saw the question and the decrypted prior interpretation
	if env.llm.lastQuestion != "What does this mean?" {
		t.Errorf("question = %q", env.llm.lastQuestion)
	}
	if env.llm.lastPrior != "hemoglobin slightly below range" {
		t.Errorf("prior context = %q", env.llm.lastPrior)
	}

	st, err := cs.Poll(ctx, "u1", ack.JobID)
	if err != nil {
		t.Fatalf("Poll error: %v", err)
	}
	if st.Status != "complete" || st.Response == nil {
		t.Fatalf("unexpected poll result: %+v", st)
	}
	if st.Response.Answer != env.llm.answer.Answer {
		t.Errorf("answer = %q", st.Response.Answer)
	}
	if len(st.Response.Disclaimers) != len(chatDisclaimers) {
		t.Errorf("disclaimers = %v", st.Response.Disclaimers)
	}

	// the artifact is gone after the first read
	st2, err := cs.Poll(ctx, "u1", ack.JobID)
	if err != nil {
		t.Fatalf("second Poll error: %v", err)
	}
	if st2.Status != "processing" || st2.Response != nil {
		t.Fatalf("second poll must read as processing again: %+v", st2)
	}
}

func TestChatFlow_FailureArtifact(t *testing.T) {
	env, cs := newChatEnv(t)
	ctx := context.Background()
	sourceID := completedJob(t, env)

	env.llm.answerErr = fmt.Errorf("%w: model unavailable", common.ErrorDependency)

	ack, err := cs.Submit(ctx, "u1", sourceID, "What does this mean?")
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	_, err = cs.Poll(ctx, "u1", ack.JobID)
	wantCode(t, err, CodeProcessingError)

	// failure artifacts are consumed too
	st, err := cs.Poll(ctx, "u1", ack.JobID)
	if err != nil {
		t.Fatalf("second Poll error: %v", err)
	}
	if st.Status != "processing" {
		t.Fatalf("second poll = %+v", st)
	}
}

func TestChatPoll_IDChecks(t *testing.T) {
	env, cs := newChatEnv(t)
	ctx := context.Background()
	sourceID := completedJob(t, env)

	ack, err := cs.Submit(ctx, "u1", sourceID, "What does this mean?")
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	_, err = cs.Poll(ctx, "u1", "not-a-chat-id")
	wantCode(t, err, CodeInvalidJobIDFormat)

	// wrong owner reads as not-found
	_, err = cs.Poll(ctx, "u2", ack.JobID)
	wantCode(t, err, CodeNotFound)

	// expired ids read as not-found even though the artifact still exists
	env.now = env.now.Add(25 * time.Hour)
	_, err = cs.Poll(ctx, "u1", ack.JobID)
	wantCode(t, err, CodeNotFound)
}
