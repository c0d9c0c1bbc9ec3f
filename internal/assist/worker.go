package assist

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/careconnect-ai/platform/internal/observability/metrics"
	"github.com/careconnect-ai/platform/pkg/logging"
)

// ReplyNotifier delivers the assistant's answer back to a live session.
type ReplyNotifier interface {
	NotifyReply(sessionID string, msg TranscriptMessage)
}

// Worker drains the chat queue: each job is answered with the session's
// transcript as context, the exchange is persisted, and the reply pushed to
// the session.
type Worker struct {
	queue      Queue
	assistant  *Assistant
	knowledge  KnowledgeQuerier
	transcript *TranscriptStore
	notifier   ReplyNotifier
	logger     *logging.Logger
	metrics    *metrics.AssistMetrics
	count      int
}

// KnowledgeQuerier answers a prompt from indexed health records.
type KnowledgeQuerier interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// WorkerConfig wires a Worker's collaborators. Knowledge is optional; when
// set, prompts about the patient's own health data are answered from the
// knowledge base instead of open conversation.
type WorkerConfig struct {
	Queue      Queue
	Assistant  *Assistant
	Knowledge  KnowledgeQuerier
	Transcript *TranscriptStore
	Notifier   ReplyNotifier
	Logger     *logging.Logger
	Metrics    *metrics.AssistMetrics
	Count      int
}

func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Queue == nil {
		panic("assist: queue required")
	}
	if cfg.Assistant == nil {
		panic("assist: assistant required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Count <= 0 {
		cfg.Count = 2
	}
	return &Worker{
		queue:      cfg.Queue,
		assistant:  cfg.Assistant,
		knowledge:  cfg.Knowledge,
		transcript: cfg.Transcript,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		count:      cfg.Count,
	}
}

// Run polls the queue until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		messages, err := w.queue.Receive(ctx, 5, 10)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("assist: queue receive failed", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}
		for _, msg := range messages {
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg queueMessage) {
	var job Job
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		w.logger.Error("assist: malformed job payload", "error", err, "message_id", msg.ID)
		// Poison message; drop it rather than redeliver forever.
		_ = w.queue.Delete(ctx, msg.ReceiptHandle)
		w.metrics.ObserveJob("malformed")
		return
	}

	reply, err := w.answer(ctx, job)
	if err != nil {
		w.logger.Error("assist: reply generation failed", "error", err, "job_id", job.ID)
		w.metrics.ObserveJob("error")
		if w.notifier != nil {
			w.notifier.NotifyReply(job.SessionID, TranscriptMessage{
				Role:      "assistant",
				Body:      "Sorry, I could not process that right now. Please try again.",
				Timestamp: time.Now().UTC(),
			})
		}
		_ = w.queue.Delete(ctx, msg.ReceiptHandle)
		return
	}

	replyMsg := TranscriptMessage{
		Role:      "assistant",
		Body:      reply,
		Timestamp: time.Now().UTC(),
	}
	if err := w.transcript.Append(ctx, job.SessionID, replyMsg); err != nil {
		w.logger.Warn("assist: transcript append failed", "error", err, "job_id", job.ID)
	}
	if w.notifier != nil {
		w.notifier.NotifyReply(job.SessionID, replyMsg)
	}

	w.metrics.ObserveJob("ok")
	w.metrics.ObserveReplySize(len(reply))
	w.logger.Info("assist: reply delivered", "job_id", job.ID, "session_id", job.SessionID)

	_ = w.queue.Delete(ctx, msg.ReceiptHandle)
}

// answer routes a job to the knowledge base when the prompt asks about the
// patient's own health data, otherwise to open conversation. A knowledge
// base failure falls back to conversation so the patient still gets an
// answer.
func (w *Worker) answer(ctx context.Context, job Job) (string, error) {
	if w.knowledge != nil && IsKnowledgeQuery(job.Prompt) {
		reply, err := w.knowledge.Query(ctx, job.Prompt)
		if err == nil {
			return reply, nil
		}
		w.logger.Warn("assist: knowledge query failed", "error", err, "job_id", job.ID)
	}
	return w.assistant.Reply(ctx, w.contextTurns(ctx, job))
}

// contextTurns loads prior history and appends the new prompt. Without a
// transcript store the prompt stands alone.
func (w *Worker) contextTurns(ctx context.Context, job Job) []Turn {
	history, err := w.transcript.List(ctx, job.SessionID, 20)
	if err != nil {
		w.logger.Warn("assist: transcript load failed", "error", err, "job_id", job.ID)
	}

	turns := make([]Turn, 0, len(history)+1)
	for _, msg := range history {
		turns = append(turns, Turn{Role: msg.Role, Text: msg.Body})
	}
	// The inbound prompt is persisted by the handler before enqueue; only
	// append it here if the transcript missed it.
	if len(turns) == 0 || turns[len(turns)-1].Role != "user" || turns[len(turns)-1].Text != job.Prompt {
		turns = append(turns, Turn{Role: "user", Text: job.Prompt})
	}
	return turns
}
