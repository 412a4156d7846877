package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/murmurlabs/murmur/infrastructure/provider"
	"github.com/murmurlabs/murmur/internal/config"
)

const answerPromptFormat = `Answer the following question based only on the provided context.

Context:
%s

Question: %s

Answer:`

// Source identifies a transcript that grounded an answer.
type Source struct {
	transcriptID int64
	name         string
	date         string
	score        float64
}

// NewSource creates a Source.
func NewSource(transcriptID int64, name, date string, score float64) Source {
	return Source{transcriptID: transcriptID, name: name, date: date, score: score}
}

// TranscriptID returns the source transcript's id.
func (s Source) TranscriptID() int64 { return s.transcriptID }

// Name returns the source transcript's name.
func (s Source) Name() string { return s.name }

// Date returns the source transcript's date.
func (s Source) Date() string { return s.date }

// Score returns the similarity score of the source's best chunk.
func (s Source) Score() float64 { return s.score }

// AnswerResult is a generated answer with the sources that grounded it.
type AnswerResult struct {
	answer  string
	sources []Source
}

// NewAnswerResult creates an AnswerResult.
func NewAnswerResult(answer string, sources []Source) AnswerResult {
	s := make([]Source, len(sources))
	copy(s, sources)
	return AnswerResult{answer: answer, sources: s}
}

// Answer returns the generated answer text.
func (r AnswerResult) Answer() string { return r.answer }

// Sources returns the transcripts the answer was grounded on.
func (r AnswerResult) Sources() []Source {
	result := make([]Source, len(r.sources))
	copy(result, r.sources)
	return result
}

// Answer generates grounded answers over the transcript corpus: retrieve the
// most relevant chunks, assemble them into a bounded context, and ask the
// text generator to answer from that context alone.
type Answer struct {
	searcher      *Search
	generator     provider.TextGenerator
	contextBudget int
	closed        *atomic.Bool
	logger        *slog.Logger
}

// NewAnswer creates a new Answer service.
func NewAnswer(
	searcher *Search,
	generator provider.TextGenerator,
	contextBudget int,
	closed *atomic.Bool,
	logger *slog.Logger,
) *Answer {
	if contextBudget <= 0 {
		contextBudget = config.DefaultContextBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Answer{
		searcher:      searcher,
		generator:     generator,
		contextBudget: contextBudget,
		closed:        closed,
		logger:        logger,
	}
}

// Ask answers the question from retrieved transcript chunks. Sources cover
// every retrieved match, including chunks dropped from the context for
// exceeding the character budget.
func (a *Answer) Ask(ctx context.Context, question string) (AnswerResult, error) {
	if a.closed != nil && a.closed.Load() {
		return AnswerResult{}, ErrClientClosed
	}
	if question == "" {
		return AnswerResult{}, fmt.Errorf("%w: question is required", ErrValidation)
	}

	results, err := a.searcher.Query(ctx, question)
	if err != nil {
		return AnswerResult{}, err
	}

	grounding := a.assembleContext(results)
	sources := a.collectSources(results)

	prompt := fmt.Sprintf(answerPromptFormat, grounding, question)
	req := provider.NewChatCompletionRequest([]provider.Message{provider.UserMessage(prompt)})

	if a.generator == nil {
		return AnswerResult{}, fmt.Errorf("no text generation provider configured")
	}
	resp, err := a.generator.ChatCompletion(ctx, req)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("generate answer: %w", err)
	}

	a.logger.Debug("answer generated",
		"question_len", len(question), "sources", len(sources), "context_len", len(grounding))
	return AnswerResult{answer: strings.TrimSpace(resp.Content()), sources: sources}, nil
}

// assembleContext joins chunk texts in descending score order under the
// character budget. Once a chunk would exceed the budget, it and every
// lower-scored chunk are dropped; a first chunk that alone exceeds the whole
// budget is truncated to it.
func (a *Answer) assembleContext(results []Result) string {
	var parts []string
	used := 0
	for _, r := range results {
		text := r.Match().Text()
		if used+len(text) > a.contextBudget {
			if used == 0 {
				parts = append(parts, text[:a.contextBudget])
			}
			break
		}
		parts = append(parts, text)
		used += len(text)
	}
	return strings.Join(parts, "\n\n")
}

func (a *Answer) collectSources(results []Result) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		name := r.Match().Name()
		date := r.Match().Date()
		if t, ok := r.Transcript(); ok {
			if name == "" {
				name = t.Name()
			}
			if date == "" {
				date = t.Date()
			}
		}
		if name == "" {
			name = "Unknown"
		}
		if date == "" {
			date = "Unknown"
		}
		sources[i] = Source{
			transcriptID: r.Match().TranscriptID(),
			name:         name,
			date:         date,
			score:        r.Match().Score(),
		}
	}
	return sources
}
