package dto

// AskRequest represents a question over the transcript corpus.
type AskRequest struct {
	Question string `json:"question"`
}

// AskSource identifies a transcript that grounded the answer.
type AskSource struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

// AskResponse carries the generated answer and its sources.
type AskResponse struct {
	Answer  string      `json:"answer"`
	Sources []AskSource `json:"sources"`
}
