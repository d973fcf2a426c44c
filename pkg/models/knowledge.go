package models

import (
	"encoding/json"
	"time"
)

// --- Chat ---

// ChatMessage is one turn of a conversation held by the knowledge backend.
type ChatMessage struct {
	Role      string     `json:"role"` // "user" or "assistant"
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ChatRequest is a user question for the regulatory assistant.
type ChatRequest struct {
	Message        string `json:"message"              validate:"required,min=1,max=2000"`
	SessionID      string `json:"session_id,omitempty"`
	IncludeSources bool   `json:"include_sources"`
	Language       string `json:"language"             validate:"omitempty,oneof=es en"`
}

// Source references a document excerpt backing an answer.
type Source struct {
	Title           string   `json:"title"`
	FileName        string   `json:"file_name,omitempty"`
	RegulatoryTopic string   `json:"regulatory_topic,omitempty"`
	Excerpt         string   `json:"excerpt"`
	RelevanceScore  *float64 `json:"relevance_score,omitempty"`
}

// ChatResponse is the assistant answer with its sources.
type ChatResponse struct {
	Answer           string   `json:"answer"`
	Sources          []Source `json:"sources"`
	SessionID        string   `json:"session_id"`
	Confidence       string   `json:"confidence"` // low, medium, high
	Suggestions      []string `json:"suggestions"`
	ProcessingTimeMS *int64   `json:"processing_time_ms,omitempty"`
}

// ChatHistory is the stored conversation for a session.
type ChatHistory struct {
	History []ChatMessage `json:"history"`
}

// --- Documents ---

// DocumentStats summarises the indexed corpus.
type DocumentStats struct {
	TotalChunks    int            `json:"total_chunks"`
	TotalDocuments int            `json:"total_documents"`
	Topics         map[string]int `json:"topics"`
	Authorities    map[string]int `json:"authorities"`
}

// TopicList lists regulatory topics with chunk counts.
type TopicList struct {
	Topics []string       `json:"topics"`
	Counts map[string]int `json:"counts"`
}

// SearchRequest is a free-text document search.
type SearchRequest struct {
	Query       string `json:"query"                  validate:"required,min=3,max=500"`
	TopK        int    `json:"top_k"                  validate:"gte=1,lte=20"`
	TopicFilter string `json:"topic_filter,omitempty"`
}

// SearchResult holds ranked excerpts for a query.
type SearchResult struct {
	Query      string   `json:"query"`
	Results    []Source `json:"results"`
	TotalFound int      `json:"total_found"`
}

// DocumentInfo describes one indexed document.
type DocumentInfo struct {
	Title           string `json:"title"`
	FileName        string `json:"file_name"`
	RegulatoryTopic string `json:"regulatory_topic"`
	SourceAuthority string `json:"source_authority"`
	ChunkCount      int    `json:"chunk_count"`
}

// DocumentList is a page of indexed documents.
type DocumentList struct {
	Documents []DocumentInfo `json:"documents"`
	Total     int            `json:"total"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
}

// DocumentQuery filters DocumentList requests.
type DocumentQuery struct {
	Topic  string
	Limit  int
	Offset int
}

// --- Admin ---

// RegulatorySource is a publisher the backend can scrape (EBA, ECB, BIS ...).
type RegulatorySource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	LastScraped string `json:"last_scraped,omitempty"`
}

// SourceList is the set of configured regulatory sources.
type SourceList struct {
	Sources []RegulatorySource `json:"sources"`
	Total   int                `json:"total"`
}

// ScrapeRequest starts a scrape of one source.
type ScrapeRequest struct {
	SourceID         string `json:"source_id"`
	Limit            *int   `json:"limit,omitempty"`
	IndexImmediately bool   `json:"index_immediately"`
}

// ScrapeStatus reports progress of a scrape.
type ScrapeStatus struct {
	Source              string   `json:"source"`
	Status              string   `json:"status"`
	DocumentsFound      int      `json:"documents_found"`
	DocumentsDownloaded int      `json:"documents_downloaded"`
	DocumentsIndexed    int      `json:"documents_indexed"`
	StartedAt           string   `json:"started_at,omitempty"`
	CompletedAt         string   `json:"completed_at,omitempty"`
	Errors              []string `json:"errors"`
}

// AdminPayload carries backend admin responses whose shape the backend owns
// (discovery previews, update checks, job acknowledgements).
type AdminPayload = json.RawMessage

// --- Health ---

// BackendOverview is a point-in-time view of the knowledge backend.
type BackendOverview struct {
	Reachable bool           `json:"reachable"`
	RAGStatus string         `json:"rag_status"` // healthy, empty, error: ...
	Stats     *DocumentStats `json:"stats,omitempty"`
	Topics    []string       `json:"topics,omitempty"`
	CheckedAt time.Time      `json:"checked_at"`
}
