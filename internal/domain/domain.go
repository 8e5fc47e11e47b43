package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentReady    DocumentStatus = "ready"
	DocumentFailed   DocumentStatus = "failed"
	DocumentDeleting DocumentStatus = "deleting"
)

// Document is a unit of source text. Its chunks are rebuilt wholesale on
// replace and removed with it on delete.
type Document struct {
	ID      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title   string         `gorm:"column:title;not null" json:"title"`
	Content string         `gorm:"column:content;type:text;not null" json:"content"`
	Source  string         `gorm:"column:source;index" json:"source,omitempty"`
	Status  DocumentStatus `gorm:"column:status;not null;index" json:"status"`
	Error   string         `gorm:"column:error;type:text" json:"error,omitempty"`

	ChunkCount int `gorm:"column:chunk_count;not null" json:"chunk_count"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Document) TableName() string { return "document" }

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DocumentPending
	}
	return nil
}

type Chunk struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_chunk_document_index,priority:1" json:"document_id"`
	Document   *Document `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`

	Index     int            `gorm:"column:chunk_index;not null;uniqueIndex:idx_chunk_document_index,priority:2" json:"index"`
	Text      string         `gorm:"column:text;type:text;not null" json:"text"`
	Embedding datatypes.JSON `gorm:"type:jsonb;column:embedding" json:"embedding,omitempty"`
	Metadata  datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Chunk) TableName() string { return "document_chunk" }

func (c *Chunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// RetrievedContext is a query-scoped snippet. Similarity is cosine clamped to
// [0,1]; Score is the rank score (boosted for hybrid search).
type RetrievedContext struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id,omitempty"`
	DocumentTitle string  `json:"document_title"`
	ChunkIndex    int     `json:"chunk_index"`
	Text          string  `json:"text"`
	Similarity    float64 `json:"similarity"`
	Score         float64 `json:"score"`
}

type WebResultType string

const (
	WebResultWeb  WebResultType = "web"
	WebResultNews WebResultType = "news"
)

type WebResult struct {
	Title          string        `json:"title"`
	URL            string        `json:"url"`
	Description    string        `json:"description"`
	Snippet        string        `json:"snippet,omitempty"`
	Source         string        `json:"source"`
	Type           WebResultType `json:"type"`
	Date           *time.Time    `json:"date,omitempty"`
	RelevanceScore float64       `json:"relevance_score"`
	IsTechnical    bool          `json:"is_technical"`
	IsRecent       bool          `json:"is_recent"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type ConversationMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type AssistantResponse struct {
	Content          string             `json:"content"`
	Usage            Usage              `json:"usage"`
	Model            string             `json:"model"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	Confidence       *float64           `json:"confidence,omitempty"`
	Sources          []RetrievedContext `json:"sources"`
	WebSources       []WebResult        `json:"web_sources,omitempty"`
	Metadata         ResponseMetadata   `json:"metadata"`
}

// ResponseMetadata records the decisions taken while answering.
type ResponseMetadata struct {
	Mode            string  `json:"mode,omitempty"`
	Complexity      string  `json:"complexity,omitempty"`
	Model           string  `json:"model,omitempty"`
	Temperature     float64 `json:"temperature"`
	Urgency         string  `json:"urgency,omitempty"`
	SkillLevel      string  `json:"skill_level,omitempty"`
	SearchPerformed bool    `json:"search_performed"`
	SearchType      string  `json:"search_type,omitempty"`
	WebResultCount  int     `json:"web_result_count"`
	ContextCount    int     `json:"context_count"`
	NoContext       bool    `json:"no_context,omitempty"`
}

type IngestionStage string

const (
	StageChunk  IngestionStage = "chunk"
	StageEmbed  IngestionStage = "embed"
	StageUpsert IngestionStage = "upsert"
	StageDelete IngestionStage = "delete"
	StageDone   IngestionStage = "done"
)

// IngestionEvent is published whenever a document changes lifecycle state.
type IngestionEvent struct {
	DocumentID string         `json:"document_id"`
	Status     DocumentStatus `json:"status"`
	Stage      IngestionStage `json:"stage"`
	Chunks     int            `json:"chunks,omitempty"`
	Attempt    int            `json:"attempt,omitempty"`
	Error      string         `json:"error,omitempty"`
	At         time.Time      `json:"at"`
}
