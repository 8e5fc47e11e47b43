// Package ingestflow runs the ingestion retry schedule as a Temporal
// workflow so a document's schedule survives process restarts.
package ingestflow

import "time"

const (
	WorkflowName    = "document_ingestion"
	ActivityProcess = "document_ingestion_process"
	ActivityFail    = "document_ingestion_fail"
)

type Input struct {
	DocumentID string `json:"document_id"`
	// Delays[i] is the wait before attempt i+2. The workflow makes
	// len(Delays)+1 attempts in total.
	Delays []time.Duration `json:"delays"`
}

type ProcessInput struct {
	DocumentID string `json:"document_id"`
	Attempt    int    `json:"attempt"`
}

type ProcessResult struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

type FailInput struct {
	DocumentID string `json:"document_id"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
}

func WorkflowID(documentID string) string { return "ingest-" + documentID }
