// Package tasks defines the ingestion tasks that are sent to Kafka.
package tasks

import (
	"errors"
	"fmt"
)

// IngestTask asks a worker to chunk one source document into an index.
// Exactly one of ObjectName and Text is set: ObjectName points into the object store,
// Text carries the document inline.
type IngestTask struct {
	TaskID     string `json:"task_id"`
	IndexName  string `json:"index_name"`
	IndexKind  string `json:"index_kind"`
	ModelType  string `json:"model_type"`
	FileName   string `json:"file_name"`
	ObjectName string `json:"object_name,omitempty"`
	Text       string `json:"text,omitempty"`
}

// Validate checks the fields every task needs.
func (t IngestTask) Validate() error {
	if t.IndexName == "" {
		return errors.New("index_name is required")
	}
	if t.FileName == "" {
		return errors.New("file_name is required")
	}
	if (t.ObjectName == "") == (t.Text == "") {
		return fmt.Errorf("task %s: exactly one of object_name and text must be set", t.TaskID)
	}
	return nil
}
