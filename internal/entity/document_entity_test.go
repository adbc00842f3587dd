package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentLifecycleTransitions(t *testing.T) {
	cases := []struct {
		from    DocumentStatus
		to      DocumentStatus
		allowed bool
	}{
		{DocumentStatusUploading, DocumentStatusProcessing, true},
		{DocumentStatusUploading, DocumentStatusCompleted, false},
		{DocumentStatusProcessing, DocumentStatusCompleted, true},
		{DocumentStatusProcessing, DocumentStatusFailed, true},
		{DocumentStatusCompleted, DocumentStatusProcessing, false},
		{DocumentStatusCompleted, DocumentStatusDeleted, true},
		{DocumentStatusFailed, DocumentStatusProcessing, false},
		{DocumentStatusFailed, DocumentStatusDeleted, true},
		{DocumentStatusDeleted, DocumentStatusProcessing, false},
	}

	for _, tc := range cases {
		doc := Document{Status: tc.from}
		assert.Equal(t, tc.allowed, doc.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}
