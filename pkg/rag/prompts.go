package rag

import (
	"fmt"
	"strings"
)

const chatSystemPrompt = "You are a helpful AI assistant. Provide clear, accurate, and friendly responses."

const gradingContentLimit = 500

func gradingPrompt(query, content string) string {
	runes := []rune(content)
	if len(runes) > gradingContentLimit {
		content = string(runes[:gradingContentLimit]) + "..."
	}
	return fmt.Sprintf(`Grade the relevance of this document to the query.

Query: %s

Document: %s

Is this document relevant to answering the query? Answer with just 'yes' or 'no'.`, query, content)
}

func generationPrompt(query string, docs []RetrievedDocument, includeSources bool) string {
	parts := make([]string, len(docs))
	for i, doc := range docs {
		sourceInfo := ""
		if includeSources && doc.Filename != "" {
			sourceInfo = fmt.Sprintf(" (Source: %s)", doc.Filename)
		}
		parts[i] = fmt.Sprintf("Document %d%s:\n%s", i+1, sourceInfo, doc.Content)
	}

	return fmt.Sprintf(`Based on the following documents, answer the user's question.
Use only information from the provided documents. If the answer cannot be found in the documents, say so.

Documents:
%s

Question: %s

Answer:`, strings.Join(parts, "\n\n"), query)
}

func groundednessPrompt(answer string, docs []RetrievedDocument) string {
	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = fmt.Sprintf("Document %d:\n%s", i+1, doc.Content)
	}

	return fmt.Sprintf(`Check if the answer is grounded in the provided documents.

Documents:
%s

Answer:
%s

Rate from 0.0 to 1.0 how well the answer is supported by the documents.
- 1.0 = All information comes directly from the documents
- 0.5 = Some information is inferred or partially from documents
- 0.0 = Answer contains information not in documents (hallucination)

Respond with just a number between 0.0 and 1.0.`, strings.Join(parts, "\n\n"), answer)
}
