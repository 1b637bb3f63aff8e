package nats

import (
	"testing"

	"cv-rag/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.document.indexed", Subject(events.TypeDocumentIndexed))
}

func TestEnvelopeKeepsIdentity(t *testing.T) {
	original := events.DocumentIndexed("cv-rag", "cv", 4, 1)

	data, err := encode(original)
	require.NoError(t, err)

	got, err := decode(Subject(original.Type), data)
	require.NoError(t, err)

	assert.Equal(t, original.ID, got.EventID())
	assert.Equal(t, events.TypeDocumentIndexed, got.EventType())
	assert.True(t, original.OccurredAt.Equal(got.Timestamp()))
	assert.Equal(t, "cv", events.StringField(got, "document_id"))
	// JSON numbers come back as float64.
	assert.Equal(t, float64(4), got.Payload()["chunks"])
}

func TestDecodeTakesTypeFromSubject(t *testing.T) {
	got, err := decode("events.namespace.deleted", []byte(`{"namespace":"cv-rag"}`))
	require.NoError(t, err)

	assert.Equal(t, events.TypeNamespaceDeleted, got.EventType())
	assert.NotNil(t, got.Payload())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decode("events.x", []byte("{not json"))
	assert.Error(t, err)
}
