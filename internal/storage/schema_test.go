package storage

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaEmbeddingDimensionTemplated(t *testing.T) {
	sql := fmt.Sprintf(schemaSQL, 1536)
	assert.Contains(t, sql, "vector(1536)")
}

func TestSchemaJobUserIsFreeForm(t *testing.T) {
	// The caller identity is opaque to this system; an anonymous ingest
	// carries an empty user and the job row must still insert.
	assert.Contains(t, schemaSQL, "user_id         text NOT NULL DEFAULT ''")
	assert.False(t, strings.Contains(schemaSQL, "user_id         uuid"))
}
