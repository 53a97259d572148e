package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_EmbeddingCache(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "valid",
			doc:  `{"model":"text-embedding-004","dimension":2,"count":2,"embeddings":[[0.1,0.2],[0.3,0.4]]}`,
		},
		{
			name: "empty corpus",
			doc:  `{"model":"m","dimension":1,"count":0,"embeddings":[]}`,
		},
		{
			name:    "missing model",
			doc:     `{"dimension":2,"count":1,"embeddings":[[1,2]]}`,
			wantErr: true,
		},
		{
			name:    "non numeric vector",
			doc:     `{"model":"m","dimension":2,"count":1,"embeddings":[["a","b"]]}`,
			wantErr: true,
		},
		{
			name:    "empty vector",
			doc:     `{"model":"m","dimension":2,"count":1,"embeddings":[[]]}`,
			wantErr: true,
		},
		{
			name:    "unknown field",
			doc:     `{"model":"m","dimension":2,"count":0,"embeddings":[],"extra":true}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(EmbeddingCache, []byte(tt.doc))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Errors)
			assert.Contains(t, err.Error(), EmbeddingCache)
		})
	}
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(EmbeddingCache, []byte(`{not json`))
	require.Error(t, err)
	var lerr *SchemaLoadError
	assert.ErrorAs(t, err, &lerr)
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope.schema.json", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema not embedded")
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"name":"x"}`))

	err := ValidateJSONString(schema, `{"name":1}`)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Errors[0].Field)
}
