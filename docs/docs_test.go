package docs

import (
	"encoding/json"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Evgesha-thunder/user-service/pkg/models"
)

type swaggerDoc struct {
	Definitions map[string]struct {
		Required   []string                   `json:"required"`
		Properties map[string]json.RawMessage `json:"properties"`
	} `json:"definitions"`
}

func readDoc(t *testing.T) (string, swaggerDoc) {
	t.Helper()
	raw := SwaggerInfo.ReadDoc()
	var doc swaggerDoc
	require.NoError(t, json.Unmarshal([]byte(raw), &doc), "swagger document is not valid JSON")
	return raw, doc
}

func jsonFields(v any) []string {
	typ := reflect.TypeOf(v)
	fields := make([]string, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		name := strings.SplitN(typ.Field(i).Tag.Get("json"), ",", 2)[0]
		if name != "" && name != "-" {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

func propertyNames(props map[string]json.RawMessage) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestDoc_RefsResolve(t *testing.T) {
	raw, doc := readDoc(t)

	refs := regexp.MustCompile(`#/definitions/([A-Za-z.]+)`).FindAllStringSubmatch(raw, -1)
	require.NotEmpty(t, refs)
	for _, ref := range refs {
		assert.Contains(t, doc.Definitions, ref[1], "dangling $ref %s", ref[0])
	}
}

func TestDoc_ModelsMatchTypes(t *testing.T) {
	_, doc := readDoc(t)

	tests := []struct {
		definition string
		model      any
	}{
		{"models.UserRequest", models.UserRequest{}},
		{"models.UserDTO", models.UserDTO{}},
	}
	for _, tt := range tests {
		t.Run(tt.definition, func(t *testing.T) {
			def, ok := doc.Definitions[tt.definition]
			require.True(t, ok)
			assert.Equal(t, jsonFields(tt.model), propertyNames(def.Properties))
		})
	}

	assert.ElementsMatch(t, []string{"age", "email", "name"}, doc.Definitions["models.UserRequest"].Required)
}
