package vectorindex

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorColumnMatchesDimensions(t *testing.T) {
	field, ok := reflect.TypeOf(vectorPoint{}).FieldByName("Embedding")
	require.True(t, ok)

	assert.Contains(t, field.Tag.Get("gorm"), fmt.Sprintf("vector(%d)", Dimensions),
		"embedding column width must match the Dimensions constant")
}
