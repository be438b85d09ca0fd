package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/rankvault/internal/engine"
)

func TestFixedFlowGenerator(t *testing.T) {
	var gen engine.FlowTokenGenerator = NewFixedFlowGenerator("scenario-flow")
	assert.Equal(t, "scenario-flow", gen.Generate())
	assert.Equal(t, "scenario-flow", gen.Generate())
}

func TestFixedFlowGenerator_Default(t *testing.T) {
	assert.Equal(t, "test-flow-default", NewFixedFlowGenerator("").Generate())
}
