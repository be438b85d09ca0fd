package testutil

// FixedFlowGenerator returns the same flow token every time, so every call
// of a scenario lands in one flow and golden traces stay byte-identical.
//
// Implements engine.FlowTokenGenerator.
type FixedFlowGenerator struct {
	token string
}

// NewFixedFlowGenerator creates a generator. An empty token means
// "test-flow-default".
func NewFixedFlowGenerator(token string) *FixedFlowGenerator {
	if token == "" {
		token = "test-flow-default"
	}
	return &FixedFlowGenerator{token: token}
}

// Generate returns the fixed flow token.
func (g *FixedFlowGenerator) Generate() string {
	return g.token
}
