package speech

// NewTestSynthesizer creates an OpenAISynthesizer around a mock client.
func NewTestSynthesizer(client speechCreator, opts ...SynthesizerOption) *OpenAISynthesizer {
	return newSynthesizer(client, opts...)
}
