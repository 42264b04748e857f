package transcribe

// NewTestTranscriber creates an OpenAITranscriber around a mock client.
func NewTestTranscriber(client audioTranscriber, opts ...TranscriberOption) *OpenAITranscriber {
	return newTranscriber(client, opts...)
}
